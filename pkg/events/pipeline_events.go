package events

import "time"

const (
	TypePipelineStage     = "PIPELINE_STAGE"
	TypePipelineCompleted = "PIPELINE_COMPLETED"
	TypePipelineFailed    = "PIPELINE_FAILED"
)

// NewStageEvent is emitted once per orchestrator transition, before the
// pipeline advances to the next stage.
func NewStageEvent(requestId, stage string, duration time.Duration) Event {
	return BaseEvent{
		Type: TypePipelineStage,
		Data: map[string]interface{}{
			"request_id":  requestId,
			"stage":       stage,
			"duration_ms": duration.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
}

func NewCompletedEvent(requestId string, cacheHit bool, steps, retries int) Event {
	return BaseEvent{
		Type: TypePipelineCompleted,
		Data: map[string]interface{}{
			"request_id":     requestId,
			"cache_hit":      cacheHit,
			"steps_executed": steps,
			"retries":        retries,
		},
		OccurredAt: time.Now(),
	}
}

func NewFailedEvent(requestId, stage, cause string) Event {
	return BaseEvent{
		Type: TypePipelineFailed,
		Data: map[string]interface{}{
			"request_id": requestId,
			"stage":      stage,
			"cause":      cause,
		},
		OccurredAt: time.Now(),
	}
}
