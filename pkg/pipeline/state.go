package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage enumerates the pipeline states in strict forward order. Failed is
// reachable from any non-terminal stage.
type Stage string

const (
	StageStart           Stage = "START"
	StageNormalized      Stage = "NORMALIZED"
	StageCacheChecked    Stage = "CACHE_CHECKED"
	StageRouted          Stage = "ROUTED"
	StagePlanned         Stage = "PLANNED"
	StageValidated       Stage = "VALIDATED"
	StageExecuted        Stage = "EXECUTED"
	StageResultValidated Stage = "RESULT_VALIDATED"
	StageSynthesized     Stage = "SYNTHESIZED"
	StageMemoryUpdated   Stage = "MEMORY_UPDATED"
	StageCompleted       Stage = "COMPLETED"
	StageFailed          Stage = "FAILED"
)

type Terminal string

const (
	TerminalNone      Terminal = "NONE"
	TerminalCompleted Terminal = "COMPLETED"
	TerminalFailed    Terminal = "FAILED"
)

// StageVisit records one completed stage with its latency.
type StageVisit struct {
	Stage    Stage
	Duration time.Duration
}

// ExecutionState is owned exclusively by the orchestrator for one request
// and discarded (beyond logs and events) after the response returns.
type ExecutionState struct {
	RequestId    uuid.UUID
	CurrentStage Stage
	History      []StageVisit
	Terminal     Terminal

	stageStart time.Time
}

func newExecutionState(requestId uuid.UUID) *ExecutionState {
	return &ExecutionState{
		RequestId:    requestId,
		CurrentStage: StageStart,
		Terminal:     TerminalNone,
		stageStart:   time.Now(),
	}
}

// advance closes the current stage and moves to the next one, returning the
// closed visit so the orchestrator can emit its event.
func (s *ExecutionState) advance(next Stage) StageVisit {
	now := time.Now()
	visit := StageVisit{Stage: s.CurrentStage, Duration: now.Sub(s.stageStart)}
	s.History = append(s.History, visit)
	s.CurrentStage = next
	s.stageStart = now

	switch next {
	case StageCompleted:
		s.Terminal = TerminalCompleted
	case StageFailed:
		s.Terminal = TerminalFailed
	}
	return visit
}
