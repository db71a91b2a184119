package service

import (
	"context"
	"time"

	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/pipeline"

	"github.com/google/uuid"
)

const defaultRoutingProfile = "default"

type IQueryService interface {
	Process(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
}

type queryService struct {
	orchestrator *pipeline.Orchestrator
	llmTimeout   time.Duration
}

func NewQueryService(orchestrator *pipeline.Orchestrator, llmTimeout time.Duration) IQueryService {
	return &queryService{
		orchestrator: orchestrator,
		llmTimeout:   llmTimeout,
	}
}

// Process builds the immutable request, bounds the whole pipeline with the
// configured deadline, and maps the outcome onto the response DTO.
func (s *queryService) Process(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	sessionId := uuid.New()
	if req.SessionId != "" {
		if parsed, err := uuid.Parse(req.SessionId); err == nil {
			sessionId = parsed
		}
	}

	profile := req.RoutingProfile
	if profile == "" {
		profile = defaultRoutingProfile
	}

	request := &entity.Request{
		Id:             uuid.New(),
		RawText:        req.Text,
		SessionId:      sessionId,
		RoutingProfile: profile,
		ModelId:        req.ModelId,
		Timezone:       req.Timezone,
		ReceivedAt:     time.Now(),
	}

	pipelineCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	outcome := s.orchestrator.Process(pipelineCtx, request)

	return mapOutcome(request, sessionId, outcome), nil
}

func mapOutcome(request *entity.Request, sessionId uuid.UUID, outcome *pipeline.Outcome) *dto.QueryResponse {
	stages := make([]dto.StageLatencyDTO, 0, len(outcome.Metadata.Stages))
	for _, stage := range outcome.Metadata.Stages {
		stages = append(stages, dto.StageLatencyDTO{
			Name:       stage.Name,
			DurationMs: stage.DurationMs,
		})
	}

	resp := &dto.QueryResponse{
		RequestId: request.Id.String(),
		SessionId: sessionId.String(),
		Answer:    outcome.Answer,
		Metadata: dto.QueryMetadataDTO{
			Intent:        string(outcome.Metadata.Intent),
			CacheHit:      outcome.Metadata.CacheHit,
			Stages:        stages,
			TokenUsage:    outcome.Metadata.TokenUsage,
			StepsExecuted: outcome.Metadata.StepsExecuted,
			Retries:       outcome.Metadata.Retries,
		},
	}
	if outcome.Failure != nil {
		resp.Failure = &dto.QueryFailureDTO{
			Stage: string(outcome.Failure.Stage),
			Cause: string(outcome.Failure.Cause),
		}
	}
	return resp
}
