package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/llm"

	"github.com/google/uuid"
)

// ErrPlanParse marks a generation-model response that could not be parsed
// into the strict plan shape. Never repaired silently.
var ErrPlanParse = errors.New("plan parse error")

// Planner decides between a deterministic template plan and an LLM-generated
// one. LLM output is parsed into the strict Plan schema at this boundary and
// handed to the validator untrusted.
type Planner struct {
	llmProvider llm.Provider
	contract    *capability.Contract
	maxTokens   int
	logger      logger.ILogger
}

func NewPlanner(llmProvider llm.Provider, contract *capability.Contract, maxTokens int, log logger.ILogger) *Planner {
	return &Planner{
		llmProvider: llmProvider,
		contract:    contract,
		maxTokens:   maxTokens,
		logger:      log,
	}
}

func (p *Planner) Plan(ctx context.Context, intent entity.Intent, normalizedText string, history []entity.Exchange) (*entity.Plan, error) {
	if plan := templatePlan(intent, normalizedText, p.contract); plan != nil {
		p.logger.Debug("planner", "template plan selected", map[string]interface{}{
			"steps": len(plan.Steps),
		})
		return plan, nil
	}

	prompt := composePlannerPrompt(p.contract, intent, normalizedText, history)

	response, err := p.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithMaxTokens(p.maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("planner generation failed: %w", err)
	}

	plan, err := parsePlan(response)
	if err != nil {
		p.logger.Warn("planner", "model returned non-conforming plan", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	plan.Complexity = entity.ComplexityComplex
	return plan, nil
}

// --- strict response parsing ---

type plannerResponse struct {
	Steps []plannerStep `json:"steps"`
}

type plannerStep struct {
	Id         string                 `json:"id"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters"`
	DependsOn  []string               `json:"depends_on"`
}

// parsePlan isolates the JSON object in the response and maps it into the
// plan schema. Anything non-conforming is ErrPlanParse.
func parsePlan(response string) (*entity.Plan, error) {
	jsonContent := extractJSON(response)

	var parsed plannerResponse
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanParse, err)
	}
	if len(parsed.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps in response", ErrPlanParse)
	}

	seen := make(map[string]bool, len(parsed.Steps))
	steps := make([]entity.Step, len(parsed.Steps))
	for i, s := range parsed.Steps {
		if s.Id == "" || s.Action == "" {
			return nil, fmt.Errorf("%w: step %d missing id or action", ErrPlanParse, i)
		}
		if seen[s.Id] {
			return nil, fmt.Errorf("%w: duplicate step id %q", ErrPlanParse, s.Id)
		}
		seen[s.Id] = true
		if s.Parameters == nil {
			s.Parameters = map[string]interface{}{}
		}
		steps[i] = entity.Step{
			Id:         s.Id,
			Action:     s.Action,
			Parameters: s.Parameters,
			DependsOn:  s.DependsOn,
		}
	}

	return &entity.Plan{
		Id:    uuid.New(),
		Steps: steps,
	}, nil
}

// extractJSON isolates JSON content from response
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}
