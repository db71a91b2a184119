package resultcheck

import (
	"context"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/capability"
)

// Verdict is the outcome of result validation. A not-OK verdict names the
// first anomalous step so the orchestrator can run its fallback.
type Verdict struct {
	OK              bool
	AnomalousStepId string
	Reason          string
}

// Policy decides what counts as anomalous. The statistical rule is
// deliberately pluggable; see StatisticalPolicy for the default.
type Policy interface {
	Evaluate(ctx context.Context, plan *entity.Plan, results map[string]entity.StepResult) Verdict
}

// Validator applies the configured policy and logs verdicts.
type Validator struct {
	policy Policy
	logger logger.ILogger
}

func NewValidator(policy Policy, log logger.ILogger) *Validator {
	return &Validator{policy: policy, logger: log}
}

func (v *Validator) Validate(ctx context.Context, plan *entity.Plan, results map[string]entity.StepResult) Verdict {
	verdict := v.policy.Evaluate(ctx, plan, results)
	if !verdict.OK {
		v.logger.Warn("resultcheck", "anomalous result detected", map[string]interface{}{
			"step":   verdict.AnomalousStepId,
			"reason": verdict.Reason,
		})
	}
	return verdict
}

// FallbackStep substitutes the contract's designated fallback action for an
// anomalous step, keeping the original parameters. Returns false when the
// tool declares no fallback.
func FallbackStep(contract *capability.Contract, plan *entity.Plan, stepId string) (entity.Step, bool) {
	for _, step := range plan.Steps {
		if step.Id != stepId {
			continue
		}
		tool, ok := contract.Tool(step.Action)
		if !ok || tool.FallbackAction == "" {
			return entity.Step{}, false
		}
		if _, ok := contract.Tool(tool.FallbackAction); !ok {
			return entity.Step{}, false
		}
		return entity.Step{
			Id:         step.Id,
			Action:     tool.FallbackAction,
			Parameters: step.Parameters,
		}, true
	}
	return entity.Step{}, false
}
