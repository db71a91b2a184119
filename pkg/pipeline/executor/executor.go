package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/tools"
)

var (
	// ErrStepTimeout marks a step that exceeded its timeout after the one
	// permitted retry.
	ErrStepTimeout = errors.New("step timeout")

	// ErrStepFailed marks a transport failure after retry or a logical
	// back-end rejection (never retried).
	ErrStepFailed = errors.New("step failed")

	// ErrStalledPlan marks a plan whose remaining steps can never become
	// ready. The validator rejects cycles up front; this is the fail-fast
	// backstop.
	ErrStalledPlan = errors.New("plan has unrunnable steps")
)

// Executor runs validated plans wave by wave: every step whose dependencies
// are terminal runs concurrently, bounded by maxConcurrency. The pipeline
// does not advance until the current wave fully settles.
type Executor struct {
	registry       *tools.Registry
	contract       *capability.Contract
	stepTimeout    time.Duration
	maxConcurrency int
	logger         logger.ILogger
}

func NewExecutor(registry *tools.Registry, contract *capability.Contract, stepTimeout time.Duration, maxConcurrency int, log logger.ILogger) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Executor{
		registry:       registry,
		contract:       contract,
		stepTimeout:    stepTimeout,
		maxConcurrency: maxConcurrency,
		logger:         log,
	}
}

// Result aggregates per-step results plus the transport retries spent.
type Result struct {
	Results map[string]entity.StepResult
	Retries int
}

// Execute runs the whole plan. The first step that still fails after its
// retry budget aborts execution; results of already-finished steps are kept
// for diagnostics but the error is authoritative.
func (e *Executor) Execute(ctx context.Context, plan *entity.Plan) (*Result, error) {
	out := &Result{Results: make(map[string]entity.StepResult, len(plan.Steps))}

	done := make(map[string]bool, len(plan.Steps))
	sem := make(chan struct{}, e.maxConcurrency)

	for len(done) < len(plan.Steps) {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		ready := readySteps(plan.Steps, done)
		if len(ready) == 0 {
			return out, fmt.Errorf("%w: %d steps blocked", ErrStalledPlan, len(plan.Steps)-len(done))
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var waveErr error

		for _, step := range ready {
			wg.Add(1)
			go func(step entity.Step) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				result, retried, err := e.RunStep(ctx, step, 1)

				mu.Lock()
				defer mu.Unlock()
				out.Results[step.Id] = result
				if retried {
					out.Retries++
				}
				if err != nil && waveErr == nil {
					waveErr = err
				}
			}(step)
		}
		wg.Wait()

		if waveErr != nil {
			return out, waveErr
		}
		for _, step := range ready {
			done[step.Id] = true
		}
	}

	return out, nil
}

// RunStep executes one step with its timeout and the one-shot transport
// retry. attempt is 1 for normal execution, 2 for a result-validator
// fallback re-execution.
func (e *Executor) RunStep(ctx context.Context, step entity.Step, attempt int) (entity.StepResult, bool, error) {
	tool, ok := e.contract.Tool(step.Action)
	if !ok {
		// Validator guarantees this never happens on a validated plan.
		return errorResult(step.Id, attempt, "action not in contract"), false, fmt.Errorf("%w: unknown action %s", ErrStepFailed, step.Action)
	}

	connector, ok := e.registry.Get(tool.Connector)
	if !ok {
		return errorResult(step.Id, attempt, "connector not registered"), false, fmt.Errorf("%w: connector %s not registered", ErrStepFailed, tool.Connector)
	}

	start := time.Now()
	payload, err := e.callOnce(ctx, connector, step)
	retried := false

	if err != nil && e.isRetryable(ctx, err) {
		e.logger.Warn("executor", "retrying step after transport failure", map[string]interface{}{
			"step":   step.Id,
			"action": step.Action,
			"error":  err.Error(),
		})
		retried = true
		payload, err = e.callOnce(ctx, connector, step)
	}

	duration := time.Since(start)

	if err != nil {
		result := errorResult(step.Id, attempt, err.Error())
		result.Duration = duration
		if isTimeout(ctx, err) {
			return result, retried, fmt.Errorf("%w: step %s: %v", ErrStepTimeout, step.Id, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, retried, ctxErr
		}
		return result, retried, fmt.Errorf("%w: step %s: %v", ErrStepFailed, step.Id, err)
	}

	status := entity.StepSuccess
	if isEmptyPayload(payload) {
		status = entity.StepEmpty
	}

	return entity.StepResult{
		StepId:        step.Id,
		Status:        status,
		Payload:       payload,
		Duration:      duration,
		AttemptNumber: attempt,
	}, retried, nil
}

func (e *Executor) callOnce(ctx context.Context, connector tools.Connector, step entity.Step) (interface{}, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return connector.Call(stepCtx, step.Action, step.Parameters)
}

// isRetryable grants the single retry to transport errors and step-level
// timeouts. Logical rejections and caller cancellation never retry.
func (e *Executor) isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var callErr *tools.CallError
	if errors.As(err, &callErr) {
		return callErr.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isTimeout reports a per-step deadline, as opposed to the whole request
// being cancelled.
func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
}

func readySteps(steps []entity.Step, done map[string]bool) []entity.Step {
	var ready []entity.Step
	for _, step := range steps {
		if done[step.Id] {
			continue
		}
		blocked := false
		for _, dep := range step.DependsOn {
			if !done[dep] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, step)
		}
	}
	return ready
}

func errorResult(stepId string, attempt int, msg string) entity.StepResult {
	return entity.StepResult{
		StepId:        stepId,
		Status:        entity.StepError,
		AttemptNumber: attempt,
		Error:         msg,
	}
}

func isEmptyPayload(payload interface{}) bool {
	switch p := payload.(type) {
	case nil:
		return true
	case string:
		return p == ""
	case []interface{}:
		return len(p) == 0
	case []map[string]interface{}:
		return len(p) == 0
	case map[string]interface{}:
		return len(p) == 0
	}
	return false
}
