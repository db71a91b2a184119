package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/cache"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/events"
	"ai-orchestrator-be/pkg/memorystore"
	"ai-orchestrator-be/pkg/pipeline/executor"
	"ai-orchestrator-be/pkg/pipeline/normalize"
	"ai-orchestrator-be/pkg/pipeline/planner"
	"ai-orchestrator-be/pkg/pipeline/resultcheck"
	"ai-orchestrator-be/pkg/pipeline/router"
	"ai-orchestrator-be/pkg/pipeline/synthesizer"
	"ai-orchestrator-be/pkg/pipeline/validator"
)

// BaselineObserver records completed-request magnitudes so future anomaly
// checks have history to compare against.
type BaselineObserver interface {
	Observe(ctx context.Context, plan *entity.Plan, results map[string]entity.StepResult)
}

// EventPublisher receives one event per stage transition. Publish failures
// are logged and ignored; observability never fails a request.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Orchestrator drives one request through the stage machine. It owns the
// ExecutionState exclusively; stage components never see it. Every transition
// emits one event before the next stage runs.
type Orchestrator struct {
	normalizer      *normalize.Normalizer
	exactCache      cache.ExactStore
	similarityCache *cache.SimilarityStore
	router          *router.Router
	planner         *planner.Planner
	validator       *validator.Validator
	executor        *executor.Executor
	resultChecker   *resultcheck.Validator
	synthesizer     *synthesizer.Synthesizer
	memory          *memorystore.Store
	contract        *capability.Contract
	publisher       EventPublisher
	observer        BaselineObserver
	exactTTL        time.Duration
	logger          logger.ILogger
}

type OrchestratorDeps struct {
	Normalizer      *normalize.Normalizer
	ExactCache      cache.ExactStore
	SimilarityCache *cache.SimilarityStore
	Router          *router.Router
	Planner         *planner.Planner
	Validator       *validator.Validator
	Executor        *executor.Executor
	ResultChecker   *resultcheck.Validator
	Synthesizer     *synthesizer.Synthesizer
	Memory          *memorystore.Store
	Contract        *capability.Contract
	Publisher       EventPublisher
	Observer        BaselineObserver
	ExactTTL        time.Duration
	Logger          logger.ILogger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		normalizer:      deps.Normalizer,
		exactCache:      deps.ExactCache,
		similarityCache: deps.SimilarityCache,
		router:          deps.Router,
		planner:         deps.Planner,
		validator:       deps.Validator,
		executor:        deps.Executor,
		resultChecker:   deps.ResultChecker,
		synthesizer:     deps.Synthesizer,
		memory:          deps.Memory,
		contract:        deps.Contract,
		publisher:       deps.Publisher,
		observer:        deps.Observer,
		exactTTL:        deps.ExactTTL,
		logger:          deps.Logger,
	}
}

// run carries the per-request working set the stages hand forward.
type run struct {
	req     *entity.Request
	state   *ExecutionState
	intent  entity.Intent
	plan    *entity.Plan
	results map[string]entity.StepResult
	history []entity.Exchange

	answer         string
	tokenUsage     int
	retries        int
	cacheHit       bool
	fromSimilarity bool
}

// Process runs the full pipeline for one request and always returns an
// Outcome: an answer with metadata, or a failure with stage and cause.
func (o *Orchestrator) Process(ctx context.Context, req *entity.Request) *Outcome {
	r := &run{
		req:     req,
		state:   newExecutionState(req.Id),
		history: o.memory.Read(req.SessionId),
	}

	// Normalize.
	req.NormalizedText, req.Fingerprint = o.normalizer.Normalize(
		req.RawText, req.RoutingProfile, req.ModelId, req.Timezone, req.ReceivedAt,
	)
	o.advance(ctx, r, StageNormalized)

	if cause, ok := contextCause(ctx); ok {
		return o.fail(ctx, r, StageCacheChecked, cause)
	}

	// Cache check: exact first, then similarity.
	if cached := o.checkExactCache(ctx, r); cached != nil {
		o.advance(ctx, r, StageCacheChecked)
		return o.completeFromCache(ctx, r, cached)
	}
	o.checkSimilarityCache(ctx, r)
	o.advance(ctx, r, StageCacheChecked)

	if r.plan == nil {
		// Miss on both tiers: classify and plan from scratch.
		r.intent = o.router.Classify(req.NormalizedText)
		o.advance(ctx, r, StageRouted)

		if cause, ok := contextCause(ctx); ok {
			return o.fail(ctx, r, StagePlanned, cause)
		}

		plan, err := o.planner.Plan(ctx, r.intent, req.NormalizedText, r.history)
		if err != nil {
			if cause, ok := contextCause(ctx); ok {
				return o.fail(ctx, r, StagePlanned, cause)
			}
			// Generation failures and malformed output both surface as a
			// plan that could not be produced.
			return o.fail(ctx, r, StagePlanned, CausePlanParseError)
		}
		r.plan = plan
		o.advance(ctx, r, StagePlanned)
	}

	// Validate. Similarity-reused plans re-validate against the current
	// contract; a stale cached plan must not bypass the gate.
	validated, err := o.validator.Validate(r.plan)
	if err != nil {
		var rejection *validator.Rejection
		if errors.As(err, &rejection) {
			o.logger.Warn("pipeline", "plan rejected", map[string]interface{}{
				"request_id": req.Id.String(),
				"violations": rejection.Violations,
			})
		}
		return o.fail(ctx, r, StageValidated, CausePlanRejected)
	}
	r.plan = validated
	o.advance(ctx, r, StageValidated)

	// Execute.
	if len(r.plan.Steps) > 0 {
		execResult, err := o.executor.Execute(ctx, r.plan)
		if execResult != nil {
			r.results = execResult.Results
			r.retries = execResult.Retries
		}
		if err != nil {
			return o.fail(ctx, r, StageExecuted, executionCause(ctx, err))
		}
	} else {
		r.results = map[string]entity.StepResult{}
	}
	o.advance(ctx, r, StageExecuted)

	// Result validation with at most one fallback re-execution.
	if !o.checkResults(ctx, r) {
		return o.fail(ctx, r, StageResultValidated, CauseResultAnomalous)
	}
	o.advance(ctx, r, StageResultValidated)

	// Synthesize.
	answer, usage, err := o.synthesizer.Synthesize(ctx, req.NormalizedText, r.intent, r.results, r.history)
	if err != nil {
		if cause, ok := contextCause(ctx); ok {
			return o.fail(ctx, r, StageSynthesized, cause)
		}
		return o.fail(ctx, r, StageSynthesized, CauseSynthesisError)
	}
	r.answer = answer
	r.tokenUsage = usage
	o.advance(ctx, r, StageSynthesized)

	// Memory update.
	o.memory.Append(req.SessionId, entity.Exchange{
		RequestSummary: summarize(req.NormalizedText),
		AnswerSummary:  summarize(answer),
		CreatedAt:      time.Now(),
	})
	o.advance(ctx, r, StageMemoryUpdated)

	o.advance(ctx, r, StageCompleted)
	o.afterCompleted(ctx, r)

	return o.outcome(r)
}

// checkExactCache returns the cached answer on a hit. Cache errors degrade
// to a miss; the cache is an optimization, never a dependency.
func (o *Orchestrator) checkExactCache(ctx context.Context, r *run) *entity.CachedAnswer {
	cached, found, err := o.exactCache.Get(ctx, r.req.Fingerprint)
	if err != nil {
		o.logger.Warn("pipeline", "exact cache lookup failed, treating as miss", map[string]interface{}{
			"request_id": r.req.Id.String(),
			"error":      err.Error(),
		})
		return nil
	}
	if !found {
		return nil
	}
	return cached
}

// checkSimilarityCache reuses a semantically close validated plan. The plan
// still passes the validator and steps re-execute; only planning is skipped.
func (o *Orchestrator) checkSimilarityCache(ctx context.Context, r *run) {
	if o.similarityCache == nil {
		return
	}
	cached, similarity, err := o.similarityCache.Lookup(ctx, r.req.NormalizedText, r.req.RoutingProfile)
	if err != nil {
		o.logger.Warn("pipeline", "similarity lookup failed, treating as miss", map[string]interface{}{
			"request_id": r.req.Id.String(),
			"error":      err.Error(),
		})
		return
	}
	if cached == nil {
		return
	}

	o.logger.Info("pipeline", "similarity cache hit, reusing plan", map[string]interface{}{
		"request_id": r.req.Id.String(),
		"source":     cached.SourceRequestId.String(),
		"similarity": similarity,
	})
	plan := cached.Plan
	r.plan = &plan
	r.intent = cached.Intent
	r.cacheHit = true
	r.fromSimilarity = true
}

// completeFromCache replays a cached answer: the pipeline jumps straight to
// Synthesized, then updates memory and completes. No cache writes happen.
func (o *Orchestrator) completeFromCache(ctx context.Context, r *run, cached *entity.CachedAnswer) *Outcome {
	r.cacheHit = true
	r.intent = entity.Intent{Category: cached.Intent, Confidence: 1.0}
	r.answer = cached.Answer
	r.tokenUsage = cached.TokenUsage

	o.advance(ctx, r, StageSynthesized)

	o.memory.Append(r.req.SessionId, entity.Exchange{
		RequestSummary: summarize(r.req.NormalizedText),
		AnswerSummary:  summarize(cached.Answer),
		CreatedAt:      time.Now(),
	})
	o.advance(ctx, r, StageMemoryUpdated)

	o.advance(ctx, r, StageCompleted)

	out := o.outcome(r)
	out.Metadata.StepsExecuted = cached.StepsExecuted
	return out
}

// checkResults applies the anomaly policy and, on a not-OK verdict, runs the
// contract's fallback action exactly once at attempt 2. Returns false when
// the result is still anomalous.
func (o *Orchestrator) checkResults(ctx context.Context, r *run) bool {
	verdict := o.resultChecker.Validate(ctx, r.plan, r.results)
	if verdict.OK {
		return true
	}

	fallback, ok := resultcheck.FallbackStep(o.contract, r.plan, verdict.AnomalousStepId)
	if !ok {
		return false
	}

	o.logger.Info("pipeline", "re-executing anomalous step via fallback", map[string]interface{}{
		"request_id": r.req.Id.String(),
		"step":       verdict.AnomalousStepId,
		"fallback":   fallback.Action,
	})

	// The fallback re-execution is itself a retry; a transport retry inside
	// it counts on top.
	result, retried, err := o.executor.RunStep(ctx, fallback, 2)
	r.retries++
	if retried {
		r.retries++
	}
	if err != nil {
		return false
	}
	r.results[fallback.Id] = result

	// Re-judge with the fallback action in place of the original.
	r.plan = substituteStep(r.plan, fallback)
	return o.resultChecker.Validate(ctx, r.plan, r.results).OK
}

// afterCompleted performs the post-terminal writes: answer cache, plan cache,
// baseline observations. All best-effort; the response is already decided.
func (o *Orchestrator) afterCompleted(ctx context.Context, r *run) {
	cached := &entity.CachedAnswer{
		Answer:        r.answer,
		Intent:        r.intent.Category,
		StepsExecuted: len(r.results),
		TokenUsage:    r.tokenUsage,
	}
	if err := o.exactCache.Set(ctx, r.req.Fingerprint, cached, o.exactTTL); err != nil {
		o.logger.Warn("pipeline", "exact cache write failed", map[string]interface{}{
			"request_id": r.req.Id.String(),
			"error":      err.Error(),
		})
	}

	if o.similarityCache != nil && !r.fromSimilarity && len(r.plan.Steps) > 0 {
		entry := &entity.CachedPlan{
			SourceRequestId: r.req.Id,
			NormalizedText:  r.req.NormalizedText,
			Plan:            *r.plan,
			Intent:          r.intent,
		}
		if err := o.similarityCache.Append(ctx, r.req, entry); err != nil {
			o.logger.Warn("pipeline", "plan cache write failed", map[string]interface{}{
				"request_id": r.req.Id.String(),
				"error":      err.Error(),
			})
		}
	}

	if o.observer != nil && len(r.results) > 0 {
		o.observer.Observe(ctx, r.plan, r.results)
	}
}

// advance moves the state machine forward and emits the transition event.
func (o *Orchestrator) advance(ctx context.Context, r *run, next Stage) {
	visit := r.state.advance(next)

	var event events.Event
	switch next {
	case StageCompleted:
		event = events.NewCompletedEvent(r.req.Id.String(), r.cacheHit, len(r.results), r.retries)
	default:
		event = events.NewStageEvent(r.req.Id.String(), string(visit.Stage), visit.Duration)
	}
	o.publish(ctx, r, event)
}

func (o *Orchestrator) fail(ctx context.Context, r *run, failedStage Stage, cause FailureCause) *Outcome {
	r.state.advance(StageFailed)

	o.logger.Error("pipeline", "request failed", map[string]interface{}{
		"request_id": r.req.Id.String(),
		"stage":      string(failedStage),
		"cause":      string(cause),
	})
	o.publish(ctx, r, events.NewFailedEvent(r.req.Id.String(), string(failedStage), string(cause)))

	out := o.outcome(r)
	out.Answer = UserMessage(cause)
	out.Failure = &Failure{Stage: failedStage, Cause: cause}
	return out
}

func (o *Orchestrator) publish(ctx context.Context, r *run, event events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("pipeline", "event publish failed", map[string]interface{}{
			"request_id": r.req.Id.String(),
			"event":      event.EventType(),
			"error":      err.Error(),
		})
	}
}

func (o *Orchestrator) outcome(r *run) *Outcome {
	stages := make([]StageLatency, 0, len(r.state.History))
	for _, visit := range r.state.History {
		stages = append(stages, StageLatency{
			Name:       string(visit.Stage),
			DurationMs: visit.Duration.Milliseconds(),
		})
	}
	return &Outcome{
		Answer: r.answer,
		Metadata: Metadata{
			Intent:        r.intent.Category,
			CacheHit:      r.cacheHit,
			Stages:        stages,
			TokenUsage:    r.tokenUsage,
			StepsExecuted: len(r.results),
			Retries:       r.retries,
		},
	}
}

// executionCause maps executor errors onto the failure taxonomy.
func executionCause(ctx context.Context, err error) FailureCause {
	if cause, ok := contextCause(ctx); ok {
		return cause
	}
	if errors.Is(err, executor.ErrStepTimeout) {
		return CauseStepTimeout
	}
	return CauseStepTransportError
}

// contextCause reports caller cancellation or the overall deadline.
func contextCause(ctx context.Context) (FailureCause, bool) {
	switch ctx.Err() {
	case context.Canceled:
		return CauseCancelled, true
	case context.DeadlineExceeded:
		return CauseDeadlineExceeded, true
	}
	return "", false
}

func substituteStep(plan *entity.Plan, replacement entity.Step) *entity.Plan {
	out := &entity.Plan{
		Id:         plan.Id,
		Complexity: plan.Complexity,
		Steps:      make([]entity.Step, len(plan.Steps)),
	}
	for i, step := range plan.Steps {
		if step.Id == replacement.Id {
			replacement.DependsOn = step.DependsOn
			out.Steps[i] = replacement
			continue
		}
		out.Steps[i] = step
	}
	return out
}

const summaryMaxWords = 60

// summarize keeps memory entries small without an extra model call.
func summarize(text string) string {
	words := strings.Fields(text)
	if len(words) <= summaryMaxWords {
		return text
	}
	return strings.Join(words[:summaryMaxWords], " ") + " ..."
}
