package resultcheck

import (
	"context"
	"fmt"
	"testing"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/capability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBaselines is an in-memory BaselineRepository.
type fakeBaselines struct {
	observations map[string][]float64 // "action/metric" -> values
}

func newFakeBaselines() *fakeBaselines {
	return &fakeBaselines{observations: map[string][]float64{}}
}

func (f *fakeBaselines) key(action, metric string) string {
	return fmt.Sprintf("%s/%s", action, metric)
}

func (f *fakeBaselines) Record(ctx context.Context, action, metric string, value float64) error {
	k := f.key(action, metric)
	f.observations[k] = append(f.observations[k], value)
	return nil
}

func (f *fakeBaselines) RecentAverage(ctx context.Context, action, metric string, window int) (float64, int, error) {
	values := f.observations[f.key(action, metric)]
	if len(values) == 0 {
		return 0, 0, nil
	}
	if window > 0 && len(values) > window {
		values = values[len(values)-window:]
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), len(values), nil
}

func testContract() *capability.Contract {
	return capability.New([]capability.Tool{
		{
			Action:         "query_sales_metrics",
			Connector:      "analytics",
			Metrics:        []string{"revenue"},
			ExpectNonEmpty: true,
			FallbackAction: "query_sales_metrics_replica",
		},
		{
			Action:    "query_sales_metrics_replica",
			Connector: "analytics",
			Metrics:   []string{"revenue"},
		},
	})
}

func rows(value float64) []map[string]interface{} {
	return []map[string]interface{}{{"metric": "revenue", "value": value}}
}

func planWith(action string) *entity.Plan {
	return &entity.Plan{
		Id: uuid.New(),
		Steps: []entity.Step{
			{Id: "s1", Action: action, Parameters: map[string]interface{}{}},
		},
	}
}

func successResult(payload interface{}) map[string]entity.StepResult {
	return map[string]entity.StepResult{
		"s1": {StepId: "s1", Status: entity.StepSuccess, Payload: payload, AttemptNumber: 1},
	}
}

func TestEmptyResultWhereNonEmptyExpected(t *testing.T) {
	policy := NewStatisticalPolicy(testContract(), newFakeBaselines(), 5.0, 20)

	results := map[string]entity.StepResult{
		"s1": {StepId: "s1", Status: entity.StepEmpty, AttemptNumber: 1},
	}

	verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), results)
	assert.False(t, verdict.OK)
	assert.Equal(t, "s1", verdict.AnomalousStepId)
}

func TestEmptyResultAllowedWhenNotExpected(t *testing.T) {
	policy := NewStatisticalPolicy(testContract(), newFakeBaselines(), 5.0, 20)

	results := map[string]entity.StepResult{
		"s1": {StepId: "s1", Status: entity.StepEmpty, AttemptNumber: 1},
	}

	verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics_replica"), results)
	assert.True(t, verdict.OK)
}

func TestMalformedAnalyticsPayload(t *testing.T) {
	policy := NewStatisticalPolicy(testContract(), newFakeBaselines(), 5.0, 20)

	verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), successResult("not a table"))
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "malformed")
}

func TestMagnitudeDeviationDetected(t *testing.T) {
	baselines := newFakeBaselines()
	for i := 0; i < 5; i++ {
		require.NoError(t, baselines.Record(context.Background(), "query_sales_metrics", "revenue", 100))
	}
	policy := NewStatisticalPolicy(testContract(), baselines, 5.0, 20)

	t.Run("within ratio passes", func(t *testing.T) {
		verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), successResult(rows(300)))
		assert.True(t, verdict.OK)
	})

	t.Run("spike flagged", func(t *testing.T) {
		verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), successResult(rows(5000)))
		assert.False(t, verdict.OK)
		assert.Contains(t, verdict.Reason, "deviates from baseline")
	})

	t.Run("collapse flagged", func(t *testing.T) {
		verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), successResult(rows(5)))
		assert.False(t, verdict.OK)
	})
}

func TestInsufficientBaselineCannotJudge(t *testing.T) {
	baselines := newFakeBaselines()
	require.NoError(t, baselines.Record(context.Background(), "query_sales_metrics", "revenue", 100))
	require.NoError(t, baselines.Record(context.Background(), "query_sales_metrics", "revenue", 100))
	policy := NewStatisticalPolicy(testContract(), baselines, 5.0, 20)

	// Two observations are below the minimum; the wild value passes.
	verdict := policy.Evaluate(context.Background(), planWith("query_sales_metrics"), successResult(rows(100000)))
	assert.True(t, verdict.OK)
}

func TestObserveRecordsCompletedMagnitudes(t *testing.T) {
	baselines := newFakeBaselines()
	policy := NewStatisticalPolicy(testContract(), baselines, 5.0, 20)

	policy.Observe(context.Background(), planWith("query_sales_metrics"), successResult(rows(250)))

	avg, count, err := baselines.RecentAverage(context.Background(), "query_sales_metrics", "revenue", 20)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 250.0, avg)
}

func TestFallbackStepSubstitution(t *testing.T) {
	contract := testContract()
	plan := planWith("query_sales_metrics")
	plan.Steps[0].Parameters = map[string]interface{}{"metrics": []string{"revenue"}}

	fallback, ok := FallbackStep(contract, plan, "s1")
	require.True(t, ok)
	assert.Equal(t, "query_sales_metrics_replica", fallback.Action)
	assert.Equal(t, "s1", fallback.Id)
	assert.Equal(t, plan.Steps[0].Parameters, fallback.Parameters)

	// The replica declares no fallback of its own.
	_, ok = FallbackStep(contract, planWith("query_sales_metrics_replica"), "s1")
	assert.False(t, ok)
}

func TestValidatorLogsAndReturnsVerdict(t *testing.T) {
	policy := NewStatisticalPolicy(testContract(), newFakeBaselines(), 5.0, 20)
	v := NewValidator(policy, logger.NewNop())

	verdict := v.Validate(context.Background(), planWith("query_sales_metrics"), successResult(rows(100)))
	assert.True(t, verdict.OK)
}
