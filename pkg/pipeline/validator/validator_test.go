package validator

import (
	"testing"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/capability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContract() *capability.Contract {
	return capability.New([]capability.Tool{
		{
			Action:     "query_sales_metrics",
			Connector:  "analytics",
			Metrics:    []string{"revenue", "orders"},
			Dimensions: []string{"region", "segment"},
			MandatoryFilters: []capability.Filter{
				{Field: "org_id", Value: "org-42"},
			},
			DeniedFields: []string{"customer_email"},
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
		{
			Action:    "search_documents",
			Connector: "document",
			MaxLimit:  50,
		},
	})
}

func planOf(steps ...entity.Step) *entity.Plan {
	return &entity.Plan{Id: uuid.New(), Complexity: entity.ComplexitySimple, Steps: steps}
}

func TestValidPlanPasses(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "query_sales_metrics",
		Parameters: map[string]interface{}{
			"metrics":    []string{"revenue"},
			"dimensions": []string{"region"},
		},
	})

	validated, err := v.Validate(plan)
	require.NoError(t, err)
	require.Len(t, validated.Steps, 1)
}

func TestUnknownActionRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{Id: "s1", Action: "drop_all_tables", Parameters: map[string]interface{}{}})

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Violations[0], "not an allowed capability")
}

func TestUnknownMetricRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "query_sales_metrics",
		Parameters: map[string]interface{}{
			"metrics": []string{"revenue", "salary"},
		},
	})

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Violations[0], `unknown metric "salary"`)
}

func TestDeniedFieldRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "query_sales_metrics",
		Parameters: map[string]interface{}{
			"metrics": []string{"revenue"},
			"filters": map[string]interface{}{"customer_email": "a@b.com"},
		},
	})

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Violations[0], `filter field "customer_email" is denied`)
}

func TestMandatoryFilterInjected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "query_sales_metrics",
		Parameters: map[string]interface{}{
			"metrics": []string{"revenue"},
		},
	})

	validated, err := v.Validate(plan)
	require.NoError(t, err)

	filters := validated.Steps[0].Parameters["filters"].(map[string]interface{})
	assert.Equal(t, "org-42", filters["org_id"])

	// Input plan untouched.
	assert.Nil(t, plan.Steps[0].Parameters["filters"])
}

func TestMandatoryFilterMismatchRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "query_sales_metrics",
		Parameters: map[string]interface{}{
			"metrics": []string{"revenue"},
			"filters": map[string]interface{}{"org_id": "org-99"},
		},
	})

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Error(), "mandatory filter org_id")
}

func TestLimitHandling(t *testing.T) {
	v := NewValidator(testContract())

	t.Run("default injected", func(t *testing.T) {
		plan := planOf(entity.Step{
			Id:     "s1",
			Action: "query_sales_metrics",
			Parameters: map[string]interface{}{
				"metrics": []string{"revenue"},
			},
		})

		validated, err := v.Validate(plan)
		require.NoError(t, err)
		assert.Equal(t, 100, validated.Steps[0].Parameters["limit"])
	})

	t.Run("over maximum rejected", func(t *testing.T) {
		plan := planOf(entity.Step{
			Id:     "s1",
			Action: "query_sales_metrics",
			Parameters: map[string]interface{}{
				"metrics": []string{"revenue"},
				"limit":   5000,
			},
		})

		_, err := v.Validate(plan)
		var rejection *Rejection
		require.ErrorAs(t, err, &rejection)
		assert.Contains(t, rejection.Violations[0], "limit 5000 exceeds maximum 1000")
	})
}

func TestUnknownDependencyRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(entity.Step{
		Id:     "s1",
		Action: "search_documents",
		Parameters: map[string]interface{}{
			"query": "policy",
		},
		DependsOn: []string{"ghost"},
	})

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Violations[0], `depends on unknown step "ghost"`)
}

func TestDependencyCycleRejected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(
		entity.Step{Id: "s1", Action: "search_documents", Parameters: map[string]interface{}{"query": "a"}, DependsOn: []string{"s2"}},
		entity.Step{Id: "s2", Action: "search_documents", Parameters: map[string]interface{}{"query": "b"}, DependsOn: []string{"s1"}},
	)

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Error(), "dependency cycle")
}

func TestAllViolationsCollected(t *testing.T) {
	v := NewValidator(testContract())

	plan := planOf(
		entity.Step{Id: "s1", Action: "unknown_action", Parameters: map[string]interface{}{}},
		entity.Step{Id: "s2", Action: "query_sales_metrics", Parameters: map[string]interface{}{
			"metrics": []string{"salary"},
			"limit":   9999,
		}},
	)

	_, err := v.Validate(plan)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Len(t, rejection.Violations, 3)
}
