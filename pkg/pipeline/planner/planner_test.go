package planner

import (
	"context"
	"errors"
	"testing"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
	called   bool
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.called = true
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.called = true
	return f.response, f.err
}

func testContract() *capability.Contract {
	return capability.New([]capability.Tool{
		{
			Action:     "query_sales_metrics",
			Connector:  "analytics",
			Metrics:    []string{"revenue", "orders"},
			Dimensions: []string{"region", "segment"},
			MaxLimit:   1000,
		},
		{
			Action:    "search_documents",
			Connector: "document",
			MaxLimit:  50,
		},
	})
}

func TestTemplatePlanForSimpleAnalytics(t *testing.T) {
	model := &fakeLLM{}
	p := NewPlanner(model, testContract(), 512, logger.NewNop())

	intent := entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9}
	plan, err := p.Plan(context.Background(), intent, "total revenue from 2025-01-01 to 2025-02-01", nil)

	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "query_sales_metrics", plan.Steps[0].Action)
	assert.Equal(t, []string{"revenue"}, plan.Steps[0].Parameters["metrics"])
	assert.Equal(t, "2025-01-01T00:00:00Z", plan.Steps[0].Parameters["from"])
	assert.Equal(t, entity.ComplexitySimple, plan.Complexity)
	assert.False(t, model.called, "template plans must not call the model")
}

func TestTemplatePlanForGeneralChat(t *testing.T) {
	model := &fakeLLM{}
	p := NewPlanner(model, testContract(), 512, logger.NewNop())

	intent := entity.Intent{Category: entity.IntentGeneralChat}
	plan, err := p.Plan(context.Background(), intent, "hello there", nil)

	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.False(t, model.called)
}

func TestComplexRequestUsesModel(t *testing.T) {
	model := &fakeLLM{response: `{"steps":[
		{"id":"s1","action":"query_sales_metrics","parameters":{"metrics":["revenue"]}},
		{"id":"s2","action":"query_sales_metrics","parameters":{"metrics":["orders"]},"depends_on":["s1"]}
	]}`}
	p := NewPlanner(model, testContract(), 512, logger.NewNop())

	intent := entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9}
	plan, err := p.Plan(context.Background(), intent, "compare revenue versus orders per region", nil)

	require.NoError(t, err)
	assert.True(t, model.called)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, []string{"s1"}, plan.Steps[1].DependsOn)
	assert.Equal(t, entity.ComplexityComplex, plan.Complexity)
}

func TestModelResponseWithSurroundingProse(t *testing.T) {
	model := &fakeLLM{response: "Sure, here is the plan:\n" +
		`{"steps":[{"id":"s1","action":"search_documents","parameters":{"query":"refund policy"}}]}` +
		"\nLet me know if you need anything else."}
	p := NewPlanner(model, testContract(), 512, logger.NewNop())

	intent := entity.Intent{Category: entity.IntentDocumentLookup, Confidence: 0.8}
	plan, err := p.Plan(context.Background(), intent, "compare the refund policy versus the returns policy", nil)

	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "search_documents", plan.Steps[0].Action)
}

func TestMalformedModelOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I cannot produce a plan for that."},
		{name: "empty steps", response: `{"steps":[]}`},
		{name: "missing action", response: `{"steps":[{"id":"s1"}]}`},
		{name: "duplicate ids", response: `{"steps":[{"id":"s1","action":"a"},{"id":"s1","action":"b"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeLLM{response: tt.response}
			p := NewPlanner(model, testContract(), 512, logger.NewNop())

			intent := entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9}
			_, err := p.Plan(context.Background(), intent, "compare revenue versus orders", nil)

			assert.ErrorIs(t, err, ErrPlanParse)
		})
	}
}

func TestModelFailurePropagates(t *testing.T) {
	model := &fakeLLM{err: errors.New("connection refused")}
	p := NewPlanner(model, testContract(), 512, logger.NewNop())

	intent := entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9}
	_, err := p.Plan(context.Background(), intent, "compare revenue versus orders", nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPlanParse)
}
