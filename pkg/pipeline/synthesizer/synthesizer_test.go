package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingLLM struct {
	prompt   string
	response string
	err      error
}

func (c *capturingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return c.response, c.err
}

func (c *capturingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	c.prompt = prompt
	return c.response, c.err
}

func analyticsIntent() entity.Intent {
	return entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9}
}

func TestSynthesizeGroundsPromptInEvidence(t *testing.T) {
	model := &capturingLLM{response: "Revenue was 1200."}
	s := NewSynthesizer(model, 1024, 2000, logger.NewNop())

	results := map[string]entity.StepResult{
		"s1": {
			StepId: "s1",
			Status: entity.StepSuccess,
			Payload: []map[string]interface{}{
				{"metric": "revenue", "value": 1200.0},
			},
		},
	}

	answer, usage, err := s.Synthesize(context.Background(), "total revenue last month", analyticsIntent(), results, nil)
	require.NoError(t, err)
	assert.Equal(t, "Revenue was 1200.", answer)
	assert.Positive(t, usage)

	assert.Contains(t, model.prompt, "revenue")
	assert.Contains(t, model.prompt, "1200")
	assert.Contains(t, model.prompt, "total revenue last month")
	assert.Contains(t, model.prompt, "Never invent values")
}

func TestSynthesizeIncludesHistory(t *testing.T) {
	model := &capturingLLM{response: "As before, 1200."}
	s := NewSynthesizer(model, 1024, 2000, logger.NewNop())

	history := []entity.Exchange{
		{RequestSummary: "total revenue last month", AnswerSummary: "Revenue was 1200.", CreatedAt: time.Now()},
	}

	_, _, err := s.Synthesize(context.Background(), "and the month before?", analyticsIntent(), nil, history)
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "Revenue was 1200.")
	assert.Contains(t, model.prompt, "<conversation_history>")
}

func TestSynthesizeTruncatesHistoryOldestFirst(t *testing.T) {
	model := &capturingLLM{response: "ok"}
	// Tiny budget: only the newest exchange fits.
	s := NewSynthesizer(model, 1024, 10, logger.NewNop())

	history := []entity.Exchange{
		{RequestSummary: "oldest question about revenue", AnswerSummary: "oldest answer entirely"},
		{RequestSummary: "newest question", AnswerSummary: "newest answer"},
	}

	_, _, err := s.Synthesize(context.Background(), "follow up", analyticsIntent(), nil, history)
	require.NoError(t, err)
	assert.NotContains(t, model.prompt, "oldest question")
	assert.Contains(t, model.prompt, "newest question")
}

func TestSynthesizeModelFailure(t *testing.T) {
	model := &capturingLLM{err: errors.New("model unavailable")}
	s := NewSynthesizer(model, 1024, 2000, logger.NewNop())

	_, _, err := s.Synthesize(context.Background(), "anything", analyticsIntent(), nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "synthesis generation failed"))
}

func TestSynthesizeWithoutResultsStaysConversational(t *testing.T) {
	model := &capturingLLM{response: "I can answer questions about your data."}
	s := NewSynthesizer(model, 1024, 2000, logger.NewNop())

	_, _, err := s.Synthesize(context.Background(), "what can you do", entity.Intent{Category: entity.IntentGeneralChat}, map[string]entity.StepResult{}, nil)
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "no tool results")
}
