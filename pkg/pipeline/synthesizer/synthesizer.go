package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/llm"
)

// Synthesizer shapes validated step results and bounded history into a
// grounded prompt and invokes the generation model. The evidence constraint
// lives here: the model is instructed to answer only from supplied evidence,
// and the prompt never contains anything beyond results + history.
type Synthesizer struct {
	llmProvider llm.Provider
	maxTokens   int
	tokenBudget int
	logger      logger.ILogger
}

func NewSynthesizer(llmProvider llm.Provider, maxTokens, historyTokenBudget int, log logger.ILogger) *Synthesizer {
	return &Synthesizer{
		llmProvider: llmProvider,
		maxTokens:   maxTokens,
		tokenBudget: historyTokenBudget,
		logger:      log,
	}
}

// Synthesize produces the final answer plus an estimated token usage.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	query string,
	intent entity.Intent,
	results map[string]entity.StepResult,
	history []entity.Exchange,
) (string, int, error) {

	prompt := s.buildPrompt(query, intent, results, history)

	answer, err := s.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return "", 0, fmt.Errorf("synthesis generation failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	usage := estimateTokens(prompt) + estimateTokens(answer)

	s.logger.Debug("synthesizer", "answer generated", map[string]interface{}{
		"token_usage": usage,
	})
	return answer, usage, nil
}

func (s *Synthesizer) buildPrompt(query string, intent entity.Intent, results map[string]entity.StepResult, history []entity.Exchange) string {
	var prompt strings.Builder

	prompt.WriteString("<system_role>\n")
	prompt.WriteString("You are a data assistant. You answer strictly from the evidence below.\n")
	prompt.WriteString("Every factual claim must come from a field in the evidence.\n")
	prompt.WriteString("If the evidence does not contain the answer, say that no data is available. Never invent values.\n")
	prompt.WriteString("</system_role>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<conversation_history>\n")
		for _, ex := range truncateHistory(history, s.tokenBudget) {
			prompt.WriteString(fmt.Sprintf("User: %s\n", ex.RequestSummary))
			prompt.WriteString(fmt.Sprintf("Assistant: %s\n", ex.AnswerSummary))
		}
		prompt.WriteString("</conversation_history>\n\n")
	}

	prompt.WriteString("<evidence>\n")
	if len(results) == 0 {
		prompt.WriteString("(no tool results; answer conversationally from history only, without factual claims)\n")
	}
	for stepId, result := range results {
		prompt.WriteString(fmt.Sprintf("<step id=%q status=%q>\n", stepId, result.Status))
		prompt.WriteString(renderPayload(result.Payload))
		prompt.WriteString("\n</step>\n")
	}
	prompt.WriteString("</evidence>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_question>\n\n")

	prompt.WriteString(fmt.Sprintf("Intent: %s. Answer concisely, citing the figures from the evidence.\n", intent.Category))

	return prompt.String()
}

// truncateHistory drops oldest exchanges until the remainder fits the
// active token budget.
func truncateHistory(history []entity.Exchange, budget int) []entity.Exchange {
	total := 0
	for _, ex := range history {
		total += estimateTokens(ex.RequestSummary) + estimateTokens(ex.AnswerSummary)
	}
	start := 0
	for total > budget && start < len(history)-1 {
		total -= estimateTokens(history[start].RequestSummary) + estimateTokens(history[start].AnswerSummary)
		start++
	}
	return history[start:]
}

func renderPayload(payload interface{}) string {
	switch rows := payload.(type) {
	case []map[string]interface{}:
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("%v\n", row))
		}
		return strings.TrimRight(b.String(), "\n")
	case nil:
		return "(empty)"
	default:
		return fmt.Sprintf("%v", payload)
	}
}

// estimateTokens approximates token count as word count * 4/3.
func estimateTokens(s string) int {
	return len(strings.Fields(s)) * 4 / 3
}
