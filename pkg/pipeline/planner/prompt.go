package planner

import (
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/capability"
)

// composePlannerPrompt describes only the declared capability contract to
// the model. Nothing outside the contract is ever offered as an action.
func composePlannerPrompt(contract *capability.Contract, intent entity.Intent, query string, history []entity.Exchange) string {
	var prompt strings.Builder

	prompt.WriteString("<system_role>\n")
	prompt.WriteString("You are a query planner for a data assistant.\n")
	prompt.WriteString("You decompose one user request into tool steps forming a dependency graph.\n")
	prompt.WriteString("You may ONLY use the declared tools, metrics and dimensions below.\n")
	prompt.WriteString("</system_role>\n\n")

	prompt.WriteString("<available_tools>\n")
	for _, tool := range contract.Tools {
		prompt.WriteString(fmt.Sprintf("<tool action=%q>\n", tool.Action))
		if len(tool.Metrics) > 0 {
			prompt.WriteString("  metrics: " + strings.Join(tool.Metrics, ", ") + "\n")
		}
		if len(tool.Dimensions) > 0 {
			prompt.WriteString("  dimensions: " + strings.Join(tool.Dimensions, ", ") + "\n")
		}
		prompt.WriteString(fmt.Sprintf("  max result rows: %d\n", tool.MaxLimit))
		prompt.WriteString("</tool>\n")
	}
	prompt.WriteString("</available_tools>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<recent_conversation>\n")
		window := len(history)
		if window > 3 {
			window = 3
		}
		for _, ex := range history[len(history)-window:] {
			prompt.WriteString(fmt.Sprintf("User asked: %q\n", ex.RequestSummary))
			prompt.WriteString(fmt.Sprintf("Assistant answered: %q\n", ex.AnswerSummary))
		}
		prompt.WriteString("</recent_conversation>\n\n")
	}

	prompt.WriteString("<user_request>\n")
	prompt.WriteString(fmt.Sprintf("intent: %s\n", intent.Category))
	prompt.WriteString(query)
	prompt.WriteString("\n</user_request>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON in this exact structure:\n\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"steps\": [\n")
	prompt.WriteString("    {\n")
	prompt.WriteString("      \"id\": \"s1\",\n")
	prompt.WriteString("      \"action\": \"tool action name\",\n")
	prompt.WriteString("      \"parameters\": {\"metrics\": [\"...\"], \"dimensions\": [\"...\"], \"filters\": {}},\n")
	prompt.WriteString("      \"depends_on\": []\n")
	prompt.WriteString("    }\n")
	prompt.WriteString("  ]\n")
	prompt.WriteString("}\n\n")
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Every step id must be unique.\n")
	prompt.WriteString("- depends_on may only reference earlier step ids; no cycles.\n")
	prompt.WriteString("- Use the smallest number of steps that answers the request.\n")
	prompt.WriteString("IMPORTANT: Output ONLY the JSON. No preamble, no explanation outside the JSON.\n")
	prompt.WriteString("</output_format>\n")

	return prompt.String()
}
