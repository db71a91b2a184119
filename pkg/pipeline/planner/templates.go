package planner

import (
	"regexp"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/capability"

	"github.com/google/uuid"
)

var dateRangePattern = regexp.MustCompile(`from (\d{4}-\d{2}-\d{2}) to (\d{4}-\d{2}-\d{2})`)

// multi-step phrasing that templates cannot express
var complexPhrases = []string{"compare", "versus", " vs ", "and then", "break down", "breakdown by", "correlate"}

// templatePlan builds a deterministic plan without any model call, or
// returns nil when the request needs the LLM planner.
func templatePlan(intent entity.Intent, normalizedText string, contract *capability.Contract) *entity.Plan {
	for _, phrase := range complexPhrases {
		if strings.Contains(normalizedText, phrase) {
			return nil
		}
	}

	switch intent.Category {
	case entity.IntentAnalytics:
		return analyticsTemplate(normalizedText, contract)
	case entity.IntentDocumentLookup:
		return documentTemplate(normalizedText, contract)
	case entity.IntentGeneralChat:
		// Chat answers come from history alone; nothing to execute.
		return &entity.Plan{
			Id:         uuid.New(),
			Complexity: entity.ComplexitySimple,
			Steps:      nil,
		}
	}
	return nil
}

func analyticsTemplate(text string, contract *capability.Contract) *entity.Plan {
	tool, metrics := matchAnalyticsTool(text, contract)
	if tool == nil || len(metrics) == 0 {
		return nil
	}

	params := map[string]interface{}{
		"metrics": metrics,
	}
	if m := dateRangePattern.FindStringSubmatch(text); m != nil {
		params["from"] = m[1] + "T00:00:00Z"
		params["to"] = m[2] + "T00:00:00Z"
	}

	return &entity.Plan{
		Id:         uuid.New(),
		Complexity: entity.ComplexitySimple,
		Steps: []entity.Step{
			{
				Id:         "s1",
				Action:     tool.Action,
				Parameters: params,
			},
		},
	}
}

// matchAnalyticsTool picks the analytics tool whose declared metrics appear
// in the text. Ambiguity across tools falls through to the LLM planner.
func matchAnalyticsTool(text string, contract *capability.Contract) (*capability.Tool, []string) {
	var matched *capability.Tool
	var metrics []string

	for i := range contract.Tools {
		tool := &contract.Tools[i]
		if tool.Connector != "analytics" {
			continue
		}
		var hits []string
		for _, m := range tool.Metrics {
			if strings.Contains(text, strings.ReplaceAll(m, "_", " ")) || strings.Contains(text, m) {
				hits = append(hits, m)
			}
		}
		if len(hits) > 0 {
			if matched != nil {
				return nil, nil
			}
			matched = tool
			metrics = hits
		}
	}
	return matched, metrics
}

func documentTemplate(text string, contract *capability.Contract) *entity.Plan {
	var tool *capability.Tool
	for i := range contract.Tools {
		if contract.Tools[i].Connector == "document" {
			if tool != nil {
				return nil
			}
			tool = &contract.Tools[i]
		}
	}
	if tool == nil {
		return nil
	}

	return &entity.Plan{
		Id:         uuid.New(),
		Complexity: entity.ComplexitySimple,
		Steps: []entity.Step{
			{
				Id:     "s1",
				Action: tool.Action,
				Parameters: map[string]interface{}{
					"query": stripSearchVerbs(text),
				},
			},
		},
	}
}

var searchVerbPrefixes = []string{"find ", "search for ", "search ", "look up ", "lookup ", "locate ", "show me "}

func stripSearchVerbs(text string) string {
	for _, prefix := range searchVerbPrefixes {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return text
}
