package router

import (
	"regexp"
	"strings"

	"ai-orchestrator-be/internal/entity"
)

// Router is the deterministic rule-based intent classifier. No model call:
// classification is keyword scoring over the normalized text, sub-millisecond
// by construction.
type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

var analyticsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(sales|revenue|orders|profit|margin|conversion)\b`),
	regexp.MustCompile(`\b(total|sum|average|avg|count|how (many|much))\b`),
	regexp.MustCompile(`\b(trend|growth|compare|breakdown|per (region|segment|month))\b`),
	regexp.MustCompile(`\bfrom \d{4}-\d{2}-\d{2} to \d{4}-\d{2}-\d{2}\b`),
}

var documentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(find|search|look ?up|locate)\b`),
	regexp.MustCompile(`\b(document|doc|note|report|policy|contract|spec|manual)\b`),
	regexp.MustCompile(`\bwhere (is|can i find)\b`),
	regexp.MustCompile(`\bshow me\b`),
}

// Classify scores the normalized text against each category's rule set.
// Unclassifiable input defaults to GeneralChat with confidence 0.
func (r *Router) Classify(normalizedText string) entity.Intent {
	text := strings.ToLower(normalizedText)

	analyticsHits := countHits(analyticsPatterns, text)
	documentHits := countHits(documentPatterns, text)

	switch {
	case analyticsHits > 0 && analyticsHits >= documentHits:
		return entity.Intent{
			Category:   entity.IntentAnalytics,
			Confidence: confidence(analyticsHits, len(analyticsPatterns)),
		}
	case documentHits > 0:
		return entity.Intent{
			Category:   entity.IntentDocumentLookup,
			Confidence: confidence(documentHits, len(documentPatterns)),
		}
	default:
		return entity.Intent{Category: entity.IntentGeneralChat, Confidence: 0}
	}
}

func countHits(patterns []*regexp.Regexp, text string) int {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			hits++
		}
	}
	return hits
}

func confidence(hits, total int) float64 {
	c := 0.5 + 0.5*float64(hits)/float64(total)
	if c > 1 {
		c = 1
	}
	return c
}
