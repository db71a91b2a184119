package router

import (
	"testing"

	"ai-orchestrator-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entity.IntentCategory
	}{
		{
			name: "revenue question is analytics",
			text: "total revenue from 2025-01-01 to 2025-02-01",
			want: entity.IntentAnalytics,
		},
		{
			name: "how many is analytics",
			text: "how many orders did we get per region",
			want: entity.IntentAnalytics,
		},
		{
			name: "find document is lookup",
			text: "find the onboarding policy document",
			want: entity.IntentDocumentLookup,
		},
		{
			name: "show me is lookup",
			text: "show me the security manual",
			want: entity.IntentDocumentLookup,
		},
		{
			name: "greeting is general chat",
			text: "hello there, what can you do",
			want: entity.IntentGeneralChat,
		},
		{
			name: "analytics wins ties with documents",
			text: "find the total sales report breakdown per region",
			want: entity.IntentAnalytics,
		},
	}

	r := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Classify(tt.text)
			assert.Equal(t, tt.want, got.Category)
		})
	}
}

func TestClassifyConfidence(t *testing.T) {
	r := NewRouter()

	chat := r.Classify("good morning")
	assert.Equal(t, entity.IntentGeneralChat, chat.Category)
	assert.Zero(t, chat.Confidence)

	analytics := r.Classify("total revenue trend per region from 2025-01-01 to 2025-02-01")
	assert.Greater(t, analytics.Confidence, 0.5)
	assert.LessOrEqual(t, analytics.Confidence, 1.0)
}
