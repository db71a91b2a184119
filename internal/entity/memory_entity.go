package entity

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is one completed request/answer pair kept in conversation memory.
type Exchange struct {
	RequestSummary string
	AnswerSummary  string
	CreatedAt      time.Time
}

// CachedAnswer is the exact-cache value: the full answer plus the metadata
// needed to replay it without re-running the pipeline.
type CachedAnswer struct {
	Answer        string                 `json:"answer"`
	Intent        IntentCategory         `json:"intent"`
	StepsExecuted int                    `json:"steps_executed"`
	TokenUsage    int                    `json:"token_usage"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

// CachedPlan is the similarity-cache value: a previously validated plan that
// a semantically close request may reuse. Steps always re-execute.
type CachedPlan struct {
	SourceRequestId uuid.UUID `json:"source_request_id"`
	NormalizedText  string    `json:"normalized_text"`
	Plan            Plan      `json:"plan"`
	Intent          Intent    `json:"intent"`
}
