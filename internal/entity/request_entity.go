package entity

import (
	"time"

	"github.com/google/uuid"
)

// Request is the immutable, normalized form of one inbound user query.
// Fingerprint is deterministic over (normalized text, routing profile, model id).
type Request struct {
	Id             uuid.UUID
	RawText        string
	NormalizedText string
	Fingerprint    string
	SessionId      uuid.UUID
	RoutingProfile string
	ModelId        string
	Timezone       string
	ReceivedAt     time.Time
}

type IntentCategory string

const (
	IntentAnalytics      IntentCategory = "ANALYTICS"
	IntentDocumentLookup IntentCategory = "DOCUMENT_LOOKUP"
	IntentGeneralChat    IntentCategory = "GENERAL_CHAT"
)

// Intent is the deterministic classification of a normalized request.
type Intent struct {
	Category   IntentCategory
	Confidence float64
}
