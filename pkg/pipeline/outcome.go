package pipeline

import (
	"ai-orchestrator-be/internal/entity"
)

// FailureCause is the closed error taxonomy surfaced on Failed outcomes.
type FailureCause string

const (
	CausePlanParseError     FailureCause = "plan_parse_error"
	CausePlanRejected       FailureCause = "plan_rejected"
	CauseStepTransportError FailureCause = "step_transport_error"
	CauseStepTimeout        FailureCause = "step_timeout"
	CauseResultAnomalous    FailureCause = "result_anomalous"
	CauseSynthesisError     FailureCause = "synthesis_error"
	CauseCancelled          FailureCause = "cancelled"
	CauseDeadlineExceeded   FailureCause = "deadline_exceeded"
)

// userMessages maps causes to the user-visible text. Raw internal error
// strings never reach the caller.
var userMessages = map[FailureCause]string{
	CausePlanParseError:     "Sorry, the request could not be turned into a query plan. Please rephrase it.",
	CausePlanRejected:       "The request references data outside the allowed scope.",
	CauseStepTransportError: "A data source did not respond. Please try again shortly.",
	CauseStepTimeout:        "A data source took too long to respond. Please try again shortly.",
	CauseResultAnomalous:    "No reliable data is available for the requested scope.",
	CauseSynthesisError:     "Sorry, an answer could not be generated. Please try again.",
	CauseCancelled:          "The request was cancelled.",
	CauseDeadlineExceeded:   "The request took too long and was aborted.",
}

func UserMessage(cause FailureCause) string {
	if msg, ok := userMessages[cause]; ok {
		return msg
	}
	return "Sorry, something went wrong while answering your question."
}

// StageLatency is the per-stage timing exposed in outcome metadata.
type StageLatency struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

type Metadata struct {
	Intent        entity.IntentCategory `json:"intent"`
	CacheHit      bool                  `json:"cache_hit"`
	Stages        []StageLatency        `json:"stages"`
	TokenUsage    int                   `json:"token_usage"`
	StepsExecuted int                   `json:"steps_executed"`
	Retries       int                   `json:"retries"`
}

type Failure struct {
	Stage Stage        `json:"stage"`
	Cause FailureCause `json:"cause"`
}

// Outcome is the pipeline's single return shape: an answer with metadata,
// or a failure with stage and cause. The surrounding API layer re-serializes
// it; its wire format is not this package's concern.
type Outcome struct {
	Answer   string   `json:"answer"`
	Metadata Metadata `json:"metadata"`
	Failure  *Failure `json:"failure,omitempty"`
}

func (o *Outcome) Failed() bool {
	return o.Failure != nil
}
