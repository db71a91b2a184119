package dto

// QueryRequest is the inbound body for POST /query/v1.
type QueryRequest struct {
	Text           string `json:"text" validate:"required,min=1,max=4000"`
	SessionId      string `json:"session_id" validate:"omitempty,uuid"`
	RoutingProfile string `json:"routing_profile" validate:"omitempty,max=64"`
	ModelId        string `json:"model_id" validate:"omitempty,max=64"`
	Timezone       string `json:"timezone" validate:"omitempty,max=64"`
}

type StageLatencyDTO struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

type QueryMetadataDTO struct {
	Intent        string            `json:"intent"`
	CacheHit      bool              `json:"cache_hit"`
	Stages        []StageLatencyDTO `json:"stages"`
	TokenUsage    int               `json:"token_usage"`
	StepsExecuted int               `json:"steps_executed"`
	Retries       int               `json:"retries"`
}

type QueryFailureDTO struct {
	Stage string `json:"stage"`
	Cause string `json:"cause"`
}

// QueryResponse is always returned with HTTP 200; failures are expressed in
// the failure block, not the status code.
type QueryResponse struct {
	RequestId string           `json:"request_id"`
	SessionId string           `json:"session_id"`
	Answer    string           `json:"answer"`
	Metadata  QueryMetadataDTO `json:"metadata"`
	Failure   *QueryFailureDTO `json:"failure,omitempty"`
}
