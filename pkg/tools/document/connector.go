package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-orchestrator-be/pkg/tools"
)

// Connector calls an external document-search endpoint. It is the concrete
// back-end for DocumentLookup plan steps.
type Connector struct {
	BaseURL string
	Client  *http.Client
}

func NewConnector(baseURL string) *Connector {
	return &Connector{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

var _ tools.Connector = &Connector{}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Documents []map[string]interface{} `json:"documents"`
}

func (c *Connector) Call(ctx context.Context, action string, parameters map[string]interface{}) (interface{}, error) {
	query, _ := parameters["query"].(string)
	if query == "" {
		return nil, tools.NewLogicalError(action, fmt.Errorf("missing query parameter"))
	}

	limit := 10
	switch n := parameters["limit"].(type) {
	case int:
		limit = n
	case float64:
		limit = int(n)
	}

	payload, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, tools.NewLogicalError(action, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, tools.NewLogicalError(action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, tools.NewTransportError(action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tools.NewTransportError(action, err)
	}

	if resp.StatusCode >= 500 {
		return nil, tools.NewTransportError(action, fmt.Errorf("search backend status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, tools.NewLogicalError(action, fmt.Errorf("search backend status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, tools.NewLogicalError(action, fmt.Errorf("malformed search response: %w", err))
	}

	return parsed.Documents, nil
}
