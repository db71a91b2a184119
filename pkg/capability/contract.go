package capability

import (
	"encoding/json"
	"fmt"
	"os"
)

// Contract is the read-only declaration of what the pipeline may call:
// allowed tools, their metrics/dimensions, mandatory filters, denied fields
// and result limits. It is supplied by the surrounding admin tooling and
// never mutated here.
type Contract struct {
	Tools []Tool `json:"tools"`

	index map[string]*Tool
}

// Tool declares one callable action and its constraints.
type Tool struct {
	Action     string   `json:"action"`
	Connector  string   `json:"connector"` // "analytics" | "document" | "http"
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`

	// MandatoryFilters are injected into every step even when the planner
	// omitted them (e.g. tenant scoping).
	MandatoryFilters []Filter `json:"mandatory_filters"`

	// DeniedFields can never appear in metrics, dimensions or filters.
	DeniedFields []string `json:"denied_fields"`

	DefaultLimit int `json:"default_limit"`
	MaxLimit     int `json:"max_limit"`

	// ExpectNonEmpty marks results where an empty payload is an anomaly.
	ExpectNonEmpty bool `json:"expect_non_empty"`

	// FallbackAction is substituted by the result validator on first anomaly.
	FallbackAction string `json:"fallback_action"`
}

type Filter struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// LoadFromFile reads the contract from disk and builds the action index.
func LoadFromFile(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability contract: %w", err)
	}

	var c Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse capability contract: %w", err)
	}
	c.buildIndex()
	return &c, nil
}

// New builds a contract from already-loaded tools. Used by tests and by
// callers that receive the contract over configuration channels.
func New(tools []Tool) *Contract {
	c := &Contract{Tools: tools}
	c.buildIndex()
	return c
}

func (c *Contract) buildIndex() {
	c.index = make(map[string]*Tool, len(c.Tools))
	for i := range c.Tools {
		c.index[c.Tools[i].Action] = &c.Tools[i]
	}
}

// Tool returns the declaration for an action, if allowed.
func (c *Contract) Tool(action string) (*Tool, bool) {
	t, ok := c.index[action]
	return t, ok
}

// HasMetric reports whether the tool declares the metric.
func (t *Tool) HasMetric(name string) bool {
	for _, m := range t.Metrics {
		if m == name {
			return true
		}
	}
	return false
}

// HasDimension reports whether the tool declares the dimension.
func (t *Tool) HasDimension(name string) bool {
	for _, d := range t.Dimensions {
		if d == name {
			return true
		}
	}
	return false
}

// IsDenied reports whether a field is on the tool's denylist.
func (t *Tool) IsDenied(name string) bool {
	for _, d := range t.DeniedFields {
		if d == name {
			return true
		}
	}
	return false
}
