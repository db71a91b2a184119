package tools

import (
	"context"
	"fmt"
)

// Connector is the single signature every tool back-end satisfies.
// Payloads are opaque to the pipeline and passed through unmodified.
type Connector interface {
	Call(ctx context.Context, action string, parameters map[string]interface{}) (interface{}, error)
}

// CallError classifies a connector failure for the executor's retry logic.
// Transport failures get one automatic retry; logical rejections never do.
type CallError struct {
	Action    string
	Retryable bool
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tool call %s failed: %v", e.Action, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a network/IO level failure (retryable once).
func NewTransportError(action string, err error) *CallError {
	return &CallError{Action: action, Retryable: true, Err: err}
}

// NewLogicalError wraps a back-end rejection (never retried).
func NewLogicalError(action string, err error) *CallError {
	return &CallError{Action: action, Retryable: false, Err: err}
}

// Registry maps connector names to implementations. It is assembled once at
// bootstrap and read-only afterwards.
type Registry struct {
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

func (r *Registry) Register(name string, c Connector) {
	r.connectors[name] = c
}

func (r *Registry) Get(name string) (Connector, bool) {
	c, ok := r.connectors[name]
	return c, ok
}
