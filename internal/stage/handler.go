package stage

import (
	"context"
	"log/slog"

	"reslice/internal/queue"
)

// Payload is the JSON-shaped result a stage hands to its successors.
type Payload map[string]any

// Request carries one job through a stage together with the payloads of
// every stage that already ran for it, keyed by stage name.
type Request struct {
	Job    *queue.Job
	Inputs map[string]Payload
}

// Input returns the payload a named predecessor produced, or nil.
func (r *Request) Input(name string) Payload {
	if r == nil || r.Inputs == nil {
		return nil
	}
	return r.Inputs[name]
}

// Handler describes the contract the workflow manager needs from each stage.
// Prepare checks preconditions cheaply; Execute does the work and returns
// the stage's result payload.
type Handler interface {
	Prepare(context.Context, *Request) error
	Execute(context.Context, *Request) (Payload, error)
	HealthCheck(context.Context) Health
}

// LoggerAware lets the execution helper inject a context-scoped logger into
// handlers that want one.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
