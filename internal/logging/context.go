package logging

import (
	"context"
	"log/slog"

	"reslice/internal/services"
)

// Structured field keys shared across daemon log output. Keep these in
// sync with what the CLI and log tooling grep for.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldBranch        = "branch"
	FieldView          = "view"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
)

// ContextFields extracts standardized slog attributes from the context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	probes := []struct {
		field  string
		lookup func(context.Context) (string, bool)
	}{
		{FieldJobID, services.JobIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldBranch, services.BranchFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	}
	fields := make([]slog.Attr, 0, len(probes))
	for _, probe := range probes {
		if value, ok := probe.lookup(ctx); ok {
			fields = append(fields, String(probe.field, value))
		}
	}
	return fields
}

// WithContext returns a logger augmented with whatever job, stage, branch,
// and correlation fields the context carries.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
