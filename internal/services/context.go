package services

import "context"

type ctxKey int

const (
	ctxKeyJobID ctxKey = iota
	ctxKeyStage
	ctxKeyBranch
	ctxKeyRequestID
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithJobID annotates the context with the workflow job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, ctxKeyJobID, id)
}

// JobIDFromContext extracts the workflow job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, ctxKeyJobID)
}

// WithStage annotates the context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, ctxKeyStage, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, ctxKeyStage)
}

// WithBranch annotates the context with the pipeline branch name.
func WithBranch(ctx context.Context, branch string) context.Context {
	return withValue(ctx, ctxKeyBranch, branch)
}

// BranchFromContext returns the branch name if present.
func BranchFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, ctxKeyBranch)
}

// WithRequestID annotates the context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, ctxKeyRequestID)
}
