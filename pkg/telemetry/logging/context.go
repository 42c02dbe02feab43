package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for the identifier of the current run.
	RunIDKey contextKey = "run_id"

	// CheckIDKey is the context key for the check being evaluated.
	CheckIDKey contextKey = "check_id"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// RunID retrieves the run ID from the context.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCheckID adds a check ID to the context.
func WithCheckID(ctx context.Context, checkID string) context.Context {
	return context.WithValue(ctx, CheckIDKey, checkID)
}

// CheckID retrieves the check ID from the context.
func CheckID(ctx context.Context) string {
	if id, ok := ctx.Value(CheckIDKey).(string); ok {
		return id
	}
	return ""
}

// contextAttrs returns log attributes for the identifiers stored in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := RunID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), id))
	}
	if id := CheckID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(CheckIDKey), id))
	}
	return attrs
}
