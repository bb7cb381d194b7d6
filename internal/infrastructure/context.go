package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDContextKey holds the run id in a context.
const TraceIDContextKey contextKey = "trace_id"

// GenerateTraceID creates a new run id.
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID returns ctx carrying the run id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the run id carried by ctx, or "".
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(TraceIDContextKey).(string)
	return traceID
}

// EnsureTraceID returns ctx unchanged if it carries a run id, otherwise a
// child context with a fresh one.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}

// WithPlate creates a logger scoped to one plate file.
func WithPlate(logger *slog.Logger, plate int, file string) *slog.Logger {
	return logger.With(slog.Int("plate", plate), slog.String("file", file))
}
