// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// buildIDKey is the context key for build/correlation IDs.
type buildIDKey struct{}

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// WithBuildID returns a new context carrying the given build ID.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, buildIDKey{}, buildID)
}

// BuildIDFromContext extracts the build ID from the context.
func BuildIDFromContext(ctx context.Context) string {
	if v := ctx.Value(buildIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (build ID, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if buildID := BuildIDFromContext(ctx); buildID != "" {
		return base.With("build_id", buildID)
	}
	return base
}
