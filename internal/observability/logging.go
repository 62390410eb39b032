// Package observability wires up the engine's structured logging,
// metrics and tracing. Loggers are constructor-injected rather than
// package-global.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// NewLogger builds the process logger. format is "json" (default,
// production) or "text" (local/TTY use). The logger is built once at
// startup and injected as environment, like the HTTP pool and the
// metrics registry.
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// WithProject returns a logger scoped to a single project's reconciliation
// cycle, so every Phase Engine log line carries the project identifier
// without the caller needing to repeat it.
func WithProject(log *slog.Logger, projectIdentifier string) *slog.Logger {
	return log.With(slog.String("project", projectIdentifier))
}

// WithPhase further scopes a project logger to one of the four phases.
func WithPhase(log *slog.Logger, phase string) *slog.Logger {
	return log.With(slog.String("phase", phase))
}

type loggerKey struct{}

// IntoContext stashes a logger on a context so deeply nested activities
// (durability layer) can retrieve it without threading it through every
// function signature by hand.
func IntoContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext retrieves a logger stashed by IntoContext, falling back to
// slog.Default() if none was set.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}
