// Package logging carries request-scoped slog loggers through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type loggerKey struct{}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = discard
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With stores a copy of the context logger enriched with args. Without a
// context logger it is a no-op.
func With(ctx context.Context, args ...any) context.Context {
	logger, ok := fromContext(ctx)
	if !ok || len(args) == 0 {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger.With(args...))
}

// FromContext returns the context logger, then fallback, then a discarding logger.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := fromContext(ctx); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return discard
}

func fromContext(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger, ok && logger != nil
}
