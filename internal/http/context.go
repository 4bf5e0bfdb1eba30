package http

import (
	"context"
	"log/slog"

	"github.com/example/lab-timetable/internal/logging"
)

// ContextWithLogger attaches a request scoped logger that services pick up as well.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
