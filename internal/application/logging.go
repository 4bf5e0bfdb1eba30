package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/lab-timetable/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}

	var refErr *UnresolvedReferenceError
	if errors.As(err, &refErr) {
		return "unresolved_reference"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// logResult emits the standard completion record for an operation.
func logResult(ctx context.Context, logger *slog.Logger, err error, success, failure string, attrs ...any) {
	if err != nil {
		level := slog.LevelError
		switch ErrorKind(err) {
		case "validation", "unresolved_reference", "not_found", "already_exists":
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, failure, "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.With(attrs...).InfoContext(ctx, success)
}
