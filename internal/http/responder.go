package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-timetable/internal/application"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errInvalidRoomID  = errors.New("room id must be a positive integer")
	errInvalidID      = errors.New("id must be a positive integer")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorKind: "bad_request", Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)

	var refErr *application.UnresolvedReferenceError
	if errors.As(err, &refErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorKind: kind,
			Message:   refErr.Error(),
			Field:     refErr.Field,
			Names:     refErr.Names,
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorKind: kind,
			Message:   "validation failed",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorKind: kind, Message: "resource not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorKind: kind, Message: "resource already exists"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{ErrorKind: kind, Message: "request canceled"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "internal error", "error", err, "error_kind", kind)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorKind: kind, Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorKind string            `json:"error_kind,omitempty"`
	Message   string            `json:"message"`
	Field     string            `json:"field,omitempty"`
	Names     []string          `json:"names,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}
