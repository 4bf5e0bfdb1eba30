package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-timetable/internal/application"
)

type overrideService interface {
	List(ctx context.Context, from, to string) ([]application.CalendarOverride, error)
	Set(ctx context.Context, date string, kind application.OverrideKind, note *string) (application.CalendarOverride, error)
	Delete(ctx context.Context, date string) error
}

type CalendarHandler struct {
	service   overrideService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service overrideService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) available(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// List serves GET /calendar/overrides?from=&to= with optional bounds.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	query := r.URL.Query()
	overrides, err := h.service.List(r.Context(), strings.TrimSpace(query.Get("from")), strings.TrimSpace(query.Get("to")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]overrideDTO, 0, len(overrides))
	for _, o := range overrides {
		out = append(out, toOverrideDTO(o))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOverridesResponse{Overrides: out})
}

// Set serves PUT /calendar/overrides.
func (h *CalendarHandler) Set(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	override, err := h.service.Set(r.Context(), req.Date, application.OverrideKind(req.Kind), req.Note)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.logger, "CalendarHandler", "Set", "date", override.Date).
		InfoContext(r.Context(), "calendar override stored", "kind", string(override.Kind))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, overrideResponse{Override: toOverrideDTO(override)})
}

// Delete serves DELETE /calendar/overrides/{date}.
func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	if err := h.service.Delete(r.Context(), r.PathValue("date")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type overrideRequest struct {
	Date string  `json:"date" validate:"required,datetime=2006-01-02"`
	Kind string  `json:"kind" validate:"required,oneof=workday offday"`
	Note *string `json:"note"`
}

type overrideDTO struct {
	Date      string  `json:"date"`
	Kind      string  `json:"kind"`
	Note      *string `json:"note,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type overrideResponse struct {
	Override overrideDTO `json:"override"`
}

type listOverridesResponse struct {
	Overrides []overrideDTO `json:"overrides"`
}

func toOverrideDTO(o application.CalendarOverride) overrideDTO {
	return overrideDTO{
		Date:      o.Date,
		Kind:      string(o.Kind),
		Note:      o.Note,
		UpdatedAt: formatTimestamp(o.UpdatedAt),
	}
}
