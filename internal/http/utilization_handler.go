package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/lab-timetable/internal/application"
)

type utilizationService interface {
	Summary(ctx context.Context, from, to string, roomID *int) (application.UtilizationSummary, error)
}

type UtilizationHandler struct {
	service   utilizationService
	responder responder
}

func NewUtilizationHandler(service utilizationService, logger *slog.Logger) *UtilizationHandler {
	return &UtilizationHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

// Summary serves GET /utilization?from=&to=&room_id=.
func (h *UtilizationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vErr := &application.ValidationError{}
	from := queryDate(r, "from", vErr)
	to := queryDate(r, "to", vErr)
	roomID := queryRoomID(r, vErr)
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	summary, err := h.service.Summary(r.Context(), from, to, roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summary)
}
