package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-timetable/internal/application"
)

type rosterService interface {
	List(ctx context.Context) ([]application.ClassRoster, error)
	Create(ctx context.Context, input application.RosterInput) (application.ClassRoster, error)
	Update(ctx context.Context, id int64, input application.RosterInput) (application.ClassRoster, error)
	Delete(ctx context.Context, id int64) error
	ResolveTotalHeadcount(ctx context.Context, list string) (int, error)
}

type RosterHandler struct {
	service   rosterService
	responder responder
	logger    *slog.Logger
}

func NewRosterHandler(service rosterService, logger *slog.Logger) *RosterHandler {
	base := defaultLogger(logger)
	return &RosterHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RosterHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RosterHandler", operation, attrs...)
}

func (h *RosterHandler) available(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	rosters, err := h.service.List(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRostersResponse{Rosters: toRosterDTOs(rosters)})
}

func (h *RosterHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req rosterRequest
	if !h.decode(w, r, &req) {
		return
	}

	roster, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Create", "roster_id", roster.ID).InfoContext(r.Context(), "roster created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, rosterResponse{Roster: toRosterDTO(roster)})
}

func (h *RosterHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := pathInt(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	var req rosterRequest
	if !h.decode(w, r, &req) {
		return
	}

	roster, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Update", "roster_id", id).InfoContext(r.Context(), "roster updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, rosterResponse{Roster: toRosterDTO(roster)})
}

func (h *RosterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, ok := pathInt(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Delete", "roster_id", id).InfoContext(r.Context(), "roster deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Headcount resolves ?names=A,B into a total headcount.
func (h *RosterHandler) Headcount(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	names := r.URL.Query().Get("names")
	total, err := h.service.ResolveTotalHeadcount(r.Context(), names)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, headcountResponse{
		Names:     application.SplitClassNames(names),
		Headcount: total,
	})
}

func (h *RosterHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		} else {
			h.responder.handleServiceError(r.Context(), w, err)
		}
		return false
	}
	return true
}

type rosterRequest struct {
	Name      string  `json:"name" validate:"required"`
	Major     *string `json:"major"`
	Headcount int     `json:"headcount" validate:"required,gt=0"`
}

func (r rosterRequest) toInput() application.RosterInput {
	return application.RosterInput{
		Name:      strings.TrimSpace(r.Name),
		Major:     r.Major,
		Headcount: r.Headcount,
	}
}

type rosterResponse struct {
	Roster rosterDTO `json:"roster"`
}

type listRostersResponse struct {
	Rosters []rosterDTO `json:"rosters"`
}

type headcountResponse struct {
	Names     []string `json:"names"`
	Headcount int      `json:"headcount"`
}

type rosterDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Major     *string `json:"major,omitempty"`
	Headcount int     `json:"headcount"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toRosterDTO(roster application.ClassRoster) rosterDTO {
	return rosterDTO{
		ID:        roster.ID,
		Name:      roster.Name,
		Major:     roster.Major,
		Headcount: roster.Headcount,
		CreatedAt: formatTimestamp(roster.CreatedAt),
		UpdatedAt: formatTimestamp(roster.UpdatedAt),
	}
}

func toRosterDTOs(rosters []application.ClassRoster) []rosterDTO {
	out := make([]rosterDTO, 0, len(rosters))
	for _, roster := range rosters {
		out = append(out, toRosterDTO(roster))
	}
	return out
}
