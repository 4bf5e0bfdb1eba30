package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/lab-timetable/internal/application"
)

type roomService interface {
	List(ctx context.Context) ([]application.Room, error)
	UpdateCapacity(ctx context.Context, id int, capacity float64) (application.Room, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.List(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "List").With("result_count", len(rooms)).DebugContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathInt(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}
	logger := h.log(r.Context(), "UpdateCapacity", "room_id", id)

	var req capacityRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	room, err := h.service.UpdateCapacity(r.Context(), int(id), *req.Capacity)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "room capacity updated", "capacity", room.Capacity)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

type capacityRequest struct {
	Capacity *float64 `json:"capacity" validate:"required,gt=0"`
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		CreatedAt: formatTimestamp(room.CreatedAt),
		UpdatedAt: formatTimestamp(room.UpdatedAt),
	}
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
