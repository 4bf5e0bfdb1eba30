package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/example/lab-timetable/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id int) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
	UpdateRoomCapacity(ctx context.Context, id int, capacity int) (Room, error)
	SeedRooms(ctx context.Context, rooms []Room) (int, error)
}

// RoomService is the registry of lab rooms. Rooms are seeded once and only
// their capacity changes afterwards.
type RoomService struct {
	rooms  RoomRepository
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository) *RoomService {
	return NewRoomServiceWithLogger(rooms, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, logger *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

func (s *RoomService) ready() error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}
	return nil
}

// List returns all rooms ordered by id ascending.
func (s *RoomService) List(ctx context.Context) (rooms []Room, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "List")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return nil, err
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return rooms, nil
}

// Get returns a room by id.
func (s *RoomService) Get(ctx context.Context, id int) (Room, error) {
	if err := s.ready(); err != nil {
		return Room{}, err
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// UpdateCapacity floors capacity to an integer and stores it. No lower bound
// is enforced here. Existing sessions keep their capacity snapshot.
func (s *RoomService) UpdateCapacity(ctx context.Context, id int, capacity float64) (room Room, err error) {
	if err = s.ready(); err != nil {
		return Room{}, err
	}

	logger := s.loggerWith(ctx, "UpdateCapacity", "room_id", id)
	defer func() {
		logResult(ctx, logger, err, "room capacity updated", "failed to update room capacity", "capacity", room.Capacity)
	}()

	if math.IsNaN(capacity) || math.IsInf(capacity, 0) {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be a finite number")
		err = vErr
		return Room{}, err
	}

	room, err = s.rooms.UpdateRoomCapacity(ctx, id, int(math.Floor(capacity)))
	if err != nil {
		err = mapRoomRepoError(err)
		return Room{}, err
	}
	return room, nil
}

// ResolveIDByName returns the id of the room whose display name equals the
// trimmed name exactly.
func (s *RoomService) ResolveIDByName(ctx context.Context, name string) (int, bool, error) {
	if err := s.ready(); err != nil {
		return 0, false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, nil
	}
	room, err := s.rooms.GetRoomByName(ctx, name)
	if err != nil {
		if err = mapRoomRepoError(err); errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return room.ID, true, nil
}

// DefaultRooms is the room set seeded on first boot.
func DefaultRooms() []Room {
	return []Room{
		{ID: 1, Name: "Computer Lab 1", Capacity: 48},
		{ID: 2, Name: "Computer Lab 2", Capacity: 48},
		{ID: 3, Name: "Network Lab", Capacity: 40},
		{ID: 4, Name: "Embedded Systems Lab", Capacity: 36},
	}
}

// Seed inserts rooms that do not exist yet. Existing rooms, including their
// current capacity, are left untouched.
func (s *RoomService) Seed(ctx context.Context, rooms []Room) (inserted int, err error) {
	if err = s.ready(); err != nil {
		return 0, err
	}

	logger := s.loggerWith(ctx, "Seed", "room_count", len(rooms))
	defer func() {
		logResult(ctx, logger, err, "rooms seeded", "failed to seed rooms", "inserted", inserted)
	}()

	rooms = append([]Room(nil), rooms...)
	vErr := &ValidationError{}
	seenIDs := make(map[int]struct{}, len(rooms))
	seenNames := make(map[string]struct{}, len(rooms))
	for i, room := range rooms {
		field := fmt.Sprintf("rooms[%d]", i)
		if room.ID <= 0 {
			vErr.add(field+".id", "id must be positive")
		}
		name := strings.TrimSpace(room.Name)
		if name == "" {
			vErr.add(field+".name", "name is required")
		}
		if room.Capacity <= 0 {
			vErr.add(field+".capacity", "capacity must be positive")
		}
		if _, dup := seenIDs[room.ID]; dup {
			vErr.add(field+".id", "duplicate id")
		}
		if _, dup := seenNames[name]; dup {
			vErr.add(field+".name", "duplicate name")
		}
		seenIDs[room.ID] = struct{}{}
		seenNames[name] = struct{}{}
		rooms[i].Name = name
	}
	if vErr.HasErrors() {
		err = vErr
		return 0, err
	}

	inserted, err = s.rooms.SeedRooms(ctx, rooms)
	if err != nil {
		err = mapRoomRepoError(err)
		return 0, err
	}
	return inserted, nil
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
