package bootstrap

import (
	"context"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/persistence"
)

// RoomRepositoryAdapter exposes a persistence room repository to the application layer.
type RoomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

// NewRoomRepositoryAdapter wraps repo.
func NewRoomRepositoryAdapter(repo persistence.RoomRepository) *RoomRepositoryAdapter {
	return &RoomRepositoryAdapter{repo: repo}
}

func (a *RoomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	stored, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(stored))
	for _, room := range stored {
		rooms = append(rooms, toApplicationRoom(room))
	}
	return rooms, nil
}

func (a *RoomRepositoryAdapter) GetRoom(ctx context.Context, id int) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepositoryAdapter) GetRoomByName(ctx context.Context, name string) (application.Room, error) {
	stored, err := a.repo.GetRoomByName(ctx, name)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepositoryAdapter) UpdateRoomCapacity(ctx context.Context, id int, capacity int) (application.Room, error) {
	stored, err := a.repo.UpdateRoomCapacity(ctx, id, capacity)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepositoryAdapter) SeedRooms(ctx context.Context, rooms []application.Room) (int, error) {
	records := make([]persistence.Room, 0, len(rooms))
	for _, room := range rooms {
		records = append(records, persistence.Room{ID: room.ID, Name: room.Name, Capacity: room.Capacity})
	}
	return a.repo.SeedRooms(ctx, records)
}

// RosterRepositoryAdapter exposes a persistence roster repository to the application layer.
type RosterRepositoryAdapter struct {
	repo persistence.RosterRepository
}

// NewRosterRepositoryAdapter wraps repo.
func NewRosterRepositoryAdapter(repo persistence.RosterRepository) *RosterRepositoryAdapter {
	return &RosterRepositoryAdapter{repo: repo}
}

func (a *RosterRepositoryAdapter) CreateRoster(ctx context.Context, roster application.ClassRoster) (application.ClassRoster, error) {
	stored, err := a.repo.CreateRoster(ctx, toPersistenceRoster(roster))
	if err != nil {
		return application.ClassRoster{}, err
	}
	return toApplicationRoster(stored), nil
}

func (a *RosterRepositoryAdapter) UpdateRoster(ctx context.Context, roster application.ClassRoster) (application.ClassRoster, error) {
	stored, err := a.repo.UpdateRoster(ctx, toPersistenceRoster(roster))
	if err != nil {
		return application.ClassRoster{}, err
	}
	return toApplicationRoster(stored), nil
}

func (a *RosterRepositoryAdapter) DeleteRoster(ctx context.Context, id int64) error {
	return a.repo.DeleteRoster(ctx, id)
}

func (a *RosterRepositoryAdapter) GetRoster(ctx context.Context, id int64) (application.ClassRoster, error) {
	stored, err := a.repo.GetRoster(ctx, id)
	if err != nil {
		return application.ClassRoster{}, err
	}
	return toApplicationRoster(stored), nil
}

func (a *RosterRepositoryAdapter) GetRosterByName(ctx context.Context, name string) (application.ClassRoster, error) {
	stored, err := a.repo.GetRosterByName(ctx, name)
	if err != nil {
		return application.ClassRoster{}, err
	}
	return toApplicationRoster(stored), nil
}

func (a *RosterRepositoryAdapter) ListRosters(ctx context.Context) ([]application.ClassRoster, error) {
	stored, err := a.repo.ListRosters(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationRosters(stored), nil
}

func (a *RosterRepositoryAdapter) ListRostersByName(ctx context.Context, names []string) ([]application.ClassRoster, error) {
	stored, err := a.repo.ListRostersByName(ctx, names)
	if err != nil {
		return nil, err
	}
	return toApplicationRosters(stored), nil
}

// SessionRepositoryAdapter exposes a persistence session repository to the application layer.
type SessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

// NewSessionRepositoryAdapter wraps repo.
func NewSessionRepositoryAdapter(repo persistence.SessionRepository) *SessionRepositoryAdapter {
	return &SessionRepositoryAdapter{repo: repo}
}

func (a *SessionRepositoryAdapter) ReplaceRange(ctx context.Context, roomID int, from, to string, sessions []application.Session) error {
	records := make([]persistence.Session, 0, len(sessions))
	for _, session := range sessions {
		records = append(records, toPersistenceSession(session))
	}
	return a.repo.ReplaceRange(ctx, roomID, from, to, records)
}

func (a *SessionRepositoryAdapter) UpsertSession(ctx context.Context, session application.Session) (application.Session, bool, error) {
	stored, inserted, err := a.repo.UpsertSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, false, err
	}
	return toApplicationSession(stored), inserted, nil
}

func (a *SessionRepositoryAdapter) GetSessionAt(ctx context.Context, roomID int, date string, period int) (application.Session, error) {
	stored, err := a.repo.GetSessionAt(ctx, roomID, date, period)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepositoryAdapter) ListSessions(ctx context.Context, filter application.SessionFilter) ([]application.Session, error) {
	stored, err := a.repo.ListSessions(ctx, persistence.SessionFilter{RoomID: filter.RoomID, From: filter.From, To: filter.To})
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(stored))
	for _, session := range stored {
		sessions = append(sessions, toApplicationSession(session))
	}
	return sessions, nil
}

func (a *SessionRepositoryAdapter) DeleteSessions(ctx context.Context, roomID *int) (int64, error) {
	return a.repo.DeleteSessions(ctx, roomID)
}

// OverrideRepositoryAdapter exposes a persistence override repository to the application layer.
type OverrideRepositoryAdapter struct {
	repo persistence.OverrideRepository
}

// NewOverrideRepositoryAdapter wraps repo.
func NewOverrideRepositoryAdapter(repo persistence.OverrideRepository) *OverrideRepositoryAdapter {
	return &OverrideRepositoryAdapter{repo: repo}
}

func (a *OverrideRepositoryAdapter) UpsertOverride(ctx context.Context, override application.CalendarOverride) (application.CalendarOverride, error) {
	stored, err := a.repo.UpsertOverride(ctx, persistence.CalendarOverride{
		Date: override.Date,
		Kind: persistence.OverrideKind(override.Kind),
		Note: override.Note,
	})
	if err != nil {
		return application.CalendarOverride{}, err
	}
	return toApplicationOverride(stored), nil
}

func (a *OverrideRepositoryAdapter) DeleteOverride(ctx context.Context, date string) error {
	return a.repo.DeleteOverride(ctx, date)
}

func (a *OverrideRepositoryAdapter) ListOverrides(ctx context.Context, from, to string) ([]application.CalendarOverride, error) {
	stored, err := a.repo.ListOverrides(ctx, from, to)
	if err != nil {
		return nil, err
	}
	overrides := make([]application.CalendarOverride, 0, len(stored))
	for _, override := range stored {
		overrides = append(overrides, toApplicationOverride(override))
	}
	return overrides, nil
}

func toApplicationRoom(room persistence.Room) application.Room {
	return application.Room{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toPersistenceRoster(roster application.ClassRoster) persistence.ClassRoster {
	return persistence.ClassRoster{
		ID:        roster.ID,
		Name:      roster.Name,
		Major:     roster.Major,
		Headcount: roster.Headcount,
	}
}

func toApplicationRoster(roster persistence.ClassRoster) application.ClassRoster {
	return application.ClassRoster{
		ID:        roster.ID,
		Name:      roster.Name,
		Major:     roster.Major,
		Headcount: roster.Headcount,
		CreatedAt: roster.CreatedAt,
		UpdatedAt: roster.UpdatedAt,
	}
}

func toApplicationRosters(stored []persistence.ClassRoster) []application.ClassRoster {
	rosters := make([]application.ClassRoster, 0, len(stored))
	for _, roster := range stored {
		rosters = append(rosters, toApplicationRoster(roster))
	}
	return rosters
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:            session.ID,
		RoomID:        session.RoomID,
		Date:          session.Date,
		Period:        session.Period,
		CourseName:    session.CourseName,
		TeacherName:   session.TeacherName,
		Content:       session.Content,
		Planned:       session.Planned,
		Capacity:      session.Capacity,
		AllowOverflow: session.AllowOverflow,
		Duration:      session.Duration,
		ClassNames:    session.ClassNames,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:            session.ID,
		RoomID:        session.RoomID,
		Date:          session.Date,
		Period:        session.Period,
		CourseName:    session.CourseName,
		TeacherName:   session.TeacherName,
		Content:       session.Content,
		Planned:       session.Planned,
		Capacity:      session.Capacity,
		AllowOverflow: session.AllowOverflow,
		Duration:      session.Duration,
		ClassNames:    session.ClassNames,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func toApplicationOverride(override persistence.CalendarOverride) application.CalendarOverride {
	return application.CalendarOverride{
		Date:      override.Date,
		Kind:      application.OverrideKind(override.Kind),
		Note:      override.Note,
		UpdatedAt: override.UpdatedAt,
	}
}
