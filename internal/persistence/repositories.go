package persistence

import "context"

// RoomRepository stores the lab room catalog.
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id int) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
	UpdateRoomCapacity(ctx context.Context, id int, capacity int) (Room, error)
	// SeedRooms inserts rooms whose id is not yet present and leaves existing rows untouched.
	SeedRooms(ctx context.Context, rooms []Room) (int, error)
}

// RosterRepository stores class rosters keyed by unique name.
type RosterRepository interface {
	CreateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error)
	UpdateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error)
	DeleteRoster(ctx context.Context, id int64) error
	GetRoster(ctx context.Context, id int64) (ClassRoster, error)
	GetRosterByName(ctx context.Context, name string) (ClassRoster, error)
	ListRosters(ctx context.Context) ([]ClassRoster, error)
	// ListRostersByName returns the rosters matching any of names; unknown names are simply absent.
	ListRostersByName(ctx context.Context, names []string) ([]ClassRoster, error)
}

// SessionFilter narrows session queries. Dates are inclusive YYYY-MM-DD bounds.
type SessionFilter struct {
	RoomID *int
	From   string
	To     string
}

// SessionRepository owns timetable sessions and both write protocols.
type SessionRepository interface {
	// ReplaceRange deletes every session of roomID with from <= date <= to and
	// inserts sessions, atomically.
	ReplaceRange(ctx context.Context, roomID int, from, to string, sessions []Session) error
	// UpsertSession updates the session occupying the slot of session or inserts
	// it when the slot is empty. It reports whether a new row was inserted.
	UpsertSession(ctx context.Context, session Session) (Session, bool, error)
	GetSessionAt(ctx context.Context, roomID int, date string, period int) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	// DeleteSessions removes all sessions of roomID, or all sessions when roomID is nil.
	DeleteSessions(ctx context.Context, roomID *int) (int64, error)
}

// OverrideRepository stores calendar overrides keyed by date.
type OverrideRepository interface {
	UpsertOverride(ctx context.Context, override CalendarOverride) (CalendarOverride, error)
	DeleteOverride(ctx context.Context, date string) error
	ListOverrides(ctx context.Context, from, to string) ([]CalendarOverride, error)
}
