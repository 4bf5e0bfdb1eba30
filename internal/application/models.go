package application

import "time"

// Room is a lab room with a fixed identifier and mutable seating capacity.
type Room struct {
	ID        int
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassRoster maps a class name to its headcount and program.
type ClassRoster struct {
	ID        int64
	Name      string
	Major     *string
	Headcount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RosterInput captures caller provided roster fields.
type RosterInput struct {
	Name      string
	Major     *string
	Headcount int
}

// Session is the occupancy of one (room, date, period) slot.
type Session struct {
	ID            string
	RoomID        int
	Date          string
	Period        int
	CourseName    string
	TeacherName   string
	Content       *string
	Planned       int
	Capacity      int
	AllowOverflow bool
	Duration      int
	ClassNames    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionInput captures caller provided session fields. Nil pointers mean the
// value was not supplied and a default or derived value applies. There is
// deliberately no overflow field: it is always computed.
type SessionInput struct {
	Date        string
	Period      int
	CourseName  string
	TeacherName string
	Content     *string
	Planned     *int
	Capacity    *int
	Duration    *int
	ClassNames  *string
}

// RowInput is one row of an incremental import. The room is named either by
// id or by display name; the id wins when both are present.
type RowInput struct {
	RoomID   *int
	RoomName string
	SessionInput
}

// SessionFilter narrows session queries. Dates are inclusive YYYY-MM-DD bounds.
type SessionFilter struct {
	RoomID *int
	From   string
	To     string
}

// WeekView is the 7x8 grid of one room's week.
type WeekView struct {
	Room         Room
	WeekStart    string
	WeekEnd      string
	WeekNumber   int
	SemesterYear int
	Days         []DayView
}

// DayView is one column of a week grid.
type DayView struct {
	Date     string
	Weekday  string
	Workday  bool
	Seasonal bool
	Slots    []SlotView
}

// SlotView is one cell of a week grid. Session is nil for an empty slot.
type SlotView struct {
	Period  int
	Start   string
	End     string
	Session *Session
}

// RowAction describes what an upsert did, or would do, to a slot.
type RowAction string

const (
	RowActionInsert RowAction = "insert"
	RowActionUpdate RowAction = "update"
)

// RowWrite is a write performed, or planned in dry-run mode, by UpsertRows.
type RowWrite struct {
	Index   int
	Action  RowAction
	Session Session
}

// RowError reports why a single import row was rejected.
type RowError struct {
	Index   int
	Kind    string
	Field   string
	Message string
	Names   []string
}

// UpsertResult aggregates the outcome of an incremental import.
type UpsertResult struct {
	DryRun   bool
	Inserted int
	Updated  int
	Errors   []RowError
	Rows     []RowWrite
}

// OverrideKind marks a date as a workday or an off day regardless of its weekday.
type OverrideKind string

const (
	OverrideWorkday OverrideKind = "workday"
	OverrideOffday  OverrideKind = "offday"
)

// CalendarOverride is a single date exception to the weekday rule.
type CalendarOverride struct {
	Date      string
	Kind      OverrideKind
	Note      *string
	UpdatedAt time.Time
}

// UtilizationSummary aggregates room usage over an inclusive date range.
type UtilizationSummary struct {
	From  string            `json:"from"`
	To    string            `json:"to"`
	Rooms []RoomUtilization `json:"rooms"`
}

// RoomUtilization is the usage of a single room.
type RoomUtilization struct {
	RoomID           int     `json:"room_id"`
	RoomName         string  `json:"room_name"`
	Workdays         int     `json:"workdays"`
	AvailableSlots   int     `json:"available_slots"`
	OccupiedSlots    int     `json:"occupied_slots"`
	PlannedHeadcount int     `json:"planned_headcount"`
	Rate             float64 `json:"rate"`
}
