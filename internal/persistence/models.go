package persistence

import "time"

// Room represents a lab room. Identifiers are assigned externally and never reused.
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

// Session is the occupancy of one (room, date, period) slot.
//
// Date is stored as a YYYY-MM-DD string; Capacity is a snapshot of the room
// capacity at write time.
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

// OverrideKind marks a date as a workday or an off day regardless of its weekday.
type OverrideKind string

const (
	// OverrideWorkday turns a date into a teaching day.
	OverrideWorkday OverrideKind = "workday"
	// OverrideOffday turns a date into a non-teaching day.
	OverrideOffday OverrideKind = "offday"
)

// CalendarOverride is a single date exception.
type CalendarOverride struct {
	Date      string
	Kind      OverrideKind
	Note      *string
	UpdatedAt time.Time
}
