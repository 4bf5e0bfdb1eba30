package testfixtures

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/persistence"
)

var rosterCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// SemesterStart is the first Monday of the fixture semester.
var SemesterStart = time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// Rooms returns the default lab rooms as persistence records.
func Rooms() []persistence.Room {
	defaults := application.DefaultRooms()
	rooms := make([]persistence.Room, 0, len(defaults))
	for _, room := range defaults {
		rooms = append(rooms, persistence.Room{ID: room.ID, Name: room.Name, Capacity: room.Capacity})
	}
	return rooms
}

// ---------------------------- Roster fixtures ----------------------------

// RosterFixture is a deterministic class roster.
type RosterFixture struct {
	Name      string
	Major     *string
	Headcount int
}

// RosterOption configures a roster fixture.
type RosterOption func(*RosterFixture)

// NewRosterFixture returns a roster named "CLASS-nnn" with a headcount of 20.
func NewRosterFixture(opts ...RosterOption) RosterFixture {
	idx := atomic.AddUint64(&rosterCounter, 1)
	fixture := RosterFixture{
		Name:      fmt.Sprintf("CLASS-%03d", idx),
		Headcount: 20,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRosterName overrides the generated name.
func WithRosterName(name string) RosterOption {
	return func(f *RosterFixture) {
		f.Name = name
	}
}

// WithRosterHeadcount overrides the headcount.
func WithRosterHeadcount(headcount int) RosterOption {
	return func(f *RosterFixture) {
		f.Headcount = headcount
	}
}

// WithRosterMajor sets the major.
func WithRosterMajor(major string) RosterOption {
	return func(f *RosterFixture) {
		f.Major = &major
	}
}

// Input returns the fixture as an application.RosterInput.
func (f RosterFixture) Input() application.RosterInput {
	return application.RosterInput{Name: f.Name, Major: f.Major, Headcount: f.Headcount}
}

// Persistence returns the fixture as a persistence.ClassRoster without an id.
func (f RosterFixture) Persistence() persistence.ClassRoster {
	return persistence.ClassRoster{Name: f.Name, Major: f.Major, Headcount: f.Headcount}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture describes one timetable slot entry.
type SessionFixture struct {
	RoomID      int
	RoomName    string
	Date        string
	Period      int
	CourseName  string
	TeacherName string
	ClassNames  *string
	Planned     *int
	Capacity    *int
	Duration    *int
}

// SessionOption configures a session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session in room 1, period 1 on the first
// teaching day of the fixture semester.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	fixture := SessionFixture{
		RoomID:      1,
		Date:        SemesterStart.Format(time.DateOnly),
		Period:      1,
		CourseName:  "Programming Basics",
		TeacherName: "Instructor",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionSlot places the session at date and period.
func WithSessionSlot(date string, period int) SessionOption {
	return func(f *SessionFixture) {
		f.Date = date
		f.Period = period
	}
}

// WithSessionRoom selects the room by id.
func WithSessionRoom(roomID int) SessionOption {
	return func(f *SessionFixture) {
		f.RoomID = roomID
	}
}

// WithSessionRoomName selects the room by name, as import rows may.
func WithSessionRoomName(name string) SessionOption {
	return func(f *SessionFixture) {
		f.RoomID = 0
		f.RoomName = name
	}
}

// WithSessionCourse overrides the course name.
func WithSessionCourse(name string) SessionOption {
	return func(f *SessionFixture) {
		f.CourseName = name
	}
}

// WithSessionClasses sets the delimited class list.
func WithSessionClasses(list string) SessionOption {
	return func(f *SessionFixture) {
		f.ClassNames = &list
	}
}

// WithSessionPlanned sets an explicit planned headcount.
func WithSessionPlanned(planned int) SessionOption {
	return func(f *SessionFixture) {
		f.Planned = &planned
	}
}

// WithSessionCapacity sets an explicit capacity.
func WithSessionCapacity(capacity int) SessionOption {
	return func(f *SessionFixture) {
		f.Capacity = &capacity
	}
}

// Input returns the fixture as an application.SessionInput.
func (f SessionFixture) Input() application.SessionInput {
	return application.SessionInput{
		Date:        f.Date,
		Period:      f.Period,
		CourseName:  f.CourseName,
		TeacherName: f.TeacherName,
		Planned:     f.Planned,
		Capacity:    f.Capacity,
		Duration:    f.Duration,
		ClassNames:  f.ClassNames,
	}
}

// Record returns the fixture as a loosely typed import record, the shape
// produced by JSON and CSV import files.
func (f SessionFixture) Record() map[string]any {
	record := map[string]any{
		"date":         f.Date,
		"period":       strconv.Itoa(f.Period),
		"course_name":  f.CourseName,
		"teacher_name": f.TeacherName,
	}
	if f.RoomName != "" {
		record["room_name"] = f.RoomName
	} else {
		record["room_id"] = strconv.Itoa(f.RoomID)
	}
	if f.ClassNames != nil {
		record["class_names"] = *f.ClassNames
	}
	if f.Planned != nil {
		record["planned"] = strconv.Itoa(*f.Planned)
	}
	if f.Capacity != nil {
		record["capacity"] = strconv.Itoa(*f.Capacity)
	}
	if f.Duration != nil {
		record["duration"] = strconv.Itoa(*f.Duration)
	}
	return record
}

// Row returns the fixture as an application.RowInput.
func (f SessionFixture) Row() application.RowInput {
	row := application.RowInput{RoomName: f.RoomName, SessionInput: f.Input()}
	if f.RoomName == "" {
		id := f.RoomID
		row.RoomID = &id
	}
	return row
}
