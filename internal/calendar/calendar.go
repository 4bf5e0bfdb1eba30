// Package calendar maps calendar dates to the lab class periods of a day and to
// semester-relative teaching weeks.
//
// Every function is pure: no clock, timezone database or storage is consulted.
// Dates are interpreted in the location they carry; callers that parse user input
// should go through ParseDate, which yields midnight UTC.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted textual date format.
const DateLayout = "2006-01-02"

// MaxPeriod is the number of class periods in a day.
const MaxPeriod = 8

// DaysPerWeek is the number of columns in a week grid.
const DaysPerWeek = 7

// Seasonal shift window, closed on both ends.
const (
	shiftStartMonth = time.May
	shiftStartDay   = 1
	shiftEndMonth   = time.October
	shiftEndDay     = 7
)

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On anchors the clock to the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, date.Location())
}

// Window is the time span of one class period.
type Window struct {
	Period int
	Start  Clock
	End    Clock
}

type windowTable [4]Window

// Displays key off these exact times; do not derive them.
var (
	morningTable = windowTable{
		{Period: 1, Start: Clock{8, 0}, End: Clock{8, 50}},
		{Period: 2, Start: Clock{9, 0}, End: Clock{9, 50}},
		{Period: 3, Start: Clock{10, 10}, End: Clock{11, 0}},
		{Period: 4, Start: Clock{11, 10}, End: Clock{12, 0}},
	}
	winterAfternoonTable = windowTable{
		{Period: 5, Start: Clock{14, 0}, End: Clock{14, 50}},
		{Period: 6, Start: Clock{15, 0}, End: Clock{15, 50}},
		{Period: 7, Start: Clock{16, 10}, End: Clock{17, 0}},
		{Period: 8, Start: Clock{17, 10}, End: Clock{18, 0}},
	}
	summerAfternoonTable = windowTable{
		{Period: 5, Start: Clock{14, 30}, End: Clock{15, 20}},
		{Period: 6, Start: Clock{15, 30}, End: Clock{16, 20}},
		{Period: 7, Start: Clock{16, 40}, End: Clock{17, 30}},
		{Period: 8, Start: Clock{17, 40}, End: Clock{18, 30}},
	}
)

// ParseDate parses a strict YYYY-MM-DD string into midnight UTC.
func ParseDate(value string) (time.Time, error) {
	if len(value) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("calendar: date %q must use YYYY-MM-DD", value)
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: date %q must use YYYY-MM-DD: %w", value, err)
	}
	return parsed, nil
}

// FormatDate renders the calendar day of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidPeriod reports whether period is one of the day's class periods.
func ValidPeriod(period int) bool {
	return period >= 1 && period <= MaxPeriod
}

// IsSeasonalShift reports whether date falls in the yearly window during which
// the afternoon periods start later.
func IsSeasonalShift(date time.Time) bool {
	_, m, d := date.Date()
	key := int(m)*100 + d
	return key >= int(shiftStartMonth)*100+shiftStartDay && key <= int(shiftEndMonth)*100+shiftEndDay
}

// PeriodWindows returns the eight period windows of date in ascending order.
func PeriodWindows(date time.Time) []Window {
	afternoon := winterAfternoonTable
	if IsSeasonalShift(date) {
		afternoon = summerAfternoonTable
	}
	windows := make([]Window, 0, MaxPeriod)
	windows = append(windows, morningTable[:]...)
	windows = append(windows, afternoon[:]...)
	return windows
}

// PeriodWindow returns the window of a single period on date.
func PeriodWindow(date time.Time, period int) (Window, bool) {
	if !ValidPeriod(period) {
		return Window{}, false
	}
	return PeriodWindows(date)[period-1], true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekBounds returns the Monday 00:00:00.000 and Sunday 23:59:59.999 of the
// week containing date. Weeks always start on Monday.
func WeekBounds(date time.Time) (monday, sunday time.Time) {
	day := StartOfDay(date)
	offset := (int(day.Weekday()) + 6) % 7
	monday = day.AddDate(0, 0, -offset)
	sunday = monday.AddDate(0, 0, DaysPerWeek-1).
		Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond)
	return monday, sunday
}

// WeekDates returns the seven calendar days, Monday first, of the week containing date.
func WeekDates(date time.Time) []time.Time {
	monday, _ := WeekBounds(date)
	days := make([]time.Time, DaysPerWeek)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// InWeek reports whether date falls on one of the days of the week starting at monday.
func InWeek(date, monday time.Time) bool {
	start, _ := WeekBounds(monday)
	diff := daysBetween(start, StartOfDay(date))
	return diff >= 0 && diff < DaysPerWeek
}

// WeekNumber returns the 1-indexed teaching week of date relative to the week
// containing semesterStart. Dates before that week yield 0.
func WeekNumber(date, semesterStart time.Time) int {
	startMonday, _ := WeekBounds(semesterStart)
	dateMonday, _ := WeekBounds(date)
	days := daysBetween(startMonday, dateMonday)
	if days < 0 {
		return 0
	}
	return days/DaysPerWeek + 1
}

// SemesterYear returns the calendar year of the semester start.
func SemesterYear(semesterStart time.Time) int {
	return semesterStart.Year()
}

// daysBetween counts calendar days from a to b using date components only, so
// DST transitions in the carried location cannot skew the result.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
