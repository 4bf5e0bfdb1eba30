package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-03-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2024-3-6", "2024/03/06", "06-03-2024", "2024-02-30", "2024-03-06T00:00:00Z", " 2024-03-06"} {
		_, err := ParseDate(bad)
		assert.Errorf(t, err, "expected %q to be rejected", bad)
	}
}

func TestIsSeasonalShift(t *testing.T) {
	t.Parallel()

	for _, year := range []int{2023, 2024, 2025} {
		assert.True(t, IsSeasonalShift(time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, IsSeasonalShift(time.Date(year, time.October, 7, 23, 59, 0, 0, time.UTC)))
		assert.True(t, IsSeasonalShift(time.Date(year, time.July, 15, 0, 0, 0, 0, time.UTC)))
		assert.False(t, IsSeasonalShift(time.Date(year, time.April, 30, 23, 59, 0, 0, time.UTC)))
		assert.False(t, IsSeasonalShift(time.Date(year, time.October, 8, 0, 0, 0, 0, time.UTC)))
		assert.False(t, IsSeasonalShift(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)))
	}
}

func TestPeriodWindows(t *testing.T) {
	t.Parallel()

	days := []time.Time{
		date(t, "2024-01-15"),
		date(t, "2024-04-30"),
		date(t, "2024-05-01"),
		date(t, "2024-10-07"),
		date(t, "2024-10-08"),
		date(t, "2024-12-31"),
	}
	for _, d := range days {
		windows := PeriodWindows(d)
		require.Len(t, windows, MaxPeriod)
		for i, w := range windows {
			assert.Equal(t, i+1, w.Period)
			assert.Equal(t, 50, w.End.Minutes()-w.Start.Minutes(), "period %d on %s", w.Period, FormatDate(d))
			if i > 0 {
				assert.Greater(t, w.Start.Minutes(), windows[i-1].End.Minutes(), "windows must not overlap")
			}
		}
	}
}

func TestPeriodWindows_Breaks(t *testing.T) {
	t.Parallel()

	windows := PeriodWindows(date(t, "2024-03-04"))
	gap := func(period int) int {
		return windows[period-1].Start.Minutes() - windows[period-2].End.Minutes()
	}
	assert.Equal(t, 10, gap(2))
	assert.Equal(t, 20, gap(3))
	assert.Equal(t, 10, gap(4))
	assert.Equal(t, 10, gap(6))
	assert.Equal(t, 20, gap(7))
	assert.Equal(t, 10, gap(8))
}

func TestPeriodWindows_ExactTimes(t *testing.T) {
	t.Parallel()

	render := func(windows []Window) []string {
		out := make([]string, 0, len(windows))
		for _, w := range windows {
			out = append(out, w.Start.String()+"-"+w.End.String())
		}
		return out
	}

	assert.Equal(t, []string{
		"08:00-08:50", "09:00-09:50", "10:10-11:00", "11:10-12:00",
		"14:00-14:50", "15:00-15:50", "16:10-17:00", "17:10-18:00",
	}, render(PeriodWindows(date(t, "2024-11-20"))))

	assert.Equal(t, []string{
		"08:00-08:50", "09:00-09:50", "10:10-11:00", "11:10-12:00",
		"14:30-15:20", "15:30-16:20", "16:40-17:30", "17:40-18:30",
	}, render(PeriodWindows(date(t, "2024-06-03"))))
}

func TestPeriodWindow(t *testing.T) {
	t.Parallel()

	w, ok := PeriodWindow(date(t, "2024-06-03"), 5)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 3, 14, 30, 0, 0, time.UTC), w.Start.On(date(t, "2024-06-03")))

	_, ok = PeriodWindow(date(t, "2024-06-03"), 0)
	assert.False(t, ok)
	_, ok = PeriodWindow(date(t, "2024-06-03"), 9)
	assert.False(t, ok)
}

func TestWeekBounds(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2024-03-04": "2024-03-04", // Monday
		"2024-03-06": "2024-03-04",
		"2024-03-10": "2024-03-04", // Sunday stays in the preceding Monday's week
		"2024-03-11": "2024-03-11",
		"2024-01-01": "2024-01-01",
		"2023-12-31": "2023-12-25",
	}
	for in, want := range cases {
		monday, sunday := WeekBounds(date(t, in))
		assert.Equal(t, want, FormatDate(monday), "monday for %s", in)
		assert.Equal(t, time.Monday, monday.Weekday())
		assert.Equal(t, time.Sunday, sunday.Weekday())
		assert.Equal(t, 0, monday.Hour()+monday.Minute()+monday.Second()+monday.Nanosecond())
		assert.Equal(t, 23, sunday.Hour())
		assert.Equal(t, 59, sunday.Minute())
		assert.Equal(t, 59, sunday.Second())
		assert.Equal(t, 999*int(time.Millisecond), sunday.Nanosecond())
	}
}

func TestWeekBounds_KeepsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CST", 8*60*60)
	monday, _ := WeekBounds(time.Date(2024, time.March, 6, 23, 30, 0, 0, loc))
	assert.Equal(t, loc, monday.Location())
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, loc), monday)
}

func TestWeekDatesAndInWeek(t *testing.T) {
	t.Parallel()

	days := WeekDates(date(t, "2024-03-07"))
	require.Len(t, days, DaysPerWeek)
	assert.Equal(t, "2024-03-04", FormatDate(days[0]))
	assert.Equal(t, "2024-03-10", FormatDate(days[6]))

	monday := date(t, "2024-03-04")
	assert.True(t, InWeek(date(t, "2024-03-04"), monday))
	assert.True(t, InWeek(date(t, "2024-03-10"), monday))
	assert.False(t, InWeek(date(t, "2024-03-03"), monday))
	assert.False(t, InWeek(date(t, "2024-03-11"), monday))
}

func TestWeekNumber(t *testing.T) {
	t.Parallel()

	start := date(t, "2024-02-26") // Monday

	assert.Equal(t, 0, WeekNumber(date(t, "2024-02-25"), start))
	assert.Equal(t, 0, WeekNumber(date(t, "2023-09-01"), start))
	assert.Equal(t, 1, WeekNumber(date(t, "2024-02-26"), start))
	assert.Equal(t, 1, WeekNumber(date(t, "2024-03-03"), start))
	assert.Equal(t, 2, WeekNumber(date(t, "2024-03-04"), start))
	assert.Equal(t, 18, WeekNumber(date(t, "2024-06-24"), start))
}

func TestWeekNumber_MidweekStart(t *testing.T) {
	t.Parallel()

	start := date(t, "2024-02-28") // Wednesday; its Monday is 2024-02-26

	assert.Equal(t, 1, WeekNumber(date(t, "2024-02-26"), start))
	assert.Equal(t, 0, WeekNumber(date(t, "2024-02-25"), start))
	assert.Equal(t, 2, WeekNumber(date(t, "2024-03-04"), start))
}

func TestSemesterYear(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2024, SemesterYear(date(t, "2024-02-26")))
	assert.Equal(t, 2023, SemesterYear(date(t, "2023-09-04")))
}
