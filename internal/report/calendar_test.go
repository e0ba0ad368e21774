package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCalendar(t *testing.T, cfg WeeklyConfig) *WeeklyCalendar {
	t.Helper()
	c, err := NewWeeklyCalendar(cfg)
	require.NoError(t, err)
	return c
}

func TestWeeklyCalendar_Defaults(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{})

	// 2025-01-06 is a Monday; defaults are Mon-Fri 08:00-16:00 UTC.
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	working, err := c.IsWorkingDay(context.Background(), monday)
	require.NoError(t, err)
	assert.True(t, working)
	working, err = c.IsWorkingDay(context.Background(), saturday)
	require.NoError(t, err)
	assert.False(t, working)

	got, err := c.ScheduledMinutes(context.Background(), monday, monday.AddDate(0, 0, 1), Scope{})
	require.NoError(t, err)
	assert.InDelta(t, 480, got, 1e-9)
}

func TestWeeklyCalendar_FullWeek(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{})
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	got, err := c.ScheduledMinutes(context.Background(), monday, monday.AddDate(0, 0, 7), Scope{})
	require.NoError(t, err)
	assert.InDelta(t, 5*480, got, 1e-9, "weekend contributes nothing")
}

func TestWeeklyCalendar_Holiday(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{Holidays: []string{"2025-01-06"}})
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	working, err := c.IsWorkingDay(context.Background(), monday)
	require.NoError(t, err)
	assert.False(t, working)

	got, err := c.ScheduledMinutes(context.Background(), monday, monday.AddDate(0, 0, 2), Scope{})
	require.NoError(t, err)
	assert.InDelta(t, 480, got, 1e-9, "only the Tuesday counts")
}

func TestWeeklyCalendar_PartialWindow(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{})
	// Window covers only the first half of the Monday shift.
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	got, err := c.ScheduledMinutes(context.Background(), from, to, Scope{})
	require.NoError(t, err)
	assert.InDelta(t, 240, got, 1e-9)
}

func TestWeeklyCalendar_CustomShiftAndDays(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{
		Workdays:   []string{"saturday", "sunday"},
		ShiftStart: "06:30",
		ShiftEnd:   "14:00",
	})
	saturday := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	got, err := c.ScheduledMinutes(context.Background(), saturday, saturday.AddDate(0, 0, 1), Scope{})
	require.NoError(t, err)
	assert.InDelta(t, 450, got, 1e-9)

	working, err := c.IsWorkingDay(context.Background(), saturday.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.False(t, working, "monday is off in this schedule")
}

func TestWeeklyCalendar_ShiftWindow(t *testing.T) {
	c := mustCalendar(t, WeeklyConfig{})
	monday := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	shift, ok, err := c.ShiftWindow(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC), shift.Start)
	assert.Equal(t, time.Date(2025, 1, 6, 16, 0, 0, 0, time.UTC), shift.End)

	sunday := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	_, ok, err = c.ShiftWindow(context.Background(), uuid.New(), sunday)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWeeklyCalendar_Validation(t *testing.T) {
	cases := []struct {
		name string
		cfg  WeeklyConfig
	}{
		{"bad timezone", WeeklyConfig{Timezone: "Mars/Olympus"}},
		{"bad workday", WeeklyConfig{Workdays: []string{"funday"}}},
		{"bad clock", WeeklyConfig{ShiftStart: "25:00"}},
		{"clock missing colon", WeeklyConfig{ShiftEnd: "1600"}},
		{"end before start", WeeklyConfig{ShiftStart: "16:00", ShiftEnd: "08:00"}},
		{"bad holiday", WeeklyConfig{Holidays: []string{"06.01.2025"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWeeklyCalendar(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("09:15", 0)
	require.NoError(t, err)
	assert.Equal(t, 9*60+15, got)

	got, err = parseClock("", 480)
	require.NoError(t, err)
	assert.Equal(t, 480, got, "empty falls back to the default")
}
