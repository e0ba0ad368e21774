// internal/report/calendar.go
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
)

// Scope selects whose scheduled capacity the calendar should price. A nil
// PersonID means the unit-wide schedule.
type Scope struct {
	PersonID *uuid.UUID
}

// WorkingCalendar is the external capacity collaborator. Implementations are
// expected to know national holidays and company blackout days.
type WorkingCalendar interface {
	ScheduledMinutes(ctx context.Context, from, to time.Time, scope Scope) (float64, error)
	IsWorkingDay(ctx context.Context, date time.Time) (bool, error)
}

// Shift is one scheduled working window on a given date, expressed in the
// person's timezone.
type Shift struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// PersonSchedule resolves a person's shift window for a date. The second
// return is false when the person has no shift that day.
type PersonSchedule interface {
	ShiftWindow(ctx context.Context, personID uuid.UUID, date time.Time) (Shift, bool, error)
}

// WeeklyConfig describes the built-in company-wide schedule: same shift every
// working weekday, flat holiday list. External calendar services can replace
// it behind the interfaces above.
type WeeklyConfig struct {
	Timezone   string   `mapstructure:"timezone"`
	Workdays   []string `mapstructure:"workdays"`
	ShiftStart string   `mapstructure:"shift_start"`
	ShiftEnd   string   `mapstructure:"shift_end"`
	Holidays   []string `mapstructure:"holidays"`
}

// WeeklyCalendar implements WorkingCalendar and PersonSchedule from a
// WeeklyConfig. It applies the same schedule to every person.
type WeeklyCalendar struct {
	loc      *time.Location
	workdays map[time.Weekday]bool
	startMin int
	endMin   int
	holidays map[string]bool
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func NewWeeklyCalendar(cfg WeeklyConfig) (*WeeklyCalendar, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("calendar timezone %q: %w", cfg.Timezone, models.ErrCalendarUnavailable)
		}
		loc = l
	}
	workdays := map[time.Weekday]bool{}
	if len(cfg.Workdays) == 0 {
		for d := time.Monday; d <= time.Friday; d++ {
			workdays[d] = true
		}
	}
	for _, name := range cfg.Workdays {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown workday %q", name)
		}
		workdays[wd] = true
	}
	start, err := parseClock(cfg.ShiftStart, 8*60)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(cfg.ShiftEnd, 16*60)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("shift end %q not after start %q", cfg.ShiftEnd, cfg.ShiftStart)
	}
	holidays := map[string]bool{}
	for _, h := range cfg.Holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		holidays[h] = true
	}
	return &WeeklyCalendar{
		loc: loc, workdays: workdays, startMin: start, endMin: end, holidays: holidays,
	}, nil
}

// parseClock parses "HH:MM" into minutes from midnight.
func parseClock(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	return h*60 + m, nil
}

func (c *WeeklyCalendar) IsWorkingDay(_ context.Context, date time.Time) (bool, error) {
	d := date.In(c.loc)
	if !c.workdays[d.Weekday()] {
		return false, nil
	}
	return !c.holidays[d.Format("2006-01-02")], nil
}

// ScheduledMinutes sums the shift overlap with [from, to) across working days.
// The unit-wide and per-person schedules are the same here.
func (c *WeeklyCalendar) ScheduledMinutes(ctx context.Context, from, to time.Time, _ Scope) (float64, error) {
	if !to.After(from) {
		return 0, nil
	}
	total := 0.0
	day := startOfDay(from.In(c.loc))
	for day.Before(to) {
		working, err := c.IsWorkingDay(ctx, day)
		if err != nil {
			return 0, err
		}
		if working {
			shiftStart := day.Add(time.Duration(c.startMin) * time.Minute)
			shiftEnd := day.Add(time.Duration(c.endMin) * time.Minute)
			total += overlapMinutes(shiftStart, shiftEnd, from, to)
		}
		day = day.AddDate(0, 0, 1)
	}
	return total, nil
}

func (c *WeeklyCalendar) ShiftWindow(ctx context.Context, _ uuid.UUID, date time.Time) (Shift, bool, error) {
	working, err := c.IsWorkingDay(ctx, date)
	if err != nil || !working {
		return Shift{}, false, err
	}
	day := startOfDay(date.In(c.loc))
	return Shift{
		Start:    day.Add(time.Duration(c.startMin) * time.Minute),
		End:      day.Add(time.Duration(c.endMin) * time.Minute),
		Location: c.loc,
	}, true, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) float64 {
	if aStart.Before(bStart) {
		aStart = bStart
	}
	if aEnd.After(bEnd) {
		aEnd = bEnd
	}
	if !aEnd.After(aStart) {
		return 0
	}
	return aEnd.Sub(aStart).Minutes()
}
