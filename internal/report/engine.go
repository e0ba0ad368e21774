// internal/report/engine.go
package report

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
	"worktrack/internal/repo"
	"worktrack/internal/timeline"
)

type GroupBy string

const (
	GroupByPerson GroupBy = "person"
	GroupByAsset  GroupBy = "asset"
)

// Request describes one report: a half-open window, a grouping key and
// optional filters. SplitByDay breaks each group into per-day rows at the
// group's local day boundary.
type Request struct {
	GroupBy    GroupBy
	From       time.Time
	To         time.Time
	PersonIDs  []uuid.UUID
	AssetIDs   []uuid.UUID
	Kinds      []models.Kind
	SplitByDay bool
}

// Row is one report line. WorkedPct and ReactivePct are nil when the
// scheduled-capacity denominator is zero or unavailable. Percentages can
// exceed 100 when concurrent work orders overlap; they are reported as-is.
type Row struct {
	ID                uuid.UUID               `json:"id"`
	Name              string                  `json:"name"`
	Day               *time.Time              `json:"day,omitempty"`
	MinutesByCategory map[models.Category]int `json:"minutes_by_category"`
	TotalMinutes      int                     `json:"total_minutes"`
	WorkedPct         *float64                `json:"worked_pct"`
	ReactivePct       *float64                `json:"reactive_pct"`
	OvertimeMinutes   int                     `json:"overtime_minutes"`
	Segments          []models.Segment        `json:"segments,omitempty"`
}

// Engine turns the event log, duration fields and the working calendar into
// per-person or per-asset worked-time rows. It is read-only; a cancelled
// context aborts cleanly between groups.
type Engine struct {
	store    repo.Store
	calendar WorkingCalendar
	shifts   PersonSchedule
	now      func() time.Time
}

func NewEngine(store repo.Store, calendar WorkingCalendar, shifts PersonSchedule) *Engine {
	return &Engine{store: store, calendar: calendar, shifts: shifts, now: time.Now}
}

// NewEngineWithClock injects a clock for tests.
func NewEngineWithClock(store repo.Store, calendar WorkingCalendar, shifts PersonSchedule, now func() time.Time) *Engine {
	return &Engine{store: store, calendar: calendar, shifts: shifts, now: now}
}

// BuildReport produces one row per group (or per group and day). A failure
// inside a single group drops that group with a logged error; only
// cancellation aborts the whole report.
func (e *Engine) BuildReport(ctx context.Context, req Request) ([]Row, error) {
	if req.GroupBy != GroupByPerson && req.GroupBy != GroupByAsset {
		return nil, &models.ValidationError{Field: "group_by", Reason: "must be person or asset"}
	}
	if !req.To.After(req.From) {
		return nil, &models.ValidationError{Field: "to", Reason: "window must not be empty"}
	}

	filter := repo.WorkItemFilter{
		Kinds: req.Kinds,
		From:  &req.From,
		To:    &req.To,
	}
	if req.GroupBy == GroupByPerson {
		filter.PersonIDs = req.PersonIDs
	} else {
		filter.AssetIDs = req.AssetIDs
	}
	items, err := e.store.ListWorkItems(ctx, filter)
	if err != nil {
		return nil, err
	}

	groups := map[uuid.UUID][]models.WorkItem{}
	for _, wi := range items {
		var key *uuid.UUID
		if req.GroupBy == GroupByPerson {
			key = wi.AssignedPerson
		} else {
			key = wi.AssetID
		}
		if key == nil {
			continue
		}
		groups[*key] = append(groups[*key], wi)
	}

	keys := make([]uuid.UUID, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var rows []Row
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groupRows, err := e.buildGroup(ctx, req, key, groups[key])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// One bad group must not abort the batch.
			slog.ErrorContext(ctx, "report group failed", "group_id", key.String(), "err", err)
			continue
		}
		rows = append(rows, groupRows...)
	}
	return rows, nil
}

func (e *Engine) buildGroup(ctx context.Context, req Request, key uuid.UUID, items []models.WorkItem) ([]Row, error) {
	name, tz := e.resolveGroup(ctx, req.GroupBy, key)
	loc := resolveLocation(ctx, tz)
	now := e.now().UTC()
	win := timeline.Window{From: req.From, To: req.To}

	var segments []models.Segment
	for _, wi := range items {
		in := timeline.Input{Item: wi, Now: now}
		if wi.Kind == models.KindExtraJob {
			events, err := e.store.ListEvents(ctx, wi.ID)
			if err != nil {
				return nil, err
			}
			in.Events = events
		} else {
			labor, err := e.store.ListLaborEntries(ctx, wi.ID)
			if err != nil {
				return nil, err
			}
			if req.GroupBy == GroupByPerson {
				labor = timeline.FilterLaborByPerson(labor, key)
			}
			in.Labor = labor
		}
		segments = append(segments, timeline.Reconstruct(in, win)...)
	}

	scope := Scope{}
	if req.GroupBy == GroupByPerson {
		pid := key
		scope.PersonID = &pid
	}

	if !req.SplitByDay {
		row := e.buildRow(ctx, key, name, nil, segments, req.From, req.To, scope)
		return []Row{row}, nil
	}

	byDay := map[time.Time][]models.Segment{}
	for _, seg := range segments {
		for _, piece := range splitAtDayBoundaries(seg, loc) {
			day := startOfDay(piece.StartUtc.In(loc))
			byDay[day] = append(byDay[day], piece)
		}
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var rows []Row
	for _, day := range days {
		dayFrom, dayTo := day, day.AddDate(0, 0, 1)
		// Clip day bounds to the requested window for the denominator.
		if dayFrom.Before(req.From) {
			dayFrom = req.From
		}
		if dayTo.After(req.To) {
			dayTo = req.To
		}
		d := day
		rows = append(rows, e.buildRow(ctx, key, name, &d, byDay[day], dayFrom, dayTo, scope))
	}
	return rows, nil
}

func (e *Engine) buildRow(ctx context.Context, id uuid.UUID, name string, day *time.Time, segments []models.Segment, from, to time.Time, scope Scope) Row {
	sums := map[models.Category]float64{}
	var total float64
	for _, seg := range segments {
		sums[seg.Category] += seg.Minutes
		total += seg.Minutes
	}
	reactive := sums[models.CategoryReactive]
	minutes := make(map[models.Category]int, len(sums))
	for cat, m := range sums {
		minutes[cat] = int(math.Round(m))
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].StartUtc.Before(segments[j].StartUtc) })

	row := Row{
		ID:                id,
		Name:              name,
		Day:               day,
		MinutesByCategory: minutes,
		TotalMinutes:      int(math.Round(total)),
		Segments:          segments,
	}

	scheduled, err := e.calendar.ScheduledMinutes(ctx, from, to, scope)
	if err != nil {
		// Calendar trouble degrades the row instead of failing the report.
		slog.WarnContext(ctx, "scheduled minutes unavailable", "group_id", id.String(), "err", err)
	} else if scheduled > 0 {
		worked := round1(total / scheduled * 100)
		reactivePct := round1(reactive / scheduled * 100)
		row.WorkedPct = &worked
		row.ReactivePct = &reactivePct
	}

	if scope.PersonID != nil && len(segments) > 0 && e.shifts != nil {
		row.OvertimeMinutes = e.overtime(ctx, *scope.PersonID, segments)
	}
	return row
}

// overtime compares the latest segment end against the scheduled shift end on
// the day of the first segment, in the person's shift timezone.
func (e *Engine) overtime(ctx context.Context, personID uuid.UUID, segments []models.Segment) int {
	shift, ok, err := e.shifts.ShiftWindow(ctx, personID, segments[0].StartUtc)
	if err != nil {
		slog.WarnContext(ctx, "shift window unavailable", "person_id", personID.String(), "err", err)
		return 0
	}
	if !ok {
		return 0
	}
	latest := segments[0].StopUtc
	for _, seg := range segments[1:] {
		if seg.StopUtc.After(latest) {
			latest = seg.StopUtc
		}
	}
	over := latest.Sub(shift.End).Minutes()
	if over <= 0 {
		return 0
	}
	return int(math.Round(over))
}

func (e *Engine) resolveGroup(ctx context.Context, groupBy GroupBy, id uuid.UUID) (name, tz string) {
	if groupBy == GroupByPerson {
		p, err := e.store.GetPerson(ctx, id)
		if err != nil {
			return "Unknown", ""
		}
		return p.Name, p.Timezone
	}
	a, err := e.store.GetAsset(ctx, id)
	if err != nil {
		return "Unknown", ""
	}
	return a.Name, a.Timezone
}

// resolveLocation loads a tz name, falling back to UTC when it cannot be
// resolved rather than failing the row.
func resolveLocation(ctx context.Context, tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.WarnContext(ctx, "unresolvable timezone, using UTC", "tz", tz)
		return time.UTC
	}
	return loc
}

// splitAtDayBoundaries cuts a segment at local midnights so a run spanning
// midnight lands in both day buckets without gap or overlap.
func splitAtDayBoundaries(seg models.Segment, loc *time.Location) []models.Segment {
	var out []models.Segment
	cur := seg.StartUtc
	for cur.Before(seg.StopUtc) {
		nextMidnight := startOfDay(cur.In(loc)).AddDate(0, 0, 1)
		end := seg.StopUtc
		if nextMidnight.Before(end) {
			end = nextMidnight
		}
		out = append(out, models.Segment{
			Category: seg.Category,
			StartUtc: cur,
			StopUtc:  end,
			Minutes:  end.Sub(cur).Minutes(),
		})
		cur = end
	}
	return out
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
