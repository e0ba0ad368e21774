// internal/timeline/reconstruct.go
package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
)

// minSegmentMinutes drops clipping artifacts: segments shorter than this are
// discarded.
const minSegmentMinutes = 0.01

// Window is a half-open interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Input is everything the reconstructor needs for one work item. Events are
// required for extra jobs; Labor should be pre-filtered to the target person
// (see FilterLaborByPerson). Now closes a still-running final segment.
type Input struct {
	Item   models.WorkItem
	Events []models.Event
	Labor  []models.LaborLogEntry
	Now    time.Time
}

// Reconstruct replays one work item into non-overlapping worked-time segments
// inside the window.
//
// Work orders: labor-log entries, when present, override the fallback — each
// entry whose CreatedAt falls inside the window contributes
// [CreatedAt - Minutes, CreatedAt]. Otherwise a single segment is derived from
// the duration fields and clipped to the window.
//
// Extra jobs: the status events are replayed, pairing each Started with the
// next Stopped or Cancelled; a run still open at the end is closed at Now.
func Reconstruct(in Input, win Window) []models.Segment {
	cat := Classify(in.Item)
	if in.Item.Kind == models.KindExtraJob {
		return replayEvents(in.Events, in.Now, cat, win)
	}
	if len(in.Labor) > 0 {
		return laborSegments(in.Labor, cat, win)
	}
	return durationFallback(in.Item, cat, win)
}

// FilterLaborByPerson narrows labor entries to one person.
func FilterLaborByPerson(entries []models.LaborLogEntry, personID uuid.UUID) []models.LaborLogEntry {
	var out []models.LaborLogEntry
	for _, e := range entries {
		if e.PersonID == personID {
			out = append(out, e)
		}
	}
	return out
}

func laborSegments(entries []models.LaborLogEntry, cat models.Category, win Window) []models.Segment {
	var out []models.Segment
	for _, e := range entries {
		// Entries are attributed by their booking time, not clipped.
		if e.CreatedAt.Before(win.From) || !e.CreatedAt.Before(win.To) {
			continue
		}
		start := e.CreatedAt.Add(-time.Duration(e.Minutes * float64(time.Minute)))
		seg := models.Segment{
			Category: cat,
			StartUtc: start,
			StopUtc:  e.CreatedAt,
			Minutes:  e.Minutes,
		}
		if seg.Minutes >= minSegmentMinutes {
			out = append(out, seg)
		}
	}
	return out
}

func durationFallback(wi models.WorkItem, cat models.Category, win Window) []models.Segment {
	if wi.DurationMinutes == nil {
		return nil
	}
	start := wi.CreatedAt
	if wi.StartAt != nil {
		start = *wi.StartAt
	}
	end := start.Add(time.Duration(*wi.DurationMinutes) * time.Minute)
	if wi.StopAt != nil {
		end = *wi.StopAt
	}
	if seg, ok := clip(start, end, cat, win); ok {
		return []models.Segment{seg}
	}
	return nil
}

func replayEvents(events []models.Event, now time.Time, cat models.Category, win Window) []models.Segment {
	statusEvents := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if ev.Field == models.FieldStatus {
			statusEvents = append(statusEvents, ev)
		}
	}
	sort.SliceStable(statusEvents, func(i, j int) bool {
		if statusEvents[i].CreatedAtUtc.Equal(statusEvents[j].CreatedAtUtc) {
			return statusEvents[i].Seq < statusEvents[j].Seq
		}
		return statusEvents[i].CreatedAtUtc.Before(statusEvents[j].CreatedAtUtc)
	})

	var (
		out       []models.Segment
		lastStart *time.Time
	)
	for _, ev := range statusEvents {
		switch ev.Kind {
		case models.EventStarted:
			t := ev.CreatedAtUtc
			lastStart = &t
		case models.EventStopped, models.EventCancelled:
			if lastStart != nil {
				if seg, ok := clip(*lastStart, ev.CreatedAtUtc, cat, win); ok {
					out = append(out, seg)
				}
				lastStart = nil
			}
		}
	}
	if lastStart != nil {
		if seg, ok := clip(*lastStart, now, cat, win); ok {
			out = append(out, seg)
		}
	}
	return out
}

// clip intersects [start, end] with the window and drops empty results.
func clip(start, end time.Time, cat models.Category, win Window) (models.Segment, bool) {
	if start.Before(win.From) {
		start = win.From
	}
	if end.After(win.To) {
		end = win.To
	}
	if !end.After(start) {
		return models.Segment{}, false
	}
	minutes := end.Sub(start).Minutes()
	if minutes < minSegmentMinutes {
		return models.Segment{}, false
	}
	return models.Segment{Category: cat, StartUtc: start, StopUtc: end, Minutes: minutes}, true
}
