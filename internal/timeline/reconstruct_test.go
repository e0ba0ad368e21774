package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/models"
)

var day = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func statusEvent(owner uuid.UUID, seq int64, kind models.EventKind, ts time.Time) models.Event {
	return models.Event{
		ID:           uuid.New(),
		OwnerID:      owner,
		Seq:          seq,
		CreatedAtUtc: ts,
		Kind:         kind,
		Field:        models.FieldStatus,
	}
}

func totalMinutes(segs []models.Segment) float64 {
	var sum float64
	for _, s := range segs {
		sum += s.Minutes
	}
	return sum
}

func TestReconstruct_ExtraJobReplay(t *testing.T) {
	owner := uuid.New()
	item := models.WorkItem{ID: owner, Kind: models.KindExtraJob}
	events := []models.Event{
		statusEvent(owner, 1, models.EventStarted, at(9, 0)),
		statusEvent(owner, 2, models.EventStopped, at(9, 45)),
		statusEvent(owner, 3, models.EventReopened, at(9, 50)),
		statusEvent(owner, 4, models.EventStarted, at(10, 0)),
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item, Events: events, Now: at(10, 30)}, win)
	require.Len(t, segs, 2)
	assert.Equal(t, models.CategoryExtra, segs[0].Category)
	assert.Equal(t, at(9, 0), segs[0].StartUtc)
	assert.Equal(t, at(9, 45), segs[0].StopUtc)
	assert.InDelta(t, 45, segs[0].Minutes, 1e-9)
	assert.Equal(t, at(10, 0), segs[1].StartUtc)
	assert.Equal(t, at(10, 30), segs[1].StopUtc, "open run closes at now")
	assert.InDelta(t, 75, totalMinutes(segs), 1e-9)
}

func TestReconstruct_ExtraJobCancelledClosesRun(t *testing.T) {
	owner := uuid.New()
	item := models.WorkItem{ID: owner, Kind: models.KindExtraJob}
	events := []models.Event{
		statusEvent(owner, 1, models.EventStarted, at(9, 0)),
		statusEvent(owner, 2, models.EventCancelled, at(9, 20)),
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item, Events: events, Now: at(12, 0)}, win)
	require.Len(t, segs, 1)
	assert.InDelta(t, 20, segs[0].Minutes, 1e-9)
}

func TestReconstruct_ExtraJobUnorderedEvents(t *testing.T) {
	owner := uuid.New()
	item := models.WorkItem{ID: owner, Kind: models.KindExtraJob}
	// Same instant: seq breaks the tie, so the stop follows the start.
	events := []models.Event{
		statusEvent(owner, 2, models.EventStopped, at(9, 30)),
		statusEvent(owner, 1, models.EventStarted, at(9, 0)),
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item, Events: events, Now: at(12, 0)}, win)
	require.Len(t, segs, 1)
	assert.InDelta(t, 30, segs[0].Minutes, 1e-9)
}

func TestReconstruct_DurationFallback(t *testing.T) {
	start, stop := at(8, 0), at(10, 30)
	d := 150
	item := models.WorkItem{
		ID:              uuid.New(),
		Kind:            models.KindWorkOrder,
		StartAt:         &start,
		StopAt:          &stop,
		DurationMinutes: &d,
		CreatedAt:       at(7, 0),
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item}, win)
	require.Len(t, segs, 1)
	assert.Equal(t, start, segs[0].StartUtc)
	assert.Equal(t, stop, segs[0].StopUtc)
	assert.InDelta(t, 150, segs[0].Minutes, 1e-9)
}

func TestReconstruct_DurationFallbackUsesCreatedAtWhenStartMissing(t *testing.T) {
	d := 60
	item := models.WorkItem{
		ID:              uuid.New(),
		Kind:            models.KindWorkOrder,
		DurationMinutes: &d,
		CreatedAt:       at(9, 0),
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item}, win)
	require.Len(t, segs, 1)
	assert.Equal(t, at(9, 0), segs[0].StartUtc)
	assert.Equal(t, at(10, 0), segs[0].StopUtc)
}

func TestReconstruct_NoDurationNoSegments(t *testing.T) {
	item := models.WorkItem{ID: uuid.New(), Kind: models.KindWorkOrder, CreatedAt: at(9, 0)}
	win := Window{From: day, To: day.Add(24 * time.Hour)}
	assert.Empty(t, Reconstruct(Input{Item: item}, win))
}

func TestReconstruct_ClipsToWindow(t *testing.T) {
	start, stop := at(7, 0), at(11, 0)
	d := 240
	item := models.WorkItem{
		ID:              uuid.New(),
		Kind:            models.KindWorkOrder,
		StartAt:         &start,
		StopAt:          &stop,
		DurationMinutes: &d,
		CreatedAt:       at(6, 0),
	}
	win := Window{From: at(8, 0), To: at(10, 0)}

	segs := Reconstruct(Input{Item: item}, win)
	require.Len(t, segs, 1)
	assert.Equal(t, at(8, 0), segs[0].StartUtc)
	assert.Equal(t, at(10, 0), segs[0].StopUtc)
	assert.InDelta(t, 120, segs[0].Minutes, 1e-9)
}

func TestReconstruct_SplitWindowsSumLikeWhole(t *testing.T) {
	owner := uuid.New()
	item := models.WorkItem{ID: owner, Kind: models.KindExtraJob}
	events := []models.Event{
		statusEvent(owner, 1, models.EventStarted, at(7, 30)),
		statusEvent(owner, 2, models.EventStopped, at(12, 15)),
		statusEvent(owner, 3, models.EventStarted, at(13, 0)),
		statusEvent(owner, 4, models.EventStopped, at(16, 40)),
	}
	now := at(17, 0)

	whole := Window{From: at(6, 0), To: at(18, 0)}
	firstHalf := Window{From: at(6, 0), To: at(12, 0)}
	secondHalf := Window{From: at(12, 0), To: at(18, 0)}

	all := totalMinutes(Reconstruct(Input{Item: item, Events: events, Now: now}, whole))
	split := totalMinutes(Reconstruct(Input{Item: item, Events: events, Now: now}, firstHalf)) +
		totalMinutes(Reconstruct(Input{Item: item, Events: events, Now: now}, secondHalf))
	assert.InDelta(t, all, split, 1e-9)
}

func TestReconstruct_LaborOverridesDuration(t *testing.T) {
	start, stop := at(8, 0), at(16, 0)
	d := 480
	person := uuid.New()
	owner := uuid.New()
	item := models.WorkItem{
		ID:              owner,
		Kind:            models.KindWorkOrder,
		StartAt:         &start,
		StopAt:          &stop,
		DurationMinutes: &d,
		CreatedAt:       at(7, 0),
	}
	labor := []models.LaborLogEntry{
		{ID: uuid.New(), OwnerID: owner, PersonID: person, Minutes: 90, CreatedAt: at(10, 0)},
		{ID: uuid.New(), OwnerID: owner, PersonID: person, Minutes: 30, CreatedAt: at(14, 0)},
	}
	win := Window{From: day, To: day.Add(24 * time.Hour)}

	segs := Reconstruct(Input{Item: item, Labor: labor}, win)
	require.Len(t, segs, 2)
	assert.Equal(t, at(8, 30), segs[0].StartUtc)
	assert.Equal(t, at(10, 0), segs[0].StopUtc)
	assert.InDelta(t, 120, totalMinutes(segs), 1e-9, "labor replaces the 480-minute fallback")
}

func TestReconstruct_LaborAttributedByBookingTime(t *testing.T) {
	owner := uuid.New()
	person := uuid.New()
	item := models.WorkItem{ID: owner, Kind: models.KindWorkOrder, CreatedAt: at(7, 0)}
	labor := []models.LaborLogEntry{
		// Booked inside the window; the worked interval reaches before it.
		{ID: uuid.New(), OwnerID: owner, PersonID: person, Minutes: 120, CreatedAt: at(8, 30)},
		// Booked outside the window: excluded entirely.
		{ID: uuid.New(), OwnerID: owner, PersonID: person, Minutes: 60, CreatedAt: at(18, 30)},
	}
	win := Window{From: at(8, 0), To: at(18, 0)}

	segs := Reconstruct(Input{Item: item, Labor: labor}, win)
	require.Len(t, segs, 1)
	assert.Equal(t, at(6, 30), segs[0].StartUtc, "labor segments are not clipped")
	assert.InDelta(t, 120, segs[0].Minutes, 1e-9)
}

func TestFilterLaborByPerson(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entries := []models.LaborLogEntry{
		{PersonID: a, Minutes: 10},
		{PersonID: b, Minutes: 20},
		{PersonID: a, Minutes: 30},
	}
	got := FilterLaborByPerson(entries, a)
	require.Len(t, got, 2)
	assert.InDelta(t, 40, got[0].Minutes+got[1].Minutes, 1e-9)
	assert.Empty(t, FilterLaborByPerson(entries, uuid.New()))
}
