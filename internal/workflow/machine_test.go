package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/models"
	"worktrack/internal/repo"
)

var testNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store   repo.Store
	machine *Machine
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: repo.NewMemory(), now: testNow}
	f.machine = NewWithClock(f.store, func() time.Time { return f.now })
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) createWorkOrder(t *testing.T, person *uuid.UUID) models.WorkItem {
	t.Helper()
	wi, err := f.machine.Create(context.Background(), CreateInput{
		Kind:           models.KindWorkOrder,
		Title:          "replace bearing",
		AssignedPerson: person,
	}, "tester")
	require.NoError(t, err)
	return wi
}

func (f *fixture) createExtraJob(t *testing.T, person uuid.UUID, title string) models.WorkItem {
	t.Helper()
	wi, err := f.machine.Create(context.Background(), CreateInput{
		Kind:           models.KindExtraJob,
		Title:          title,
		AssignedPerson: &person,
	}, "tester")
	require.NoError(t, err)
	return wi
}

func TestCreate_OpenWithBirthEvents(t *testing.T) {
	f := newFixture(t)
	person := uuid.New()
	wi := f.createWorkOrder(t, &person)

	assert.Equal(t, models.StatusOpen, wi.Status)
	assert.Nil(t, wi.StartAt)
	assert.Nil(t, wi.StopAt)
	assert.Nil(t, wi.DurationMinutes)

	events, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.EventCreated, events[0].Kind)
	assert.Equal(t, "replace bearing", events[0].NewValue)
	assert.Equal(t, models.EventStatusChanged, events[1].Kind)
	assert.Equal(t, models.StatusOpen, events[1].ToStatus)
	assert.Equal(t, models.EventAssignedChanged, events[2].Kind)

	// All birth events share one correlation id.
	for _, ev := range events[1:] {
		assert.Equal(t, events[0].CorrelationID, ev.CorrelationID)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	var vErr *models.ValidationError

	_, err := f.machine.Create(context.Background(), CreateInput{Kind: models.KindWorkOrder}, "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)

	_, err = f.machine.Create(context.Background(), CreateInput{Kind: "bogus", Title: "x"}, "")
	require.ErrorAs(t, err, &vErr)

	// Extra jobs require an assignee.
	_, err = f.machine.Create(context.Background(), CreateInput{Kind: models.KindExtraJob, Title: "x"}, "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "assigned_person_id", vErr.Field)
}

func TestTransitionLegality(t *testing.T) {
	type action func(*Machine, uuid.UUID) error
	start := func(m *Machine, id uuid.UUID) error { _, err := m.Start(context.Background(), id, ""); return err }
	stop := func(m *Machine, id uuid.UUID) error { _, err := m.Stop(context.Background(), id, ""); return err }
	cancel := func(m *Machine, id uuid.UUID) error { _, err := m.Cancel(context.Background(), id, ""); return err }
	reopen := func(m *Machine, id uuid.UUID) error { _, err := m.Reopen(context.Background(), id, ""); return err }

	cases := []struct {
		name   string
		from   models.Status
		act    action
		wantOK bool
	}{
		{"start from open", models.StatusOpen, start, true},
		{"start from in_progress", models.StatusInProgress, start, false},
		{"start from done", models.StatusDone, start, false},
		{"start from cancelled", models.StatusCancelled, start, false},
		{"stop from open", models.StatusOpen, stop, false},
		{"stop from in_progress", models.StatusInProgress, stop, true},
		{"stop from done", models.StatusDone, stop, false},
		{"stop from cancelled", models.StatusCancelled, stop, false},
		{"cancel from open", models.StatusOpen, cancel, true},
		{"cancel from in_progress", models.StatusInProgress, cancel, true},
		{"cancel from done", models.StatusDone, cancel, false},
		{"cancel from cancelled", models.StatusCancelled, cancel, false},
		{"reopen from open", models.StatusOpen, reopen, false},
		{"reopen from in_progress", models.StatusInProgress, reopen, false},
		{"reopen from done", models.StatusDone, reopen, true},
		{"reopen from cancelled", models.StatusCancelled, reopen, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			wi := f.createWorkOrder(t, nil)
			driveTo(t, f, wi.ID, tc.from)

			err := tc.act(f.machine, wi.ID)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				var invalid *models.InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tc.from, invalid.From)
			}
		})
	}
}

// driveTo walks an open item to the wanted status via legal transitions.
func driveTo(t *testing.T, f *fixture, id uuid.UUID, want models.Status) {
	t.Helper()
	ctx := context.Background()
	switch want {
	case models.StatusOpen:
	case models.StatusInProgress:
		_, err := f.machine.Start(ctx, id, "")
		require.NoError(t, err)
	case models.StatusDone:
		_, err := f.machine.Start(ctx, id, "")
		require.NoError(t, err)
		_, err = f.machine.Stop(ctx, id, "")
		require.NoError(t, err)
	case models.StatusCancelled:
		_, err := f.machine.Cancel(ctx, id, "")
		require.NoError(t, err)
	}
}

func TestStartStop_DurationAndEvents(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)

	// Start at 08:00Z, stop at 10:30Z.
	started, err := f.machine.Start(context.Background(), wi.ID, "tech-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	require.NotNil(t, started.StartAt)
	assert.Equal(t, testNow, *started.StartAt)

	f.advance(150 * time.Minute)
	stopped, err := f.machine.Stop(context.Background(), wi.ID, "tech-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, stopped.Status)
	require.NotNil(t, stopped.DurationMinutes)
	assert.Equal(t, 150, *stopped.DurationMinutes)
	require.NotNil(t, stopped.StopAt)
	assert.Equal(t, 150, models.DurationBetween(*stopped.StartAt, *stopped.StopAt))

	events, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)
	var statusEvents []models.Event
	for _, ev := range events {
		if ev.IsStatusChange() && ev.Kind != models.EventStatusChanged {
			statusEvents = append(statusEvents, ev)
		}
	}
	require.Len(t, statusEvents, 2)
	assert.Equal(t, models.StatusOpen, statusEvents[0].FromStatus)
	assert.Equal(t, models.StatusInProgress, statusEvents[0].ToStatus)
	assert.Equal(t, models.StatusInProgress, statusEvents[1].FromStatus)
	assert.Equal(t, models.StatusDone, statusEvents[1].ToStatus)
}

func TestStop_BackfillsMissingStart(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)
	_, err := f.machine.Start(context.Background(), wi.ID, "")
	require.NoError(t, err)

	// Clear start_at through the bulk edit path, then stop.
	_, err = f.machine.Update(context.Background(), wi.ID, UpdatePatch{ClearStart: true}, "")
	require.NoError(t, err)

	f.advance(10 * time.Minute)
	stopped, err := f.machine.Stop(context.Background(), wi.ID, "")
	require.NoError(t, err)
	require.NotNil(t, stopped.StartAt)
	assert.Equal(t, *stopped.StopAt, *stopped.StartAt)
	require.NotNil(t, stopped.DurationMinutes)
	assert.Equal(t, 0, *stopped.DurationMinutes)
}

func TestReopen_DiscardsTimestamps(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)
	driveTo(t, f, wi.ID, models.StatusDone)

	reopened, err := f.machine.Reopen(context.Background(), wi.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, reopened.Status)
	assert.Nil(t, reopened.StartAt)
	assert.Nil(t, reopened.StopAt)
	assert.Nil(t, reopened.DurationMinutes)

	// The prior run survives in the event log.
	events, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)
	var sawStop bool
	for _, ev := range events {
		if ev.Kind == models.EventStopped && ev.Field == models.FieldStopAt {
			sawStop = true
		}
	}
	assert.True(t, sawStop)
}

func TestRestartAfterReopen_FreshRun(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)
	driveTo(t, f, wi.ID, models.StatusDone)
	_, err := f.machine.Reopen(context.Background(), wi.ID, "")
	require.NoError(t, err)

	f.advance(time.Hour)
	restarted, err := f.machine.Start(context.Background(), wi.ID, "")
	require.NoError(t, err)
	require.NotNil(t, restarted.StartAt)
	assert.Equal(t, f.now, *restarted.StartAt)
	assert.Nil(t, restarted.StopAt)
	assert.Nil(t, restarted.DurationMinutes)
}

func TestCancel_LeavesTimestamps(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)
	_, err := f.machine.Start(context.Background(), wi.ID, "")
	require.NoError(t, err)

	cancelled, err := f.machine.Cancel(context.Background(), wi.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.StartAt, "cancel must not touch timestamps")
}

func TestExtraJob_SingleFlightPerPerson(t *testing.T) {
	f := newFixture(t)
	person := uuid.New()
	first := f.createExtraJob(t, person, "sweep floor")
	second := f.createExtraJob(t, person, "move pallets")

	_, err := f.machine.Start(context.Background(), first.ID, "")
	require.NoError(t, err)

	_, err = f.machine.Start(context.Background(), second.ID, "")
	var conflict *models.ConflictingActivityError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, person, conflict.PersonID)
	assert.Equal(t, first.ID, conflict.BlockingID)
	assert.Equal(t, "sweep floor", conflict.BlockingTitle)

	// After stopping the blocker the second start goes through.
	_, err = f.machine.Stop(context.Background(), first.ID, "")
	require.NoError(t, err)
	_, err = f.machine.Start(context.Background(), second.ID, "")
	assert.NoError(t, err)
}

func TestWorkOrder_NoSingleFlight(t *testing.T) {
	f := newFixture(t)
	person := uuid.New()
	first := f.createWorkOrder(t, &person)
	second := f.createWorkOrder(t, &person)

	_, err := f.machine.Start(context.Background(), first.ID, "")
	require.NoError(t, err)
	_, err = f.machine.Start(context.Background(), second.ID, "")
	assert.NoError(t, err, "work orders may run concurrently for one person")
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.machine.Start(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, models.ErrWorkItemNotFound)
	_, err = f.machine.GetEvents(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrWorkItemNotFound)
}

// --- event atomicity ---

var errInjected = errors.New("injected append failure")

type failingTx struct{ repo.Tx }

func (failingTx) AppendEvents(context.Context, []models.Event) error { return errInjected }

type failingStore struct{ repo.Store }

func (f failingStore) Tx(ctx context.Context, fn func(tx repo.Tx) error) error {
	return f.Store.Tx(ctx, func(tx repo.Tx) error { return fn(failingTx{tx}) })
}

func TestEventAppendFailureRollsBackTransition(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)

	broken := NewWithClock(failingStore{f.store}, func() time.Time { return f.now })
	_, err := broken.Start(context.Background(), wi.ID, "")
	require.ErrorIs(t, err, errInjected)

	// The mutation must not have committed without its events.
	current, err := f.machine.Get(context.Background(), wi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, current.Status)
	assert.Nil(t, current.StartAt)

	events, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2, "only the creation events exist")
}

func TestInvalidTransitionLeavesNoEvents(t *testing.T) {
	f := newFixture(t)
	wi := f.createWorkOrder(t, nil)
	before, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)

	_, err = f.machine.Stop(context.Background(), wi.ID, "")
	var invalid *models.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	after, err := f.machine.GetEvents(context.Background(), wi.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}
