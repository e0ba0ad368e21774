// internal/workflow/machine.go
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
	"worktrack/internal/repo"
)

// Machine drives the shared lifecycle of work orders and extra jobs:
//
//	open -> in_progress -> done
//	open | in_progress -> cancelled
//	done | cancelled -> open (reopen)
//
// Every operation is one transaction: mutate the item, append the audit events
// under one correlation id, propagate the linked asset's status, commit.
type Machine struct {
	store repo.Store
	now   func() time.Time
}

func New(store repo.Store) *Machine {
	return &Machine{store: store, now: time.Now}
}

// NewWithClock injects a clock for tests.
func NewWithClock(store repo.Store, now func() time.Time) *Machine {
	return &Machine{store: store, now: now}
}

// CreateInput carries the fields accepted at creation time. Classification,
// Type and AssetID apply to work orders only.
type CreateInput struct {
	Kind           models.Kind
	Title          string
	Description    string
	Classification *models.Classification
	Type           models.WorkOrderType
	AssignedPerson *uuid.UUID
	AssetID        *uuid.UUID
}

func (in CreateInput) validate() error {
	switch in.Kind {
	case models.KindWorkOrder, models.KindExtraJob:
	default:
		return &models.ValidationError{Field: "kind", Reason: "must be work_order or extra_job"}
	}
	if in.Title == "" {
		return &models.ValidationError{Field: "title", Reason: "required"}
	}
	if in.Kind == models.KindExtraJob {
		if in.AssignedPerson == nil {
			return &models.ValidationError{Field: "assigned_person_id", Reason: "required for extra jobs"}
		}
		if in.AssetID != nil || in.Classification != nil || in.Type != "" {
			return &models.ValidationError{Field: "kind", Reason: "extra jobs carry no asset, classification or type"}
		}
	}
	return nil
}

// Create inserts a new item in the open state and writes its birth events.
func (m *Machine) Create(ctx context.Context, in CreateInput, actorID string) (models.WorkItem, error) {
	if err := in.validate(); err != nil {
		return models.WorkItem{}, err
	}
	now := m.now().UTC()
	wi := models.WorkItem{
		ID:             uuid.New(),
		Kind:           in.Kind,
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.StatusOpen,
		Classification: in.Classification,
		Type:           in.Type,
		AssignedPerson: in.AssignedPerson,
		AssetID:        in.AssetID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	rec := newRecorder(wi.ID, actorID, now)
	rec.add(models.EventCreated, models.FieldTitle, "", wi.Title, "")
	rec.status(models.EventStatusChanged, "", models.StatusOpen, "")
	if wi.AssignedPerson != nil {
		rec.add(models.EventAssignedChanged, models.FieldAssignedPerson, "", wi.AssignedPerson.String(), "")
	}

	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		if err := tx.InsertWorkItem(ctx, wi); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, rec.events)
	})
	if err != nil {
		slog.ErrorContext(ctx, "create failed", "err", err, "kind", string(wi.Kind))
		return models.WorkItem{}, err
	}
	slog.InfoContext(ctx, "work item created",
		"id", wi.ID.String(), "kind", string(wi.Kind), "correlation_id", rec.correlation.String())
	return wi, nil
}

// Start moves an open item to in_progress. For extra jobs it refuses when the
// assignee already has another one running, surfacing the blocker.
func (m *Machine) Start(ctx context.Context, id uuid.UUID, actorID string) (models.WorkItem, error) {
	now := m.now().UTC()
	var out models.WorkItem
	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		wi, err := tx.GetWorkItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wi.Status != models.StatusOpen {
			return &models.InvalidTransitionError{ID: id, Action: "start", From: wi.Status}
		}
		if wi.Kind.EnforcesSingleFlight() && wi.AssignedPerson != nil {
			blocker, err := tx.FindInProgressForPerson(ctx, *wi.AssignedPerson, wi.Kind, wi.ID)
			if err != nil {
				return err
			}
			if blocker != nil {
				return &models.ConflictingActivityError{
					PersonID:      *wi.AssignedPerson,
					BlockingID:    blocker.ID,
					BlockingTitle: blocker.Title,
				}
			}
		}

		rec := newRecorder(wi.ID, actorID, now)
		from := wi.Status
		wi.Status = models.StatusInProgress
		if wi.StartAt == nil {
			t := now
			wi.StartAt = &t
			rec.add(models.EventStarted, models.FieldStartAt, "", t.Format(time.RFC3339), "")
		}
		// A restart after reopen begins a fresh run.
		wi.StopAt = nil
		wi.DurationMinutes = nil
		wi.UpdatedAt = now
		rec.status(models.EventStarted, from, wi.Status, "")

		if err := tx.UpdateWorkItem(ctx, wi); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, rec.events); err != nil {
			return err
		}
		if err := propagateAssetStatus(ctx, tx, wi); err != nil {
			return err
		}
		out = wi
		return nil
	})
	return out, err
}

// Stop completes an in_progress item, stamping the stop time and derived
// duration. StartAt is backfilled to the stop instant if it was never set.
func (m *Machine) Stop(ctx context.Context, id uuid.UUID, actorID string) (models.WorkItem, error) {
	now := m.now().UTC()
	var out models.WorkItem
	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		wi, err := tx.GetWorkItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wi.Status != models.StatusInProgress {
			return &models.InvalidTransitionError{ID: id, Action: "stop", From: wi.Status}
		}

		rec := newRecorder(wi.ID, actorID, now)
		from := wi.Status
		stop := now
		if wi.StartAt == nil {
			wi.StartAt = &stop
		}
		wi.StopAt = &stop
		d := models.DurationBetween(*wi.StartAt, stop)
		if d < 0 {
			d = 0
		}
		wi.DurationMinutes = &d
		wi.Status = models.StatusDone
		wi.UpdatedAt = now

		rec.status(models.EventStopped, from, wi.Status, "")
		rec.add(models.EventStopped, models.FieldStopAt, "", stop.Format(time.RFC3339), "")

		if err := tx.UpdateWorkItem(ctx, wi); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, rec.events); err != nil {
			return err
		}
		if err := propagateAssetStatus(ctx, tx, wi); err != nil {
			return err
		}
		out = wi
		return nil
	})
	return out, err
}

// Cancel aborts an open or running item. Timestamps are left untouched.
func (m *Machine) Cancel(ctx context.Context, id uuid.UUID, actorID string) (models.WorkItem, error) {
	now := m.now().UTC()
	var out models.WorkItem
	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		wi, err := tx.GetWorkItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wi.Status != models.StatusOpen && wi.Status != models.StatusInProgress {
			return &models.InvalidTransitionError{ID: id, Action: "cancel", From: wi.Status}
		}

		rec := newRecorder(wi.ID, actorID, now)
		from := wi.Status
		wi.Status = models.StatusCancelled
		wi.UpdatedAt = now
		rec.status(models.EventCancelled, from, wi.Status, "")

		if err := tx.UpdateWorkItem(ctx, wi); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, rec.events); err != nil {
			return err
		}
		if err := propagateAssetStatus(ctx, tx, wi); err != nil {
			return err
		}
		out = wi
		return nil
	})
	return out, err
}

// Reopen returns a done or cancelled item to open. StartAt, StopAt and the
// derived duration are discarded; the prior values survive only in the event
// log. Reports reading current-state fields will not see the earlier run.
func (m *Machine) Reopen(ctx context.Context, id uuid.UUID, actorID string) (models.WorkItem, error) {
	now := m.now().UTC()
	var out models.WorkItem
	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		wi, err := tx.GetWorkItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wi.Status != models.StatusDone && wi.Status != models.StatusCancelled {
			return &models.InvalidTransitionError{ID: id, Action: "reopen", From: wi.Status}
		}

		rec := newRecorder(wi.ID, actorID, now)
		from := wi.Status
		wi.Status = models.StatusOpen
		wi.StartAt = nil
		wi.StopAt = nil
		wi.DurationMinutes = nil
		wi.UpdatedAt = now
		rec.status(models.EventReopened, from, wi.Status, "")

		if err := tx.UpdateWorkItem(ctx, wi); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, rec.events); err != nil {
			return err
		}
		if err := propagateAssetStatus(ctx, tx, wi); err != nil {
			return err
		}
		out = wi
		return nil
	})
	return out, err
}

// GetEvents returns the ordered audit log for one item.
func (m *Machine) GetEvents(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	if _, err := m.store.GetWorkItem(ctx, ownerID); err != nil {
		return nil, err
	}
	return m.store.ListEvents(ctx, ownerID)
}

// Get returns the current state of one item.
func (m *Machine) Get(ctx context.Context, id uuid.UUID) (models.WorkItem, error) {
	return m.store.GetWorkItem(ctx, id)
}

// List returns items matching the filter.
func (m *Machine) List(ctx context.Context, f repo.WorkItemFilter) ([]models.WorkItem, error) {
	return m.store.ListWorkItems(ctx, f)
}
