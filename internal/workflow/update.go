// internal/workflow/update.go
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
	"worktrack/internal/repo"
)

// bulkEditMessage tags status changes that came through the generic Update path
// so audits can tell them apart from guarded transitions.
const bulkEditMessage = "bulk edit"

// UpdatePatch is a partial edit. Nil pointers leave fields untouched; the
// Clear flags null the corresponding nullable fields.
type UpdatePatch struct {
	Title       *string
	Description *string

	AssignedPerson *uuid.UUID
	ClearAssignee  bool
	AssetID        *uuid.UUID
	ClearAsset     bool

	StartAt    *time.Time
	ClearStart bool
	StopAt     *time.Time
	ClearStop  bool

	Classification      *models.Classification
	ClearClassification bool
	Type                *models.WorkOrderType

	Defect   *string
	Cause    *string
	Solution *string

	// Status is applied raw, without passing through the dedicated actions'
	// guards or the conflicting-activity check. This is the trusted bulk edit
	// escape hatch; the emitted event is tagged so it stays auditable.
	Status *models.Status
}

// Update applies a field-level edit in any status. Every changed field emits
// its own event; all events of one call share a correlation id.
func (m *Machine) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch, actorID string) (models.WorkItem, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.WorkItem{}, &models.ValidationError{Field: "status", Reason: "unknown status"}
	}
	now := m.now().UTC()
	var out models.WorkItem
	err := m.store.Tx(ctx, func(tx repo.Tx) error {
		wi, err := tx.GetWorkItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rec := newRecorder(wi.ID, actorID, now)
		statusChanged := false
		assetChanged := false
		var prevAsset *uuid.UUID

		if patch.Title != nil && *patch.Title != wi.Title {
			if *patch.Title == "" {
				return &models.ValidationError{Field: "title", Reason: "required"}
			}
			rec.add(models.EventUpdated, models.FieldTitle, wi.Title, *patch.Title, "")
			wi.Title = *patch.Title
		}
		if patch.Description != nil && *patch.Description != wi.Description {
			rec.add(models.EventUpdated, models.FieldDescription, wi.Description, *patch.Description, "")
			wi.Description = *patch.Description
		}

		if patch.ClearAssignee || patch.AssignedPerson != nil {
			var next *uuid.UUID
			if !patch.ClearAssignee {
				next = patch.AssignedPerson
			}
			if !uuidPtrEqual(wi.AssignedPerson, next) {
				rec.add(models.EventAssignedChanged, models.FieldAssignedPerson,
					uuidPtrString(wi.AssignedPerson), uuidPtrString(next), "")
				wi.AssignedPerson = next
			}
		}
		if patch.ClearAsset || patch.AssetID != nil {
			var next *uuid.UUID
			if !patch.ClearAsset {
				next = patch.AssetID
			}
			if !uuidPtrEqual(wi.AssetID, next) {
				rec.add(models.EventUpdated, models.FieldAsset,
					uuidPtrString(wi.AssetID), uuidPtrString(next), "")
				prevAsset = wi.AssetID
				wi.AssetID = next
				assetChanged = wi.Kind == models.KindWorkOrder
			}
		}

		if patch.ClearStart || patch.StartAt != nil {
			var next *time.Time
			if !patch.ClearStart {
				t := patch.StartAt.UTC()
				next = &t
			}
			if !timePtrEqual(wi.StartAt, next) {
				rec.add(models.EventUpdated, models.FieldStartAt,
					timePtrString(wi.StartAt), timePtrString(next), "")
				wi.StartAt = next
			}
		}
		if patch.ClearStop || patch.StopAt != nil {
			var next *time.Time
			if !patch.ClearStop {
				t := patch.StopAt.UTC()
				next = &t
			}
			if !timePtrEqual(wi.StopAt, next) {
				rec.add(models.EventUpdated, models.FieldStopAt,
					timePtrString(wi.StopAt), timePtrString(next), "")
				wi.StopAt = next
			}
		}
		if wi.StartAt != nil && wi.StopAt != nil && wi.StopAt.Before(*wi.StartAt) {
			return &models.ValidationError{Field: "stop_at", Reason: "must not precede start_at"}
		}

		if patch.ClearClassification || patch.Classification != nil {
			var next *models.Classification
			if !patch.ClearClassification {
				next = patch.Classification
			}
			if !classPtrEqual(wi.Classification, next) {
				rec.add(models.EventUpdated, models.FieldClassification,
					classPtrString(wi.Classification), classPtrString(next), "")
				wi.Classification = next
			}
		}
		if patch.Type != nil && *patch.Type != wi.Type {
			rec.add(models.EventUpdated, "type", string(wi.Type), string(*patch.Type), "")
			wi.Type = *patch.Type
		}

		if patch.Defect != nil && *patch.Defect != wi.Defect {
			rec.add(models.EventUpdated, models.FieldDefect, wi.Defect, *patch.Defect, "")
			wi.Defect = *patch.Defect
		}
		if patch.Cause != nil && *patch.Cause != wi.Cause {
			rec.add(models.EventUpdated, models.FieldCause, wi.Cause, *patch.Cause, "")
			wi.Cause = *patch.Cause
		}
		if patch.Solution != nil && *patch.Solution != wi.Solution {
			rec.add(models.EventUpdated, models.FieldSolution, wi.Solution, *patch.Solution, "")
			wi.Solution = *patch.Solution
		}

		if patch.Status != nil && *patch.Status != wi.Status {
			rec.status(models.EventStatusChanged, wi.Status, *patch.Status, bulkEditMessage)
			wi.Status = *patch.Status
			statusChanged = true
		}

		if len(rec.events) == 0 {
			out = wi
			return nil
		}

		// Keep the derived duration consistent with the edited timestamps once
		// the item is done: recomputed when both are set, null otherwise.
		if wi.Status == models.StatusDone {
			if wi.StartAt != nil && wi.StopAt != nil {
				d := models.DurationBetween(*wi.StartAt, *wi.StopAt)
				wi.DurationMinutes = &d
			} else {
				wi.DurationMinutes = nil
			}
		}

		wi.UpdatedAt = now
		if err := tx.UpdateWorkItem(ctx, wi); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, rec.events); err != nil {
			return err
		}
		if statusChanged || assetChanged {
			if err := propagateAssetStatus(ctx, tx, wi); err != nil {
				return err
			}
		}
		// Moving the item off an asset must also recompute the asset it left,
		// otherwise it could stay in_maintenance with no in-progress work.
		if assetChanged && prevAsset != nil {
			if err := releaseAssetStatus(ctx, tx, *prevAsset, wi.ID); err != nil {
				return err
			}
		}
		out = wi
		return nil
	})
	if err == nil {
		slog.DebugContext(ctx, "work item updated", "id", id.String())
	}
	return out, err
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uuidPtrString(p *uuid.UUID) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func timePtrString(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format(time.RFC3339)
}

func classPtrEqual(a, b *models.Classification) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func classPtrString(p *models.Classification) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
