// internal/models/events.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind labels an audit event. StatusChanged, Started, Stopped, Cancelled
// and Reopened form the status-change family and carry From/To statuses.
type EventKind string

const (
	EventCreated         EventKind = "created"
	EventStatusChanged   EventKind = "status_changed"
	EventStarted         EventKind = "started"
	EventStopped         EventKind = "stopped"
	EventCancelled       EventKind = "cancelled"
	EventReopened        EventKind = "reopened"
	EventUpdated         EventKind = "updated"
	EventAssignedChanged EventKind = "assigned_changed"
)

// Well-known values for Event.Field. Status-change events always use FieldStatus
// so timeline replay can select them without inspecting kinds first.
const (
	FieldStatus         = "status"
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldAssignedPerson = "assigned_person_id"
	FieldAsset          = "asset_id"
	FieldStartAt        = "start_at"
	FieldStopAt         = "stop_at"
	FieldClassification = "classification"
	FieldDefect         = "defect"
	FieldCause          = "cause"
	FieldSolution       = "solution"
)

// Event is one append-only audit record on a work item. Rows are never updated
// or deleted; replay order is (CreatedAtUtc, Seq).
type Event struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Seq          int64     `json:"seq"`
	CreatedAtUtc time.Time `json:"created_at_utc"`

	// ActorID is an opaque identity string supplied by the caller; empty for
	// system-originated mutations.
	ActorID string `json:"actor_id,omitempty"`

	Kind     EventKind `json:"kind"`
	Field    string    `json:"field,omitempty"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
	Message  string    `json:"message,omitempty"`

	// CorrelationID groups every event produced by one logical operation.
	CorrelationID uuid.UUID `json:"correlation_id"`

	FromStatus Status `json:"from_status,omitempty"`
	ToStatus   Status `json:"to_status,omitempty"`
}

// IsStatusChange reports whether the event belongs to the status-change family.
func (e Event) IsStatusChange() bool {
	switch e.Kind {
	case EventStatusChanged, EventStarted, EventStopped, EventCancelled, EventReopened:
		return e.Field == FieldStatus
	}
	return false
}
