// internal/workflow/events.go
package workflow

import (
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
)

// recorder collects the events of one operation under a shared correlation id.
// All events in a batch carry the same timestamp; the store assigns Seq so
// replay order inside a batch is the emission order.
type recorder struct {
	owner       uuid.UUID
	actor       string
	at          time.Time
	correlation uuid.UUID
	events      []models.Event
}

func newRecorder(owner uuid.UUID, actor string, at time.Time) *recorder {
	return &recorder{owner: owner, actor: actor, at: at, correlation: uuid.New()}
}

func (r *recorder) add(kind models.EventKind, field, oldV, newV, message string) {
	r.events = append(r.events, models.Event{
		ID:            uuid.New(),
		OwnerID:       r.owner,
		CreatedAtUtc:  r.at,
		ActorID:       r.actor,
		Kind:          kind,
		Field:         field,
		OldValue:      oldV,
		NewValue:      newV,
		Message:       message,
		CorrelationID: r.correlation,
	})
}

// status records a status-change-family event with from/to statuses populated.
func (r *recorder) status(kind models.EventKind, from, to models.Status, message string) {
	r.events = append(r.events, models.Event{
		ID:            uuid.New(),
		OwnerID:       r.owner,
		CreatedAtUtc:  r.at,
		ActorID:       r.actor,
		Kind:          kind,
		Field:         models.FieldStatus,
		OldValue:      string(from),
		NewValue:      string(to),
		Message:       message,
		CorrelationID: r.correlation,
		FromStatus:    from,
		ToStatus:      to,
	})
}
