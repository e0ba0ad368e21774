// internal/models/errors.go
package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrWorkItemNotFound = errors.New("work item not found")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrPersonNotFound   = errors.New("person not found")

	// ErrCalendarUnavailable signals that the working-calendar collaborator could
	// not resolve a schedule or timezone. Reporting degrades instead of failing.
	ErrCalendarUnavailable = errors.New("working calendar unavailable")
)

// InvalidTransitionError is returned when a lifecycle action is attempted from a
// status that does not permit it. Never retried; surfaced to the caller as-is.
type InvalidTransitionError struct {
	ID     uuid.UUID
	Action string
	From   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s work item %s from status %q", e.Action, e.ID, e.From)
}

// ConflictingActivityError is returned when an extra job Start is blocked by an
// already running activity for the same person. The blocking item is surfaced so
// the caller can resolve it.
type ConflictingActivityError struct {
	PersonID      uuid.UUID
	BlockingID    uuid.UUID
	BlockingTitle string
}

func (e *ConflictingActivityError) Error() string {
	return fmt.Sprintf("person %s already has %q (%s) in progress", e.PersonID, e.BlockingTitle, e.BlockingID)
}

// ValidationError reports malformed input to a lifecycle operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
