// internal/repo/repo.go
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worktrack/internal/models"
)

// Store defines the persistence surface the rest of the app uses. Reads outside
// a transaction serve reporting and audit display; every lifecycle mutation goes
// through Tx so the entity write and its event appends commit together.
type Store interface {
	// Tx runs fn inside a serializable transaction. The single-flight check for
	// extra jobs relies on this isolation level; a weaker read-then-write would
	// double-start under concurrent calls.
	Tx(ctx context.Context, fn func(tx Tx) error) error

	GetWorkItem(ctx context.Context, id uuid.UUID) (models.WorkItem, error)
	ListWorkItems(ctx context.Context, f WorkItemFilter) ([]models.WorkItem, error)

	// ListEvents returns the append-only log for one owner ordered by
	// (created_at_utc, seq). There is intentionally no update or delete path.
	ListEvents(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error)

	ListLaborEntries(ctx context.Context, ownerID uuid.UUID) ([]models.LaborLogEntry, error)

	GetAsset(ctx context.Context, id uuid.UUID) (models.Asset, error)
	GetPerson(ctx context.Context, id uuid.UUID) (models.Person, error)
}

// Tx is the mutation surface available inside Store.Tx.
type Tx interface {
	InsertWorkItem(ctx context.Context, wi models.WorkItem) error
	// GetWorkItemForUpdate reads an item with a row lock held until commit.
	GetWorkItemForUpdate(ctx context.Context, id uuid.UUID) (models.WorkItem, error)
	UpdateWorkItem(ctx context.Context, wi models.WorkItem) error

	AppendEvents(ctx context.Context, events []models.Event) error

	// FindInProgressForPerson returns another in-progress item of the given kind
	// assigned to the person, or nil. exclude is the item being started.
	FindInProgressForPerson(ctx context.Context, personID uuid.UUID, kind models.Kind, exclude uuid.UUID) (*models.WorkItem, error)

	// HasOtherInProgressForAsset reports whether any work order other than
	// exclude is in progress against the asset.
	HasOtherInProgressForAsset(ctx context.Context, assetID uuid.UUID, exclude uuid.UUID) (bool, error)

	GetAssetForUpdate(ctx context.Context, id uuid.UUID) (models.Asset, error)
	SetAssetStatus(ctx context.Context, id uuid.UUID, status models.AssetStatus) error
}

// WorkItemFilter narrows ListWorkItems. A nil window field leaves that bound
// open. The window matches on activity overlap: an item overlaps [From, To)
// when coalesce(start_at, created_at) < To and it has not stopped before From.
type WorkItemFilter struct {
	Kinds     []models.Kind
	PersonIDs []uuid.UUID
	AssetIDs  []uuid.UUID
	From      *time.Time
	To        *time.Time
}

// Overlaps applies the filter's window predicate to one item. The memory
// implementation uses it directly; the pg implementation encodes the same
// predicate in SQL.
func (f WorkItemFilter) Overlaps(wi models.WorkItem) bool {
	start := wi.CreatedAt
	if wi.StartAt != nil {
		start = *wi.StartAt
	}
	if f.To != nil && !start.Before(*f.To) {
		return false
	}
	if f.From != nil && wi.StopAt != nil && wi.StopAt.Before(*f.From) {
		return false
	}
	return true
}
