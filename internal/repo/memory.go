// internal/repo/memory.go
package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"worktrack/internal/models"
)

// memStore is an in-memory Store. It backs the test suite and the dev server
// when no database URL is configured. A single mutex stands in for serializable
// isolation: transactions run one at a time and roll back by restoring a copy.
type memStore struct {
	mu sync.Mutex

	items  map[uuid.UUID]models.WorkItem
	events []models.Event
	labor  []models.LaborLogEntry
	assets map[uuid.UUID]models.Asset
	people map[uuid.UUID]models.Person

	seq int64
}

func NewMemory() Store {
	return &memStore{
		items:  map[uuid.UUID]models.WorkItem{},
		assets: map[uuid.UUID]models.Asset{},
		people: map[uuid.UUID]models.Person{},
	}
}

// Seeder is the side door the dev server and tests use to load reference data.
// The lifecycle Store surface stays mutation-free for assets and people.
type Seeder interface {
	SeedAsset(a models.Asset)
	SeedPerson(p models.Person)
	SeedLabor(e models.LaborLogEntry)
}

func (s *memStore) SeedAsset(a models.Asset)   { s.mu.Lock(); defer s.mu.Unlock(); s.assets[a.ID] = a }
func (s *memStore) SeedPerson(p models.Person) { s.mu.Lock(); defer s.mu.Unlock(); s.people[p.ID] = p }
func (s *memStore) SeedLabor(e models.LaborLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labor = append(s.labor, e)
}

func (s *memStore) GetWorkItem(_ context.Context, id uuid.UUID) (models.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wi, ok := s.items[id]
	if !ok {
		return models.WorkItem{}, models.ErrWorkItemNotFound
	}
	return wi, nil
}

func (s *memStore) ListWorkItems(_ context.Context, f WorkItemFilter) ([]models.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WorkItem
	for _, wi := range s.items {
		if !matchesFilter(wi, f) {
			continue
		}
		out = append(out, wi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matchesFilter(wi models.WorkItem, f WorkItemFilter) bool {
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, wi.Kind) {
		return false
	}
	if len(f.PersonIDs) > 0 {
		if wi.AssignedPerson == nil || !containsID(f.PersonIDs, *wi.AssignedPerson) {
			return false
		}
	}
	if len(f.AssetIDs) > 0 {
		if wi.AssetID == nil || !containsID(f.AssetIDs, *wi.AssetID) {
			return false
		}
	}
	return f.Overlaps(wi)
}

func containsKind(ks []models.Kind, k models.Kind) bool {
	for _, c := range ks {
		if c == k {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

func (s *memStore) ListEvents(_ context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsForLocked(ownerID), nil
}

func (s *memStore) eventsForLocked(ownerID uuid.UUID) []models.Event {
	var out []models.Event
	for _, ev := range s.events {
		if ev.OwnerID == ownerID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAtUtc.Equal(out[j].CreatedAtUtc) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAtUtc.Before(out[j].CreatedAtUtc)
	})
	return out
}

func (s *memStore) ListLaborEntries(_ context.Context, ownerID uuid.UUID) ([]models.LaborLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LaborLogEntry
	for _, e := range s.labor {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) GetAsset(_ context.Context, id uuid.UUID) (models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return models.Asset{}, models.ErrAssetNotFound
	}
	return a, nil
}

func (s *memStore) GetPerson(_ context.Context, id uuid.UUID) (models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return models.Person{}, models.ErrPersonNotFound
	}
	return p, nil
}

func (s *memStore) Tx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot for rollback.
	itemsCopy := make(map[uuid.UUID]models.WorkItem, len(s.items))
	for k, v := range s.items {
		itemsCopy[k] = v
	}
	assetsCopy := make(map[uuid.UUID]models.Asset, len(s.assets))
	for k, v := range s.assets {
		assetsCopy[k] = v
	}
	eventsLen, seq := len(s.events), s.seq

	if err := fn(&memTx{s: s}); err != nil {
		s.items = itemsCopy
		s.assets = assetsCopy
		s.events = s.events[:eventsLen]
		s.seq = seq
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) InsertWorkItem(_ context.Context, wi models.WorkItem) error {
	t.s.items[wi.ID] = wi
	return nil
}

func (t *memTx) GetWorkItemForUpdate(_ context.Context, id uuid.UUID) (models.WorkItem, error) {
	wi, ok := t.s.items[id]
	if !ok {
		return models.WorkItem{}, models.ErrWorkItemNotFound
	}
	return wi, nil
}

func (t *memTx) UpdateWorkItem(_ context.Context, wi models.WorkItem) error {
	if _, ok := t.s.items[wi.ID]; !ok {
		return models.ErrWorkItemNotFound
	}
	t.s.items[wi.ID] = wi
	return nil
}

func (t *memTx) AppendEvents(_ context.Context, events []models.Event) error {
	for _, ev := range events {
		t.s.seq++
		ev.Seq = t.s.seq
		t.s.events = append(t.s.events, ev)
	}
	return nil
}

func (t *memTx) FindInProgressForPerson(_ context.Context, personID uuid.UUID, kind models.Kind, exclude uuid.UUID) (*models.WorkItem, error) {
	for _, wi := range t.s.items {
		if wi.ID == exclude || wi.Kind != kind || wi.Status != models.StatusInProgress {
			continue
		}
		if wi.AssignedPerson != nil && *wi.AssignedPerson == personID {
			found := wi
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) HasOtherInProgressForAsset(_ context.Context, assetID uuid.UUID, exclude uuid.UUID) (bool, error) {
	for _, wi := range t.s.items {
		if wi.ID == exclude || wi.Kind != models.KindWorkOrder || wi.Status != models.StatusInProgress {
			continue
		}
		if wi.AssetID != nil && *wi.AssetID == assetID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetAssetForUpdate(_ context.Context, id uuid.UUID) (models.Asset, error) {
	a, ok := t.s.assets[id]
	if !ok {
		return models.Asset{}, models.ErrAssetNotFound
	}
	return a, nil
}

func (t *memTx) SetAssetStatus(_ context.Context, id uuid.UUID, status models.AssetStatus) error {
	a, ok := t.s.assets[id]
	if !ok {
		return models.ErrAssetNotFound
	}
	a.Status = status
	t.s.assets[id] = a
	return nil
}
