package store

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
)

const defaultInMemoryEventLimit = 10000

// InMemoryStore is a mutex-guarded fallback implementing every store
// interface. Nothing survives a restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[string]domain.MemoryRecord
	order     []string
	conflicts []domain.Conflict
	latest    map[string]int
	events    []journal.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]domain.MemoryRecord),
		latest:  make(map[string]int),
	}
}

func (s *InMemoryStore) HealthCheck(context.Context) error {
	return nil
}

func (s *InMemoryStore) Snapshot(context.Context) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MemoryRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneRecord(s.records[id]))
	}
	return out, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[id]; ok {
		cp := cloneRecord(r)
		return &cp, nil
	}
	for _, rid := range s.order {
		if r := s.records[rid]; r.UUID == id {
			cp := cloneRecord(r)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, r *domain.MemoryRecord) error {
	prepareRecord(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = cloneRecord(*r)
	return nil
}

func (s *InMemoryStore) Append(_ context.Context, c *domain.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Identity()
	if idx, ok := s.latest[id]; ok {
		s.conflicts[idx] = *c
		return nil
	}
	s.latest[id] = len(s.conflicts)
	s.conflicts = append(s.conflicts, *c)
	return nil
}

func (s *InMemoryStore) Scan(context.Context) ([]domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Conflict, len(s.conflicts))
	copy(out, s.conflicts)
	return out, nil
}

func (s *InMemoryStore) AppendEvent(_ context.Context, e journal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) > defaultInMemoryEventLimit {
		s.events = s.events[len(s.events)-defaultInMemoryEventLimit:]
	}
	return nil
}

// EventCount reports how many journal events are held.
func (s *InMemoryStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func cloneRecord(r domain.MemoryRecord) domain.MemoryRecord {
	r.Tags = append([]string(nil), r.Tags...)
	if r.Metadata != nil {
		md := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		r.Metadata = md
	}
	return r
}
