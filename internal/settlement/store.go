package settlement

import (
	"context"
	"sort"
	"sync"
)

// Store is the persistence capability behind the orchestrator.
type Store interface {
	// Get returns the escrow with the given id, or ErrEscrowNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, r *Record) error
	ListByTenant(ctx context.Context, tenantEmail string) ([]*Record, error)
	List(ctx context.Context) ([]*Record, error)
}

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	escrows map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{escrows: make(map[string]*Record)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.escrows[id]
	if !ok {
		return nil, ErrEscrowNotFound
	}
	cp := *r
	return &cp, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.escrows[r.ID] = &cp
	return nil
}

// ListByTenant implements Store.
func (s *MemoryStore) ListByTenant(_ context.Context, tenantEmail string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Record{}
	for _, r := range s.escrows {
		if r.TenantEmail == tenantEmail {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByCreation(out)
	return out, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.escrows))
	for _, r := range s.escrows {
		cp := *r
		out = append(out, &cp)
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(rs []*Record) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
