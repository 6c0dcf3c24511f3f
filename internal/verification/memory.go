package verification

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*Case
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*Case)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, escrowID string) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[escrowID]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return cloneCase(c), nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.EscrowID] = cloneCase(c)
	return nil
}

// List implements Store, ordered by escrow id for stable output.
func (s *MemoryStore) List(_ context.Context) ([]*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EscrowID < out[j].EscrowID })
	return out, nil
}

func cloneCase(c *Case) *Case {
	cp := *c
	cp.TenantUploads = append([]Upload(nil), c.TenantUploads...)
	cp.LandlordUploads = append([]Upload(nil), c.LandlordUploads...)
	if c.Decision != nil {
		d := *c.Decision
		cp.Decision = &d
	}
	return &cp
}
