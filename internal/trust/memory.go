package trust

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, email string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[email]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Email] = cloneProfile(p)
	return nil
}

// Append implements Store. The event is already part of the profile's log;
// the whole updated profile is stored.
func (s *MemoryStore) Append(_ context.Context, _ Event, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Email] = cloneProfile(p)
	return nil
}

// List implements Store. Profiles are returned in email order so output is
// stable across calls.
func (s *MemoryStore) List(_ context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// cloneProfile copies a profile so callers cannot mutate stored state.
func cloneProfile(p *Profile) *Profile {
	cp := *p
	cp.Events = make([]Event, len(p.Events))
	copy(cp.Events, p.Events)
	return &cp
}
