package penalty

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	totals map[string]*Totals
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{totals: make(map[string]*Totals)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.events = append(s.events, &cp)
	return nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ID == id {
			ev.Status = status
			ev.TransactionID = transactionID
			return nil
		}
	}
	return errors.New("penalty event not found: " + id)
}

// List implements Store. Events are returned in application order.
func (s *MemoryStore) List(_ context.Context, email string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Event{}
	for _, ev := range s.events {
		if email != "" && ev.FromEmail != email && ev.ToEmail != email {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

// Totals implements Store. Unknown identities report zero totals.
func (s *MemoryStore) Totals(_ context.Context, email string) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.totals[email]; ok {
		return *t, nil
	}
	return Totals{}, nil
}

// AddTotals implements Store.
func (s *MemoryStore) AddTotals(_ context.Context, email string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.totals[email]
	if !ok {
		t = &Totals{}
		s.totals[email] = t
	}
	t.Daily += amount
	t.Weekly += amount
	return nil
}

// ResetDaily implements Store.
func (s *MemoryStore) ResetDaily(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.totals {
		t.Daily = 0
	}
	return nil
}

// ResetWeekly implements Store.
func (s *MemoryStore) ResetWeekly(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = make(map[string]*Totals)
	return nil
}
