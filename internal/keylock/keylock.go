// Package keylock provides a table of named mutexes.
//
// The engine's check-then-act sequences (trust score updates, penalty cap
// checks, escrow status transitions) must be serialized per key — trust
// identity, violator identity, or escrow id — while operations on different
// keys proceed independently. A Table hands out one mutex per key and keeps
// it for the lifetime of the process; the set of keys is bounded by the set
// of identities and escrows, so entries are never evicted.
package keylock

import "sync"

// Table is a set of per-key mutexes. The zero value is not usable; call New.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty lock table.
func New() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (t *Table) Lock(key string) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()
	l.Lock()
}

// Unlock releases the mutex for key. It panics if Lock was not called first.
func (t *Table) Unlock(key string) {
	t.mu.Lock()
	l, ok := t.locks[key]
	t.mu.Unlock()
	if !ok {
		panic("keylock: unlock of unknown key " + key)
	}
	l.Unlock()
}
