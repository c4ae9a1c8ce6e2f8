// internal/runstore/runstore.go
//
// The run store is the side channel that carries rich run state across a
// transport that only moves text. Messages hold a correlation id; the state
// itself lives here for the lifetime of the run.

package runstore

import (
	"errors"
	"sync"

	"github.com/sopforge/sopforge/internal/runstate"
)

// ErrNotFound is returned by Get when no run exists for the id. Callers must
// treat it as a fatal wiring error for the affected stage, not a transient
// condition.
var ErrNotFound = errors.New("runstore: run not found")

// Store keys in-flight run state by correlation id. Implementations must be
// safe for concurrent use across distinct keys; stages within one run never
// access the same key concurrently.
type Store interface {
	Put(id string, state *runstate.RunState) error
	Get(id string) (*runstate.RunState, error)
	Delete(id string) error
}

// MemoryStore is the in-process Store used for the lifetime of the host.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*runstate.RunState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*runstate.RunState)}
}

// Put registers or replaces the state for a run.
func (s *MemoryStore) Put(id string, state *runstate.RunState) error {
	if id == "" {
		return errors.New("runstore: run id is required")
	}
	if state == nil {
		return errors.New("runstore: state is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = state
	return nil
}

// Get returns the state for a run, or ErrNotFound.
func (s *MemoryStore) Get(id string) (*runstate.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

// Delete evicts a run. Deleting an absent id is a no-op.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

// Len reports the number of registered runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
