// Package memstore is an in-memory checkpoint.Store, grounded on the
// teacher's graph/store/memory.go mutex-guarded-map idiom. Intended for
// tests, development, and single-process workflows; data does not
// survive process restart.
package memstore

import (
	"context"
	"sync"

	"github.com/spicegraph/spicegraph/checkpoint"
)

// Store is a thread-safe, in-memory checkpoint.Store.
type Store struct {
	mu    sync.RWMutex
	byRun map[string][]checkpoint.Checkpoint
	byID  map[string]checkpoint.Checkpoint
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		byRun: make(map[string][]checkpoint.Checkpoint),
		byID:  make(map[string]checkpoint.Checkpoint),
	}
}

// Save persists cp, appending to its run's history (or replacing an
// existing checkpoint with the same ID in place).
func (s *Store) Save(_ context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[cp.ID] = cp

	run := s.byRun[cp.RunID]
	for i, existing := range run {
		if existing.ID == cp.ID {
			run[i] = cp
			s.byRun[cp.RunID] = run
			return nil
		}
	}
	s.byRun[cp.RunID] = append(run, cp)
	return nil
}

// Get retrieves a checkpoint by ID.
func (s *Store) Get(_ context.Context, id string) (checkpoint.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.byID[id]
	if !ok {
		return checkpoint.Checkpoint{}, checkpoint.ErrNotFound
	}
	return cp, nil
}

// ListByRun returns all checkpoints saved for runID, in save order.
func (s *Store) ListByRun(_ context.Context, runID string) ([]checkpoint.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := s.byRun[runID]
	out := make([]checkpoint.Checkpoint, len(run))
	copy(out, run)
	return out, nil
}

// DeleteByRun removes every checkpoint saved for runID.
func (s *Store) DeleteByRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cp := range s.byRun[runID] {
		delete(s.byID, cp.ID)
	}
	delete(s.byRun, runID)
	return nil
}
