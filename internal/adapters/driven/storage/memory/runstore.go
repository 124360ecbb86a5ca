package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure BatchRunStore implements the interface.
var _ driven.BatchRunStore = (*BatchRunStore)(nil)

// BatchRunStore is an in-memory implementation of driven.BatchRunStore.
type BatchRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.BatchRun
}

// NewBatchRunStore creates a new in-memory run store.
func NewBatchRunStore() *BatchRunStore {
	return &BatchRunStore{
		runs: make(map[string]domain.BatchRun),
	}
}

// Save stores or updates a run.
func (s *BatchRunStore) Save(_ context.Context, run domain.BatchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// Get retrieves a run by ID.
func (s *BatchRunStore) Get(_ context.Context, id string) (*domain.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns runs newest first.
func (s *BatchRunStore) List(_ context.Context, limit int) ([]domain.BatchRun, error) {
	s.mu.RLock()
	runs := make([]domain.BatchRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
