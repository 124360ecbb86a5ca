package driven

import (
	"context"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// BatchRunStore persists batch runs.
type BatchRunStore interface {
	// Save stores or updates a run.
	Save(ctx context.Context, run domain.BatchRun) error

	// Get retrieves a run by ID.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.BatchRun, error)

	// List returns the most recent runs first. A limit of 0 returns all.
	List(ctx context.Context, limit int) ([]domain.BatchRun, error)
}

// DeliveryLedger records delivery outcomes.
type DeliveryLedger interface {
	// Record stores one outcome.
	Record(ctx context.Context, result domain.DeliveryResult) error

	// ListByBatch returns the outcomes for a batch in the order they happened.
	ListByBatch(ctx context.Context, batchID string) ([]domain.DeliveryResult, error)
}
