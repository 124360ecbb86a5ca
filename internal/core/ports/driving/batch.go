package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// BatchService runs and reports on document batches.
type BatchService interface {
	// Run validates, renders and packages a batch, then hands deliveries to the queue.
	Run(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error)

	// Plan validates the request and returns the plan for every record
	// without rendering anything.
	Plan(ctx context.Context, req domain.BatchRequest) ([]*domain.SubstitutionPlan, error)

	// Status returns live progress for a batch started by this process.
	Status(batchID string) (*domain.BatchProgress, error)

	// List returns recorded runs, most recent first.
	List(ctx context.Context, limit int) ([]domain.BatchRun, error)

	// Get returns one recorded run.
	Get(ctx context.Context, batchID string) (*domain.BatchRun, error)

	// Deliveries returns the delivery outcomes recorded for a batch.
	Deliveries(ctx context.Context, batchID string) ([]domain.DeliveryResult, error)
}

// DeliveryQueue hands rendered documents to a sender in the background.
type DeliveryQueue interface {
	// Enqueue adds a task without blocking.
	// Returns domain.ErrQueueClosed after Close.
	Enqueue(task domain.DeliveryTask) error

	// Drain waits up to timeout for every queued task to finish.
	// Returns true if the queue emptied in time.
	Drain(timeout time.Duration) bool

	// DrainBatch waits up to timeout for one batch's tasks to finish.
	// Returns true if none of that batch's tasks remain.
	DrainBatch(batchID string, timeout time.Duration) bool

	// Close stops accepting tasks and lets workers exit once the queue is empty.
	Close()

	// Stats returns lifetime counters.
	Stats() domain.DeliveryStats
}

// GenerateService turns files into batches, filling gaps from settings.
// The CLI, HTTP and MCP surfaces all start batches through it.
type GenerateService interface {
	// Generate reads the table, template and mapping and runs the batch.
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.BatchResult, error)

	// Preview reads the inputs and returns the plans without rendering.
	Preview(ctx context.Context, req domain.GenerateRequest) ([]*domain.SubstitutionPlan, error)

	// CheckTableName rejects file names no table reader accepts.
	CheckTableName(name string) error
}
