package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure DeliveryLedger implements the interface.
var _ driven.DeliveryLedger = (*DeliveryLedger)(nil)

// DeliveryLedger is an in-memory implementation of driven.DeliveryLedger.
type DeliveryLedger struct {
	mu      sync.RWMutex
	results map[string][]domain.DeliveryResult
}

// NewDeliveryLedger creates a new in-memory delivery ledger.
func NewDeliveryLedger() *DeliveryLedger {
	return &DeliveryLedger{
		results: make(map[string][]domain.DeliveryResult),
	}
}

// Record appends an outcome.
func (l *DeliveryLedger) Record(_ context.Context, result domain.DeliveryResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[result.BatchID] = append(l.results[result.BatchID], result)
	return nil
}

// ListByBatch returns a batch's outcomes in recording order.
func (l *DeliveryLedger) ListByBatch(_ context.Context, batchID string) ([]domain.DeliveryResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.DeliveryResult(nil), l.results[batchID]...), nil
}
