// Package messages defines Bubbletea message types for the terminal views.
package messages

import (
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// BatchProgressed carries a progress snapshot from the running batch.
type BatchProgressed struct {
	Progress domain.BatchProgress
}

// BatchFinished is sent once when the batch returns.
type BatchFinished struct {
	Result *domain.BatchResult
	Err    error
}

// Succeeded reports whether the batch produced an archive.
func (m BatchFinished) Succeeded() bool {
	return m.Err == nil && m.Result != nil
}

// Partial reports whether some records were skipped.
func (m BatchFinished) Partial() bool {
	return m.Succeeded() && len(m.Result.Failures) > 0
}
