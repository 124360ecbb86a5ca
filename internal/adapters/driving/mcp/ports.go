package mcp

import (
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Generate starts batches from files.
	Generate driving.GenerateService

	// Batches reports on recorded runs.
	Batches driving.BatchService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Generate == nil {
		return ErrMissingGenerateService
	}
	if p.Batches == nil {
		return ErrMissingBatchService
	}
	return nil
}
