// Package tui renders batch progress in the terminal.
// It is a driving adapter over the generate service.
package tui

import (
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the terminal views.
type Ports struct {
	// Generate runs batches.
	Generate driving.GenerateService
}

// NewPorts creates a Ports aggregate.
func NewPorts(generate driving.GenerateService) *Ports {
	return &Ports{Generate: generate}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Generate == nil {
		return ErrMissingGenerateService
	}
	return nil
}
