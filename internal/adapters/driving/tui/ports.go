// Package tui provides an interactive terminal user interface for docrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Manager answers questions and reports pipeline status.
	Manager driving.Manager

	// TopK is the number of chunks retrieved per question; <= 0 keeps
	// the configured default.
	TopK int
}

// NewPorts creates a Ports aggregate for manager.
func NewPorts(manager driving.Manager) *Ports {
	return &Ports{Manager: manager}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil ports", ErrInvalidPorts)
	}
	if p.Manager == nil {
		return ErrMissingManager
	}
	return nil
}
