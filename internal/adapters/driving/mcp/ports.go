package mcp

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Manager answers questions and reports pipeline status.
	Manager driving.Manager
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Manager == nil {
		return ErrMissingManager
	}
	return nil
}
