// Package mcp provides an MCP (Model Context Protocol) server adapter for docrag.
// It lets AI assistants ask questions against the indexed documents and
// inspect the ingestion pipeline.
package mcp

import "errors"

// ErrMissingManager is returned when the manager is not provided.
var ErrMissingManager = errors.New("mcp: manager is required")
