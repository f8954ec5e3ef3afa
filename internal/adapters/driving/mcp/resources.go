package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docrag resources.
	uriScheme = "docrag://"

	statusURI = uriScheme + "status"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Description: "Current pipeline status: document count, queue and recent files",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStatusResource returns the pipeline status as JSON.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Manager.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	data, err := json.MarshalIndent(toStatusOutput(status), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
