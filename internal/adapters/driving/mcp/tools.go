package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of document chunks to ground the answer on (default 3)"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer     string         `json:"answer"`
	Sources    []SourceOutput `json:"sources"`
	Confidence float64        `json:"confidence"`
	Error      string         `json:"error,omitempty"`
}

// SourceOutput attributes an answer to a document chunk.
type SourceOutput struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Confidence float64 `json:"confidence"`
}

// StatusInput is the (empty) input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	State         string       `json:"state"`
	DocumentCount int          `json:"document_count"`
	QueueLength   int          `json:"queue_length"`
	Watching      bool         `json:"watching"`
	WatchFolder   string       `json:"watch_folder,omitempty"`
	Model         string       `json:"model,omitempty"`
	ModelMismatch bool         `json:"model_mismatch,omitempty"`
	RecentFiles   []FileOutput `json:"recent_files,omitempty"`
}

// FileOutput is the outcome of ingesting one file.
type FileOutput struct {
	Path   string `json:"path"`
	State  string `json:"state"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a question from the indexed regulatory documents, citing the source chunks",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report the document count, ingestion queue and watcher state",
	}, s.handleStatus)
}

// handleAnswer handles the answer tool invocation. Pipeline failures are
// reported in the output, not as protocol errors.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	answer := s.ports.Manager.Answer(ctx, input.Question, input.TopK)

	output := AnswerOutput{
		Answer:     answer.Text,
		Sources:    make([]SourceOutput, len(answer.Sources)),
		Confidence: answer.Confidence,
		Error:      answer.Error,
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput(src)
	}
	return nil, output, nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Manager.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, toStatusOutput(status), nil
}

func toStatusOutput(status domain.Status) StatusOutput {
	out := StatusOutput{
		State:         status.State,
		DocumentCount: status.DocumentCount,
		QueueLength:   status.QueueLength,
		Watching:      status.Watching,
		WatchFolder:   status.WatchFolder,
		Model:         status.Model,
		ModelMismatch: status.ModelMismatch,
	}
	for _, f := range status.RecentFiles {
		out.RecentFiles = append(out.RecentFiles, FileOutput{
			Path:   f.Path,
			State:  f.State.String(),
			Chunks: f.Chunks,
			Error:  f.Error,
		})
	}
	return out
}
