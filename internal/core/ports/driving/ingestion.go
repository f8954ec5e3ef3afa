package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// IngestionService moves source files into the vector store.
type IngestionService interface {
	// Enqueue adds a file path to the ingestion queue. It blocks while
	// the queue is full and returns domain.ErrQueueClosed after Stop.
	Enqueue(ctx context.Context, path string) error

	// IngestFile processes a single file synchronously.
	IngestFile(ctx context.Context, path string) domain.IngestResult

	// QueueLength returns the number of paths waiting to be processed.
	QueueLength() int

	// Recent returns the most recent per-file outcomes, newest first.
	Recent() []domain.IngestResult
}

// Manager is the facade the CLI, HTTP API, MCP server and TUI drive.
type Manager interface {
	QueryService

	// Start opens the store, starts the ingestion worker and, when watch
	// is true, the folder watcher.
	Start(ctx context.Context, watch bool) error

	// Stop stops the watcher, drains the worker and closes the store.
	Stop() error

	// Wait blocks until ctx ends or the watcher stops on its own, and
	// returns the watcher error in the latter case.
	Wait(ctx context.Context) error

	// Status returns a point-in-time view of the pipeline.
	Status(ctx context.Context) (domain.Status, error)

	// IngestFile processes a single file synchronously.
	IngestFile(ctx context.Context, path string) (domain.IngestResult, error)

	// Clear removes every record from the store. It also works after
	// Start failed to open the store.
	Clear(ctx context.Context) error
}
