package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// VectorStore holds the durable set of records and answers similarity
// queries over it. Search is exhaustive; there is no approximate index.
type VectorStore interface {
	// Exists returns the subset of ids already stored.
	Exists(ctx context.Context, ids []string) (map[string]struct{}, error)

	// Insert appends records whose IDs are not yet stored. Records with
	// known IDs are skipped. The insert is durable when it returns nil.
	Insert(ctx context.Context, records []domain.Record) error

	// Search returns up to topK records ordered by descending cosine
	// similarity to query.
	Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Summary returns the persisted bookkeeping record.
	Summary(ctx context.Context) (domain.Summary, error)

	// Clear removes all records from memory and from persistent storage.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// PageStore persists vector store pages. Page i holds records
// [i*C, (i+1)*C) for page capacity C. Implementations write each page
// atomically; the summary is the commit point and is written last.
type PageStore interface {
	// ReadSummary returns the summary. A store that was never written
	// returns a zero summary and no error.
	ReadSummary(ctx context.Context) (domain.Summary, error)

	// WriteSummary replaces the summary.
	WriteSummary(ctx context.Context, s domain.Summary) error

	// ReadPage returns page i. Missing pages return domain.ErrNotFound.
	ReadPage(ctx context.Context, i int) (domain.Page, error)

	// WritePage replaces page i.
	WritePage(ctx context.Context, i int, page domain.Page) error

	// DeletePagesFrom removes page i and every page after it.
	DeletePagesFrom(ctx context.Context, i int) error

	// Close releases resources.
	Close() error
}

// VectorStoreLoader is implemented by stores that must read persisted
// state before they accept calls.
type VectorStoreLoader interface {
	Load(ctx context.Context) error
}

// VectorStoreResetter is implemented by stores that can be emptied
// without a successful Load, so a store that no longer opens can be
// cleared and reused.
type VectorStoreResetter interface {
	Reset(ctx context.Context) error
}
