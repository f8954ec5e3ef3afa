// Package paged implements driven.VectorStore as an in-memory record set
// persisted in fixed-capacity pages through a driven.PageStore.
//
// The summary written by the PageStore is the commit point. Open trusts it:
// pages past summary.PageCount are deleted and page entries past
// summary.TotalCount are dropped. Pages keep the size recorded in the
// summary until the store is cleared.
package paged

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

const componentName = "vector store"

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore         = (*Store)(nil)
	_ driven.VectorStoreLoader   = (*Store)(nil)
	_ driven.VectorStoreResetter = (*Store)(nil)
)

// Config configures a Store.
type Config struct {
	// PageSize is the record capacity of one page.
	PageSize int

	// Model is recorded in the summary the first time records are stored.
	Model string
}

// Store is a paged, brute-force cosine vector store. A single writer is
// expected; readers may run concurrently with it.
type Store struct {
	pages      driven.PageStore
	configured int
	model      string

	mu       sync.RWMutex
	state    domain.ComponentState
	pageSize int // size the stored pages were cut with
	summary  domain.Summary
	records  []domain.Record
	norms    []float64
	index    map[string]int
}

// New creates an unloaded store. Call Load before use.
func New(pages driven.PageStore, cfg Config) *Store {
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultPageSize
	}
	return &Store{
		pages:      pages,
		configured: cfg.PageSize,
		pageSize:   cfg.PageSize,
		model:      cfg.Model,
		index:      make(map[string]int),
	}
}

// Open creates a store and loads it from pages.
func Open(ctx context.Context, pages driven.PageStore, cfg Config) (*Store, error) {
	s := New(pages, cfg)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the lifecycle state.
func (s *Store) State() domain.ComponentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load replays the persisted pages into memory. On failure the store
// moves to StateFailed.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		s.state = domain.StateFailed
		return err
	}
	s.state = domain.StateReady
	return nil
}

func (s *Store) load(ctx context.Context) error {
	sum, err := s.pages.ReadSummary(ctx)
	if err != nil {
		return wrapIO("read summary", -1, err)
	}

	size := s.configured
	if sum.PageSize > 0 && sum.TotalCount > 0 {
		size = sum.PageSize
	}
	if sum.TotalCount < 0 || sum.PageCount != pageCount(sum.TotalCount, size) {
		return &domain.StoreIOError{
			Op:   "read summary",
			Page: -1,
			Err: fmt.Errorf("%w: %d records in %d pages does not fit page size %d",
				domain.ErrInvalidInput, sum.TotalCount, sum.PageCount, size),
		}
	}
	if size != s.configured {
		logger.Warn("vector store: pages were written with page size %d, keeping it until the store is cleared (configured %d)",
			size, s.configured)
	}

	records := make([]domain.Record, 0, sum.TotalCount)
	for i := 0; i < sum.PageCount; i++ {
		page, err := s.pages.ReadPage(ctx, i)
		if err != nil {
			return wrapIO("read page", i, err)
		}

		// A crash between the two companion writes leaves one list longer
		// than the summary allows. Only the committed prefix counts.
		want := min(size, sum.TotalCount-i*size)
		if len(page.Embeddings) < want || len(page.Documents) < want {
			return &domain.StoreIOError{Op: "read page", Page: i,
				Err: fmt.Errorf("%d embeddings and %d documents, summary needs %d",
					len(page.Embeddings), len(page.Documents), want)}
		}
		if len(page.Embeddings) > want || len(page.Documents) > want {
			logger.Warn("vector store: page %d: dropping entries past the summary (%d embeddings, %d documents, keeping %d)",
				i, len(page.Embeddings), len(page.Documents), want)
		}

		for n, e := range page.Embeddings[:want] {
			d := page.Documents[n]
			if d.ID != e.ID {
				return &domain.StoreIOError{Op: "read page", Page: i,
					Err: fmt.Errorf("entry %d: embedding %q joined with document %q", n, e.ID, d.ID)}
			}
			records = append(records, domain.Record{ID: e.ID, Text: d.Text, Metadata: d.Metadata, Vector: e.Vector})
		}
	}

	if err := s.pages.DeletePagesFrom(ctx, sum.PageCount); err != nil {
		return wrapIO("delete pages", sum.PageCount, err)
	}

	norms := make([]float64, len(records))
	index := make(map[string]int, len(records))
	for n, r := range records {
		if sum.Dimensions > 0 && len(r.Vector) != sum.Dimensions {
			return &domain.StoreIOError{Op: "read page", Page: n / size,
				Err: fmt.Errorf("%w: record %s has %d dimensions, want %d",
					domain.ErrDimensionMismatch, r.ID, len(r.Vector), sum.Dimensions)}
		}
		norms[n] = norm(r.Vector)
		index[r.ID] = n
	}

	sum.PageSize = size
	s.pageSize = size
	s.summary = sum
	s.records = records
	s.norms = norms
	s.index = index

	logger.Debug("vector store: loaded %d records in %d pages of %d", sum.TotalCount, sum.PageCount, size)
	return nil
}

// Exists returns the subset of ids already stored.
func (s *Store) Exists(_ context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// Insert appends records whose IDs are not yet stored, rewrites the pages
// from the first page touched to the last, then writes the summary. If
// any write fails the in-memory set is rolled back and the summary on
// disk is left as it was.
func (s *Store) Insert(ctx context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	dims := s.summary.Dimensions
	fresh := make([]domain.Record, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %s has no vector", domain.ErrInvalidInput, r.ID)
		}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d dimensions, want %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
		if _, ok := s.index[r.ID]; ok {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return nil
	}

	oldLen := len(s.records)
	for _, r := range fresh {
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
		s.norms = append(s.norms, norm(r.Vector))
	}

	next := domain.Summary{
		TotalCount: len(s.records),
		PageCount:  pageCount(len(s.records), s.pageSize),
		PageSize:   s.pageSize,
		Dimensions: dims,
		Model:      s.summary.Model,
	}
	if next.Model == "" {
		next.Model = s.model
	}

	if err := s.persist(ctx, oldLen/s.pageSize, next); err != nil {
		s.rollback(oldLen)
		return err
	}

	s.summary = next
	return nil
}

// persist writes pages [first, next.PageCount) then the summary.
// Caller must hold the write lock.
func (s *Store) persist(ctx context.Context, first int, next domain.Summary) error {
	for i := first; i < next.PageCount; i++ {
		if err := s.pages.WritePage(ctx, i, s.page(i)); err != nil {
			return wrapIO("write page", i, err)
		}
	}
	if err := s.pages.WriteSummary(ctx, next); err != nil {
		return wrapIO("write summary", -1, err)
	}
	return nil
}

func (s *Store) rollback(n int) {
	for _, r := range s.records[n:] {
		delete(s.index, r.ID)
	}
	s.records = s.records[:n:n]
	s.norms = s.norms[:n:n]
}

// page materialises page i from the in-memory records.
func (s *Store) page(i int) domain.Page {
	start := i * s.pageSize
	end := min(start+s.pageSize, len(s.records))

	page := domain.Page{
		Embeddings: make([]domain.PageEmbedding, 0, end-start),
		Documents:  make([]domain.PageDocument, 0, end-start),
	}
	for _, r := range s.records[start:end] {
		page.Embeddings = append(page.Embeddings, domain.PageEmbedding{ID: r.ID, Vector: r.Vector})
		page.Documents = append(page.Documents, domain.PageDocument{ID: r.ID, Text: r.Text, Metadata: r.Metadata})
	}
	return page
}

// Search scores every record against query and returns the topK best,
// most similar first. Equal scores keep insertion order.
func (s *Store) Search(_ context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if len(s.records) == 0 {
		return []domain.SearchHit{}, nil
	}
	if len(query) != s.summary.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			domain.ErrDimensionMismatch, len(query), s.summary.Dimensions)
	}

	qNorm := norm(query)
	order := make([]int, len(s.records))
	scores := make([]float64, len(s.records))
	for n, r := range s.records {
		order[n] = n
		scores[n] = cosine(query, qNorm, r.Vector, s.norms[n])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	hits := make([]domain.SearchHit, topK)
	for n, idx := range order[:topK] {
		r := s.records[idx]
		hits[n] = domain.SearchHit{
			ID:         r.ID,
			Text:       r.Text,
			Metadata:   r.Metadata,
			Similarity: scores[idx],
			Distance:   1 - scores[idx],
		}
	}
	return hits, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

// Summary returns the last committed summary.
func (s *Store) Summary(_ context.Context) (domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return domain.Summary{}, err
	}
	return s.summary, nil
}

// Clear empties the store. The zero summary is committed first, so a
// failure while deleting pages leaves orphans that the next Load removes.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	return s.reset(ctx)
}

// Reset empties the store whatever its state, including after a failed
// Load, and leaves it ready with the configured page size.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(ctx); err != nil {
		return err
	}
	s.state = domain.StateReady
	return nil
}

// reset must be called with the write lock held.
func (s *Store) reset(ctx context.Context) error {
	if err := s.pages.WriteSummary(ctx, domain.Summary{}); err != nil {
		return wrapIO("write summary", -1, err)
	}

	s.pageSize = s.configured
	s.summary = domain.Summary{}
	s.records = nil
	s.norms = nil
	s.index = make(map[string]int)

	if err := s.pages.DeletePagesFrom(ctx, 0); err != nil {
		return wrapIO("delete pages", 0, err)
	}
	return nil
}

// Close releases the page store. The store is unusable afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateUninitialized
	s.records = nil
	s.norms = nil
	s.index = make(map[string]int)
	return s.pages.Close()
}

// ready must be called with the lock held.
func (s *Store) ready() error {
	if s.state != domain.StateReady {
		return &domain.NotReadyError{Component: componentName, State: s.state}
	}
	return nil
}

func pageCount(total, size int) int {
	return (total + size - 1) / size
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func wrapIO(op string, page int, err error) error {
	var ioErr *domain.StoreIOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &domain.StoreIOError{Op: op, Page: page, Err: err}
}
