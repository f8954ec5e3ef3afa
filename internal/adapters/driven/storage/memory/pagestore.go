package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// ErrInjected is returned by PageStore operations armed with a fault.
var ErrInjected = errors.New("injected fault")

// Ensure PageStore implements the interface.
var _ driven.PageStore = (*PageStore)(nil)

// PageStore is a map-backed driven.PageStore. Pages and the summary are
// deep-copied on the way in and out so callers cannot alias stored state.
type PageStore struct {
	mu      sync.Mutex
	summary domain.Summary
	pages   map[int]domain.Page

	failWritePage    map[int]bool
	failWriteSummary bool
	writes           []int
	summaryWrites    int
}

// NewPageStore creates an empty in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{
		pages:         make(map[int]domain.Page),
		failWritePage: make(map[int]bool),
	}
}

// FailWritePage makes every subsequent WritePage(i) fail until reset with
// fail=false.
func (s *PageStore) FailWritePage(i int, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fail {
		s.failWritePage[i] = true
		return
	}
	delete(s.failWritePage, i)
}

// FailWriteSummary arms or disarms a WriteSummary fault.
func (s *PageStore) FailWriteSummary(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWriteSummary = fail
}

// PageWrites returns the indexes passed to successful WritePage calls, in order.
func (s *PageStore) PageWrites() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.writes...)
}

// SummaryWrites returns the number of successful WriteSummary calls.
func (s *PageStore) SummaryWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryWrites
}

// PageCount returns the number of stored pages.
func (s *PageStore) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// ReadSummary returns the summary.
func (s *PageStore) ReadSummary(ctx context.Context) (domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return domain.Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

// WriteSummary replaces the summary.
func (s *PageStore) WriteSummary(ctx context.Context, sum domain.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWriteSummary {
		return &domain.StoreIOError{Op: "write summary", Page: -1, Err: ErrInjected}
	}
	s.summary = sum
	s.summaryWrites++
	return nil
}

// ReadPage returns a copy of page i.
func (s *PageStore) ReadPage(ctx context.Context, i int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[i]
	if !ok {
		return domain.Page{}, domain.ErrNotFound
	}
	return copyPage(page), nil
}

// WritePage stores a copy of page.
func (s *PageStore) WritePage(ctx context.Context, i int, page domain.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWritePage[i] {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: ErrInjected}
	}
	s.pages[i] = copyPage(page)
	s.writes = append(s.writes, i)
	return nil
}

// DeletePagesFrom removes page i and every later page.
func (s *PageStore) DeletePagesFrom(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := range s.pages {
		if n >= i {
			delete(s.pages, n)
		}
	}
	return nil
}

// Close is a no-op.
func (s *PageStore) Close() error {
	return nil
}

func copyPage(p domain.Page) domain.Page {
	out := domain.Page{
		Embeddings: make([]domain.PageEmbedding, len(p.Embeddings)),
		Documents:  append([]domain.PageDocument(nil), p.Documents...),
	}
	for n, e := range p.Embeddings {
		out.Embeddings[n] = domain.PageEmbedding{ID: e.ID, Vector: append([]float32(nil), e.Vector...)}
	}
	return out
}
