package paged

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/pagefile"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

func rec(id string, vec ...float32) domain.Record {
	return domain.Record{
		ID:       id,
		Text:     "text of " + id,
		Metadata: domain.ChunkMetadata{Source: "rule.pdf", WordCount: 3},
		Vector:   vec,
	}
}

func records(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = rec(fmt.Sprintf("r%03d", i), float32(i+1), 1)
	}
	return out
}

func openStore(t *testing.T, pages *memory.PageStore, pageSize int) *Store {
	t.Helper()
	s, err := Open(context.Background(), pages, Config{PageSize: pageSize, Model: "hash-bow"})
	require.NoError(t, err)
	return s
}

func TestStore_NotReady(t *testing.T) {
	ctx := context.Background()
	s := New(memory.NewPageStore(), Config{PageSize: 2})

	var nre *domain.NotReadyError

	_, err := s.Count(ctx)
	require.ErrorAs(t, err, &nre)
	assert.Equal(t, domain.StateUninitialized, nre.State)

	assert.ErrorAs(t, s.Insert(ctx, records(1)), &nre)
	_, err = s.Search(ctx, []float32{1, 1}, 1)
	assert.ErrorAs(t, err, &nre)
	_, err = s.Exists(ctx, []string{"a"})
	assert.ErrorAs(t, err, &nre)
	assert.ErrorAs(t, s.Clear(ctx), &nre)
}

func TestStore_InsertPagesAndSummary(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)

	require.NoError(t, s.Insert(ctx, records(5)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	sum, err := pages.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{TotalCount: 5, PageCount: 3, PageSize: 2, Dimensions: 2, Model: "hash-bow"}, sum)

	last, err := pages.ReadPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last.Embeddings, 1)
	assert.Equal(t, "r004", last.Embeddings[0].ID)
	assert.Equal(t, "r004", last.Documents[0].ID)
}

func TestStore_InsertRewritesFromFirstTouchedPage(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)
	all := records(6)

	require.NoError(t, s.Insert(ctx, all[:3]))
	assert.Equal(t, []int{0, 1}, pages.PageWrites())

	require.NoError(t, s.Insert(ctx, all[3:]))
	assert.Equal(t, []int{0, 1, 1, 2}, pages.PageWrites(), "page 0 is full and must not be rewritten")
	assert.Equal(t, 2, pages.SummaryWrites())
}

func TestStore_InsertDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewPageStore(), 10)

	require.NoError(t, s.Insert(ctx, []domain.Record{rec("a", 1, 0), rec("a", 1, 0), rec("b", 0, 1)}))
	require.NoError(t, s.Insert(ctx, []domain.Record{rec("b", 0, 1), rec("c", 1, 1)}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	found, err := s.Exists(ctx, []string{"a", "c", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "c": {}}, found)
}

func TestStore_InsertValidation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewPageStore(), 10)
	require.NoError(t, s.Insert(ctx, []domain.Record{rec("a", 1, 0)}))

	tests := []struct {
		name    string
		records []domain.Record
		wantErr error
	}{
		{"missing id", []domain.Record{rec("", 1, 0)}, domain.ErrInvalidInput},
		{"empty vector", []domain.Record{rec("b")}, domain.ErrInvalidInput},
		{"wrong dimension", []domain.Record{rec("b", 1, 0, 0)}, domain.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Insert(ctx, tt.records), tt.wantErr)
			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestStore_InsertPageFailureLeavesSummary(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)
	all := records(5)

	require.NoError(t, s.Insert(ctx, all[:2]))
	pages.FailWritePage(2, true)

	err := s.Insert(ctx, all[2:])

	var ioErr *domain.StoreIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, 2, ioErr.Page)

	sum, err := pages.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalCount, "summary must not move after a failed page write")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "memory is rolled back")

	found, err := s.Exists(ctx, []string{all[2].ID})
	require.NoError(t, err)
	assert.Empty(t, found)

	// Page 1 was written before the failure; reopening trusts the summary.
	reopened := openStore(t, pages, 2)
	n, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pages.FailWritePage(2, false)
	require.NoError(t, reopened.Insert(ctx, all[2:]))
	n, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStore_InsertSummaryFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)

	pages.FailWriteSummary(true)
	err := s.Insert(ctx, records(3))
	assert.ErrorIs(t, err, memory.ErrInjected)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_LoadTrustsSummary(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)
	require.NoError(t, s.Insert(ctx, records(3)))

	// Simulate a crash after pages were written but before the summary:
	// page 1 grows and page 2 appears.
	crashed := New(pages, Config{PageSize: 2})
	require.NoError(t, crashed.Load(ctx))
	crashed.records = append(crashed.records, records(5)[3:]...)
	require.NoError(t, pages.WritePage(ctx, 1, crashed.page(1)))
	require.NoError(t, pages.WritePage(ctx, 2, crashed.page(2)))

	reopened := openStore(t, pages, 2)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = pages.ReadPage(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound, "pages past the summary are truncated")

	found, err := reopened.Exists(ctx, []string{"r003"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStore_LoadRecoversTornPage(t *testing.T) {
	ctx := context.Background()
	all := records(8)

	tests := []struct {
		name       string
		embeddings []domain.Record
		documents  []domain.Record
	}{
		{name: "embeddings written, documents not", embeddings: all[4:8], documents: all[4:6]},
		{name: "documents written, embeddings not", embeddings: all[4:6], documents: all[4:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := memory.NewPageStore()
			s := openStore(t, pages, 4)
			require.NoError(t, s.Insert(ctx, all[:6]))

			var torn domain.Page
			for _, r := range tt.embeddings {
				torn.Embeddings = append(torn.Embeddings, domain.PageEmbedding{ID: r.ID, Vector: r.Vector})
			}
			for _, r := range tt.documents {
				torn.Documents = append(torn.Documents, domain.PageDocument{ID: r.ID, Text: r.Text, Metadata: r.Metadata})
			}
			require.NoError(t, pages.WritePage(ctx, 1, torn))

			reopened := openStore(t, pages, 4)
			n, err := reopened.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 6, n)

			found, err := reopened.Exists(ctx, []string{"r005", "r006"})
			require.NoError(t, err)
			assert.Equal(t, map[string]struct{}{"r005": {}}, found)
		})
	}
}

func TestStore_LoadRecoversTornPageFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	all := records(8)

	files, err := pagefile.NewStore(dir)
	require.NoError(t, err)
	s, err := Open(ctx, files, Config{PageSize: 4})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, all[:6]))
	require.NoError(t, s.Close())

	// Crash after the embeddings file of page 1 was replaced and before
	// its documents file or the summary were.
	var grown []domain.PageEmbedding
	for _, r := range all[4:8] {
		grown = append(grown, domain.PageEmbedding{ID: r.ID, Vector: r.Vector})
	}
	raw, err := json.Marshal(grown)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embeddings_1.json"), raw, 0600))

	files, err = pagefile.NewStore(dir)
	require.NoError(t, err)
	reopened, err := Open(ctx, files, Config{PageSize: 4})
	require.NoError(t, err)

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.NoError(t, reopened.Insert(ctx, all[6:]))
	require.NoError(t, reopened.Close())

	files, err = pagefile.NewStore(dir)
	require.NoError(t, err)
	again, err := Open(ctx, files, Config{PageSize: 4})
	require.NoError(t, err)
	n, err = again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestStore_ReopenWithDifferentPageSize(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 4)
	require.NoError(t, s.Insert(ctx, records(6)))

	reopened := openStore(t, pages, 10)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.NoError(t, reopened.Insert(ctx, records(11)[6:]))
	sum, err := pages.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.PageCount, "pages keep the recorded size")
	assert.Equal(t, 4, sum.PageSize)

	again := openStore(t, pages, 10)
	n, err = again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	require.NoError(t, again.Clear(ctx))
	require.NoError(t, again.Insert(ctx, records(11)))
	sum, err = pages.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.PageCount, "clear adopts the configured size")
	assert.Equal(t, 10, sum.PageSize)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("after failed load", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 3, PageCount: 2}))
		require.NoError(t, pages.WritePage(ctx, 0, domain.Page{}))

		s := New(pages, Config{PageSize: 2})
		require.Error(t, s.Load(ctx))
		require.Equal(t, domain.StateFailed, s.State())

		require.NoError(t, s.Reset(ctx))
		assert.Equal(t, domain.StateReady, s.State())
		assert.Zero(t, pages.PageCount())

		sum, err := pages.ReadSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Summary{}, sum)

		require.NoError(t, s.Insert(ctx, records(3)))
		reopened := openStore(t, pages, 2)
		n, err := reopened.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("summary write fails", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 3, PageCount: 2}))

		s := New(pages, Config{PageSize: 2})
		require.Error(t, s.Load(ctx))

		pages.FailWriteSummary(true)
		assert.ErrorIs(t, s.Reset(ctx), memory.ErrInjected)
		assert.Equal(t, domain.StateFailed, s.State())
	})
}

func TestStore_LoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing page", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 3, PageCount: 2}))

		s := New(pages, Config{PageSize: 2})
		err := s.Load(ctx)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, domain.StateFailed, s.State())

		var nre *domain.NotReadyError
		_, err = s.Count(ctx)
		require.ErrorAs(t, err, &nre)
		assert.Equal(t, domain.StateFailed, nre.State)
	})

	t.Run("summary without page size does not fit configured size", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 3, PageCount: 2}))

		_, err := Open(ctx, pages, Config{PageSize: 10})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("page count does not fit recorded page size", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 3, PageCount: 2, PageSize: 10}))

		_, err := Open(ctx, pages, Config{PageSize: 2})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("page shorter than summary", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 2, PageCount: 1, PageSize: 10}))
		require.NoError(t, pages.WritePage(ctx, 0, domain.Page{
			Embeddings: []domain.PageEmbedding{{ID: "a", Vector: []float32{1}}, {ID: "b", Vector: []float32{1}}},
			Documents:  []domain.PageDocument{{ID: "a"}},
		}))

		_, err := Open(ctx, pages, Config{PageSize: 10})
		var ioErr *domain.StoreIOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, 0, ioErr.Page)
	})

	t.Run("misaligned page", func(t *testing.T) {
		pages := memory.NewPageStore()
		require.NoError(t, pages.WriteSummary(ctx, domain.Summary{TotalCount: 1, PageCount: 1}))
		require.NoError(t, pages.WritePage(ctx, 0, domain.Page{
			Embeddings: []domain.PageEmbedding{{ID: "a", Vector: []float32{1}}},
			Documents:  []domain.PageDocument{{ID: "b"}},
		}))

		_, err := Open(ctx, pages, Config{PageSize: 10})
		var ioErr *domain.StoreIOError
		assert.ErrorAs(t, err, &ioErr)
	})
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewPageStore(), 2)
	require.NoError(t, s.Insert(ctx, []domain.Record{
		rec("east", 1, 0),
		rec("north", 0, 1),
		rec("zero", 0, 0),
		rec("northeast", 1, 1),
		rec("east-again", 2, 0),
		rec("west", -1, 0),
	}))

	hits, err := s.Search(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	ids := []string{hits[0].ID, hits[1].ID, hits[2].ID, hits[3].ID}
	assert.Equal(t, []string{"east", "east-again", "northeast", "north"}, ids, "ties keep insertion order")

	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, hits[2].Similarity, 1e-6)
	assert.InDelta(t, 1-1/math.Sqrt2, hits[2].Distance, 1e-6)

	all, err := s.Search(ctx, []float32{1, 0}, 100)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Similarity, all[i].Similarity)
	}
	for _, h := range all {
		assert.False(t, math.IsNaN(h.Similarity))
		if h.ID == "zero" {
			assert.Zero(t, h.Similarity)
			assert.Equal(t, 1.0, h.Distance)
		}
	}
	assert.Equal(t, "west", all[5].ID)
}

func TestStore_SearchEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewPageStore(), 2)

	hits, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "empty store")

	require.NoError(t, s.Insert(ctx, []domain.Record{rec("a", 1, 0)}))

	_, err = s.Search(ctx, []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	hits, err = s.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Similarity, "zero query scores 0")
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)
	require.NoError(t, s.Insert(ctx, records(5)))

	require.NoError(t, s.Clear(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, pages.PageCount())

	sum, err := pages.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{}, sum)

	require.NoError(t, s.Insert(ctx, []domain.Record{rec("new", 1, 2, 3)}), "dimensions reset after clear")
}

func TestStore_ClearSummaryFailureKeepsRecords(t *testing.T) {
	ctx := context.Background()
	pages := memory.NewPageStore()
	s := openStore(t, pages, 2)
	require.NoError(t, s.Insert(ctx, records(3)))

	pages.FailWriteSummary(true)
	assert.Error(t, s.Clear(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, pages.PageCount())
}

func TestStore_Close(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewPageStore(), 2)
	require.NoError(t, s.Close())

	var nre *domain.NotReadyError
	_, err := s.Count(ctx)
	assert.ErrorAs(t, err, &nre)
}

func TestStore_PersistsAcrossReopenWithPageFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	files, err := pagefile.NewStore(dir)
	require.NoError(t, err)
	s, err := Open(ctx, files, Config{PageSize: 1000, Model: "hash-bow"})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, records(2500)))
	require.NoError(t, s.Close())

	files, err = pagefile.NewStore(dir)
	require.NoError(t, err)
	reopened, err := Open(ctx, files, Config{PageSize: 1000})
	require.NoError(t, err)

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	sum, err := reopened.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{TotalCount: 2500, PageCount: 3, PageSize: 1000, Dimensions: 2, Model: "hash-bow"}, sum)

	hits, err := reopened.Search(ctx, []float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "r000", hits[0].ID)
}
