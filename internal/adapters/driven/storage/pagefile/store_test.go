package pagefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func testPage(ids ...string) domain.Page {
	var page domain.Page
	for n, id := range ids {
		page.Embeddings = append(page.Embeddings, domain.PageEmbedding{
			ID:     id,
			Vector: []float32{float32(n), 0.25},
		})
		page.Documents = append(page.Documents, domain.PageDocument{
			ID:       id,
			Text:     "text " + id,
			Metadata: domain.ChunkMetadata{Source: "rule.pdf", ChunkIndex: n, WordCount: 2, CharCount: 5},
		})
	}
	return page
}

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewStore(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	dir := filepath.Join(t.TempDir(), "a", "b")
	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	assert.DirExists(t, dir)
}

func TestStore_Summary(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)

	sum, err := store.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{}, sum)

	want := domain.Summary{TotalCount: 1500, PageCount: 2, PageSize: 1000, Dimensions: 384, Model: "hash-bow"}
	require.NoError(t, store.WriteSummary(ctx, want))

	got, err := store.ReadSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(filepath.Join(dir, MetaFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalCount":1500,"pageCount":2,"pageSize":1000,"dimensions":384,"model":"hash-bow"}`, string(raw))
}

func TestStore_CorruptSummary(t *testing.T) {
	store, dir := setupStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte("{"), 0600))

	_, err := store.ReadSummary(context.Background())

	var ioErr *domain.StoreIOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestStore_Pages(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)

	page := testPage("a", "b")
	require.NoError(t, store.WritePage(ctx, 0, page))

	assert.FileExists(t, filepath.Join(dir, "embeddings_0.json"))
	assert.FileExists(t, filepath.Join(dir, "documents_0.json"))

	got, err := store.ReadPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	raw, err := os.ReadFile(filepath.Join(dir, "embeddings_0.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","embedding":[0,0.25]},{"id":"b","embedding":[1,0.25]}]`, string(raw))

	_, err = store.ReadPage(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ReadPageMismatchedCompanions(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)
	require.NoError(t, store.WritePage(ctx, 0, testPage("a", "b")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "documents_0.json"), []byte(`[{"id":"a","text":"text a"}]`), 0600))

	got, err := store.ReadPage(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got.Embeddings, 2)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "a", got.Documents[0].ID)
}

func TestStore_DeletePagesFrom(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)
	for i := 0; i < 12; i++ {
		require.NoError(t, store.WritePage(ctx, i, testPage("x")))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embeddings_notes.json"), []byte(`[]`), 0600))

	require.NoError(t, store.DeletePagesFrom(ctx, 2))

	for i := 0; i < 12; i++ {
		_, err := store.ReadPage(ctx, i)
		if i < 2 {
			assert.NoError(t, err, "page %d", i)
		} else {
			assert.ErrorIs(t, err, domain.ErrNotFound, "page %d", i)
		}
	}
	assert.FileExists(t, filepath.Join(dir, "embeddings_notes.json"))
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	store, dir := setupStore(t)
	require.NoError(t, store.WritePage(ctx, 0, testPage("a")))
	require.NoError(t, store.WriteSummary(ctx, domain.Summary{TotalCount: 1, PageCount: 1}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPageIndex(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   int
		wantOK bool
	}{
		{"valid", "embeddings_7.json", 7, true},
		{"other prefix", "documents_7.json", 0, false},
		{"not a number", "embeddings_x.json", 0, false},
		{"temp file", "embeddings_7.json.123.tmp", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pageIndex(tt.file, embeddingsPrefix)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
