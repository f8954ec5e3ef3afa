package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/paged"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/postprocessors"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
)

var testChunking = domain.ChunkerSettings{Size: 40, Overlap: 10}

type ingestFixture struct {
	svc      *IngestionService
	registry *mockRegistry
	embedder *countingEmbedder
	pages    *memory.PageStore
	store    *paged.Store
}

func newIngestFixture(t *testing.T, docs map[string]string, cfg IngestionConfig) *ingestFixture {
	t.Helper()

	f := &ingestFixture{
		registry: newMockRegistry(docs),
		embedder: newCountingEmbedder(),
		pages:    memory.NewPageStore(),
	}
	f.store = paged.New(f.pages, paged.Config{PageSize: 3, Model: f.embedder.ModelName()})
	require.NoError(t, f.store.Load(context.Background()))

	f.svc = NewIngestionService(f.registry, postprocessors.NewDefaultPipeline(testChunking), f.embedder, f.store, cfg)
	return f
}

func (f *ingestFixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

// words returns n distinct words separated by spaces.
func words(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return strings.Join(out, " ")
}

func expectedChunks(text, source string) []domain.Chunk {
	return chunker.New(chunker.WithChunkSize(testChunking.Size), chunker.WithOverlap(testChunking.Overlap)).Split(text, source)
}

func TestIngestFile_StoresEveryChunk(t *testing.T) {
	text := words("alpha", 30)
	f := newIngestFixture(t, map[string]string{"/in/a.txt": text}, IngestionConfig{})
	want := expectedChunks(text, "a.txt")
	require.Greater(t, len(want), 3)

	res := f.svc.IngestFile(context.Background(), "/in/a.txt")

	assert.Equal(t, domain.FileDone, res.State)
	assert.Empty(t, res.Error)
	assert.Equal(t, len(want), res.Chunks)
	assert.Equal(t, len(want), res.New)
	assert.Zero(t, res.Skipped)
	assert.False(t, res.Finished.IsZero())
	assert.Equal(t, len(want), f.count(t))

	existing, err := f.store.Exists(context.Background(), []string{want[0].ID, want[len(want)-1].ID})
	require.NoError(t, err)
	assert.Len(t, existing, 2)
}

func TestIngestFile_Idempotent(t *testing.T) {
	text := words("beta", 25)
	f := newIngestFixture(t, map[string]string{"/in/b.txt": text}, IngestionConfig{})

	first := f.svc.IngestFile(context.Background(), "/in/b.txt")
	embedded := f.embedder.Embedded()
	pageWrites := len(f.pages.PageWrites())

	second := f.svc.IngestFile(context.Background(), "/in/b.txt")

	assert.Equal(t, domain.FileDone, second.State)
	assert.Zero(t, second.New)
	assert.Equal(t, first.Chunks, second.Skipped)
	assert.Equal(t, embedded, f.embedder.Embedded(), "no embedding on re-ingest")
	assert.Equal(t, pageWrites, len(f.pages.PageWrites()), "no page writes on re-ingest")
	assert.Equal(t, first.Chunks, f.count(t))
}

func TestIngestFile_EmbedsOnlyUnseenChunks(t *testing.T) {
	text := words("gamma", 40)
	f := newIngestFixture(t, map[string]string{"/in/c.txt": text}, IngestionConfig{})
	chunks := expectedChunks(text, "c.txt")
	const preloaded = 3
	require.Greater(t, len(chunks), preloaded)

	records := make([]domain.Record, preloaded)
	for i := range records {
		vec, err := f.embedder.EmbeddingService.Embed(context.Background(), chunks[i].Text)
		require.NoError(t, err)
		records[i] = domain.NewRecord(chunks[i], vec)
	}
	require.NoError(t, f.store.Insert(context.Background(), records))

	res := f.svc.IngestFile(context.Background(), "/in/c.txt")

	assert.Equal(t, domain.FileDone, res.State)
	assert.Equal(t, len(chunks)-preloaded, f.embedder.Embedded())
	assert.Equal(t, len(chunks)-preloaded, res.New)
	assert.Equal(t, preloaded, res.Skipped)
	assert.Equal(t, len(chunks), f.count(t))
}

func TestIngestFile_EmptyTextIsDone(t *testing.T) {
	f := newIngestFixture(t, map[string]string{"/in/empty.txt": "  \n\t "}, IngestionConfig{})

	res := f.svc.IngestFile(context.Background(), "/in/empty.txt")

	assert.Equal(t, domain.FileDone, res.State)
	assert.Zero(t, res.Chunks)
	assert.Zero(t, f.embedder.Embedded())
	assert.Zero(t, f.count(t))
}

func TestIngestFile_Failures(t *testing.T) {
	text := words("delta", 30)

	tests := []struct {
		name      string
		setup     func(f *ingestFixture)
		batchSize int
		check     func(t *testing.T, err error)
		stored    int
	}{
		{
			name: "extraction error",
			setup: func(f *ingestFixture) {
				f.registry.errs["/in/d.txt"] = &domain.ExtractionError{Path: "/in/d.txt", Err: errMock}
			},
			check: func(t *testing.T, err error) {
				var extractErr *domain.ExtractionError
				assert.ErrorAs(t, err, &extractErr)
			},
		},
		{
			name: "untyped extraction error is wrapped",
			setup: func(f *ingestFixture) {
				f.registry.errs["/in/d.txt"] = errMock
			},
			check: func(t *testing.T, err error) {
				var extractErr *domain.ExtractionError
				require.ErrorAs(t, err, &extractErr)
				assert.ErrorIs(t, err, errMock)
			},
		},
		{
			name:      "embedding failure keeps committed batches",
			batchSize: 2,
			setup: func(f *ingestFixture) {
				f.embedder.failBatch = 2
			},
			check: func(t *testing.T, err error) {
				var backendErr *domain.EmbeddingBackendError
				assert.ErrorAs(t, err, &backendErr)
			},
			stored: 2,
		},
		{
			name: "page write failure",
			setup: func(f *ingestFixture) {
				f.pages.FailWritePage(0, true)
			},
			check: func(t *testing.T, err error) {
				var ioErr *domain.StoreIOError
				assert.ErrorAs(t, err, &ioErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(t, map[string]string{"/in/d.txt": text}, IngestionConfig{BatchSize: tt.batchSize})
			tt.setup(f)

			res, err := f.svc.ingest(context.Background(), "/in/d.txt")

			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, domain.FileFailed, res.State)
			assert.Equal(t, err.Error(), res.Error)
			assert.Equal(t, tt.stored, f.count(t))
			require.Len(t, f.svc.Recent(), 1)
			assert.Equal(t, domain.FileFailed, f.svc.Recent()[0].State)
		})
	}
}

func TestIngestFile_PipelineContinuesAfterFailure(t *testing.T) {
	f := newIngestFixture(t, map[string]string{
		"/in/good.txt": words("epsilon", 12),
	}, IngestionConfig{})
	f.registry.errs["/in/bad.txt"] = errMock

	bad := f.svc.IngestFile(context.Background(), "/in/bad.txt")
	good := f.svc.IngestFile(context.Background(), "/in/good.txt")

	assert.Equal(t, domain.FileFailed, bad.State)
	assert.Equal(t, domain.FileDone, good.State)
	assert.Positive(t, f.count(t))
}

func TestIngestionService_WorkerDrainsQueueInOrder(t *testing.T) {
	docs := map[string]string{
		"/in/1.txt": words("one", 10),
		"/in/2.txt": words("two", 10),
		"/in/3.txt": words("three", 10),
	}
	f := newIngestFixture(t, docs, IngestionConfig{QueueSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, p := range []string{"/in/1.txt", "/in/2.txt", "/in/3.txt"} {
		require.NoError(t, f.svc.Enqueue(ctx, p))
	}
	f.svc.Start(ctx)
	defer f.svc.Stop()

	require.Eventually(t, func() bool { return len(f.svc.Recent()) == 3 }, 2*time.Second, 10*time.Millisecond)

	recent := f.svc.Recent()
	assert.Equal(t, "/in/3.txt", recent[0].Path)
	assert.Equal(t, "/in/2.txt", recent[1].Path)
	assert.Equal(t, "/in/1.txt", recent[2].Path)
	assert.Zero(t, f.svc.QueueLength())
}

func TestIngestionService_EnqueueBlocksWhenFull(t *testing.T) {
	f := newIngestFixture(t, nil, IngestionConfig{QueueSize: 1})

	require.NoError(t, f.svc.Enqueue(context.Background(), "/in/a.txt"))
	assert.Equal(t, 1, f.svc.QueueLength())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.svc.Enqueue(ctx, "/in/b.txt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.svc.QueueLength())
}

func TestIngestionService_EnqueueAfterStop(t *testing.T) {
	f := newIngestFixture(t, nil, IngestionConfig{})
	f.svc.Start(context.Background())
	f.svc.Stop()
	f.svc.Stop()

	err := f.svc.Enqueue(context.Background(), "/in/a.txt")
	assert.True(t, errors.Is(err, domain.ErrQueueClosed))
}

func TestIngestionService_HistoryIsBounded(t *testing.T) {
	docs := map[string]string{
		"/in/1.txt": words("one", 5),
		"/in/2.txt": words("two", 5),
		"/in/3.txt": words("three", 5),
	}
	f := newIngestFixture(t, docs, IngestionConfig{HistorySize: 2})

	for _, p := range []string{"/in/1.txt", "/in/2.txt", "/in/3.txt"} {
		f.svc.IngestFile(context.Background(), p)
	}

	recent := f.svc.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "/in/3.txt", recent[0].Path)
	assert.Equal(t, "/in/2.txt", recent[1].Path)
}

func TestIngestionService_ExclusiveWaitsForWriter(t *testing.T) {
	f := newIngestFixture(t, nil, IngestionConfig{})

	var ran bool
	err := f.svc.Exclusive(func() error {
		ran = true
		return errMock
	})

	assert.True(t, ran)
	assert.ErrorIs(t, err, errMock)
}
