package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func writeDoc(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	text := strings.Repeat("Regulation Best Interest requires broker dealers to act in the best interest of retail customers. ", 30)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func TestRuntime_PersistsAcrossRestarts(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			doc := writeDoc(t, t.TempDir(), "reg-bi.txt")
			ctx := context.Background()

			r, err := newRuntime(dir)
			require.NoError(t, err)
			require.NoError(t, r.settings.Set("store.backend", backend))
			require.NoError(t, r.settings.Set("watch.folder", filepath.Dir(doc)))

			first, err := r.Manager()
			require.NoError(t, err)
			require.NoError(t, first.Start(ctx, false))

			res, err := first.IngestFile(ctx, doc)
			require.NoError(t, err)
			require.Positive(t, res.Chunks)
			require.NoError(t, first.Stop())

			r, err = newRuntime(dir)
			require.NoError(t, err)
			second, err := r.Manager()
			require.NoError(t, err)
			require.NoError(t, second.Start(ctx, false))
			defer func() { _ = second.Stop() }()

			status, err := second.Status(ctx)
			require.NoError(t, err)
			assert.Equal(t, res.Chunks, status.DocumentCount)
			assert.Equal(t, "hash-bow", status.Model)
			assert.Equal(t, filepath.Dir(doc), status.WatchFolder)
			assert.False(t, status.ModelMismatch)

			again, err := second.IngestFile(ctx, doc)
			require.NoError(t, err)
			assert.Zero(t, again.New)
			assert.Equal(t, res.Chunks, again.Skipped)
		})
	}
}

func TestRuntime_MemoryBackend(t *testing.T) {
	r, err := newRuntime(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, r.settings.Set("store.backend", "memory"))

	m, err := r.Manager()
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background(), false))
	defer func() { _ = m.Stop() }()

	status, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", status.State)
	assert.Zero(t, status.DocumentCount)
}

func TestRuntime_InvalidSettings(t *testing.T) {
	r, err := newRuntime(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, r.settings.Set("chunker.overlap", "5000"))

	_, err = r.Manager()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenPageStore_UnknownBackend(t *testing.T) {
	_, err := openPageStore(domain.StoreSettings{Backend: "redis", Dir: t.TempDir()})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
