// Package pagefile persists vector store pages as JSON files:
//
//	meta.json            summary {totalCount, pageCount, pageSize, dimensions, model}
//	embeddings_{i}.json  [{id, embedding}]
//	documents_{i}.json   [{id, text, metadata}]
//
// Every file is written to a temporary sibling and renamed into place.
package pagefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// File names inside the store directory.
const (
	MetaFile         = "meta.json"
	embeddingsPrefix = "embeddings_"
	documentsPrefix  = "documents_"
)

// Ensure Store implements the interface.
var _ driven.PageStore = (*Store)(nil)

// Store is a directory of JSON page files.
type Store struct {
	dir string
}

// NewStore creates the store directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: store directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// ReadSummary returns the summary, or a zero summary when meta.json is absent.
func (s *Store) ReadSummary(ctx context.Context) (domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return domain.Summary{}, err
	}
	var sum domain.Summary
	err := readJSON(filepath.Join(s.dir, MetaFile), &sum)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Summary{}, nil
	}
	if err != nil {
		return domain.Summary{}, &domain.StoreIOError{Op: "read summary", Page: -1, Err: err}
	}
	return sum, nil
}

// WriteSummary replaces meta.json.
func (s *Store) WriteSummary(ctx context.Context, sum domain.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, MetaFile), sum); err != nil {
		return &domain.StoreIOError{Op: "write summary", Page: -1, Err: err}
	}
	return nil
}

// ReadPage loads both companion files of page i. The lists may differ in
// length after an interrupted WritePage; the summary decides how many
// entries count.
func (s *Store) ReadPage(ctx context.Context, i int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	var page domain.Page
	err := readJSON(s.pagePath(embeddingsPrefix, i), &page.Embeddings)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Page{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Page{}, &domain.StoreIOError{Op: "read page", Page: i, Err: err}
	}

	err = readJSON(s.pagePath(documentsPrefix, i), &page.Documents)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Page{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Page{}, &domain.StoreIOError{Op: "read page", Page: i, Err: err}
	}
	return page, nil
}

// WritePage replaces both companion files of page i. Embeddings are
// written first.
func (s *Store) WritePage(ctx context.Context, i int, page domain.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	embeddings := page.Embeddings
	if embeddings == nil {
		embeddings = []domain.PageEmbedding{}
	}
	documents := page.Documents
	if documents == nil {
		documents = []domain.PageDocument{}
	}

	if err := writeJSON(s.pagePath(embeddingsPrefix, i), embeddings); err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}
	if err := writeJSON(s.pagePath(documentsPrefix, i), documents); err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}
	return nil
}

// DeletePagesFrom removes the files of page i and every later page.
func (s *Store) DeletePagesFrom(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, prefix := range []string{embeddingsPrefix, documentsPrefix} {
		matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.json"))
		if err != nil {
			return &domain.StoreIOError{Op: "delete pages", Page: i, Err: err}
		}
		for _, path := range matches {
			n, ok := pageIndex(filepath.Base(path), prefix)
			if !ok || n < i {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return &domain.StoreIOError{Op: "delete pages", Page: n, Err: err}
			}
		}
	}
	return nil
}

// Close is a no-op; files are not held open.
func (s *Store) Close() error {
	return nil
}

func (s *Store) pagePath(prefix string, i int) string {
	return filepath.Join(s.dir, prefix+strconv.Itoa(i)+".json")
}

// pageIndex parses "embeddings_12.json" into 12.
func pageIndex(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
