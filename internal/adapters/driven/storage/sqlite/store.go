package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the store directory.
const DatabaseFile = "docrag.db"

// Ensure Store implements the interface.
var _ driven.PageStore = (*Store)(nil)

// Store persists vector store pages in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified directory.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_pages.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ReadSummary returns the stored summary, or a zero summary for a new database.
func (s *Store) ReadSummary(ctx context.Context) (domain.Summary, error) {
	var sum domain.Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT total_count, page_count, page_size, dimensions, model FROM store_summary WHERE id = 1
	`)
	err := row.Scan(&sum.TotalCount, &sum.PageCount, &sum.PageSize, &sum.Dimensions, &sum.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, nil
	}
	if err != nil {
		return domain.Summary{}, &domain.StoreIOError{Op: "read summary", Page: -1, Err: err}
	}
	return sum, nil
}

// WriteSummary replaces the summary row.
func (s *Store) WriteSummary(ctx context.Context, sum domain.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_summary (id, total_count, page_count, page_size, dimensions, model, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			total_count = excluded.total_count,
			page_count = excluded.page_count,
			page_size = excluded.page_size,
			dimensions = excluded.dimensions,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, sum.TotalCount, sum.PageCount, sum.PageSize, sum.Dimensions, sum.Model)
	if err != nil {
		return &domain.StoreIOError{Op: "write summary", Page: -1, Err: err}
	}
	return nil
}

// ReadPage returns page i, or domain.ErrNotFound.
func (s *Store) ReadPage(ctx context.Context, i int) (domain.Page, error) {
	var (
		idsJSON, docsJSON string
		dims              int
		blob              []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT e.ids, e.dimensions, e.vectors, d.documents
		FROM embedding_pages e
		JOIN document_pages d ON d.page_index = e.page_index
		WHERE e.page_index = ?
	`, i).Scan(&idsJSON, &dims, &blob, &docsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Page{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Page{}, &domain.StoreIOError{Op: "read page", Page: i, Err: err}
	}

	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return domain.Page{}, &domain.StoreIOError{Op: "decode page", Page: i, Err: err}
	}
	var docs []domain.PageDocument
	if err := json.Unmarshal([]byte(docsJSON), &docs); err != nil {
		return domain.Page{}, &domain.StoreIOError{Op: "decode page", Page: i, Err: err}
	}

	vectors := bytesToFloat32Slice(blob)
	if dims < 0 || len(vectors) != len(ids)*dims {
		return domain.Page{}, &domain.StoreIOError{
			Op:   "decode page",
			Page: i,
			Err:  fmt.Errorf("vector payload holds %d floats, want %d", len(vectors), len(ids)*dims),
		}
	}

	embeddings := make([]domain.PageEmbedding, len(ids))
	for n, id := range ids {
		embeddings[n] = domain.PageEmbedding{ID: id, Vector: vectors[n*dims : (n+1)*dims : (n+1)*dims]}
	}

	return domain.Page{Embeddings: embeddings, Documents: docs}, nil
}

// WritePage replaces page i in a single transaction.
func (s *Store) WritePage(ctx context.Context, i int, page domain.Page) (err error) {
	ids := make([]string, len(page.Embeddings))
	dims := 0
	var floats []float32
	for n, e := range page.Embeddings {
		if n == 0 {
			dims = len(e.Vector)
			floats = make([]float32, 0, dims*len(page.Embeddings))
		} else if len(e.Vector) != dims {
			return &domain.StoreIOError{Op: "write page", Page: i, Err: domain.ErrDimensionMismatch}
		}
		ids[n] = e.ID
		floats = append(floats, e.Vector...)
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}
	docsJSON, err := json.Marshal(page.Documents)
	if err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO embedding_pages (page_index, ids, dimensions, vectors) VALUES (?, ?, ?, ?)
		ON CONFLICT(page_index) DO UPDATE SET
			ids = excluded.ids, dimensions = excluded.dimensions, vectors = excluded.vectors
	`, i, string(idsJSON), dims, float32SliceToBytes(floats)); err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO document_pages (page_index, documents) VALUES (?, ?)
		ON CONFLICT(page_index) DO UPDATE SET documents = excluded.documents
	`, i, string(docsJSON)); err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}

	if err = tx.Commit(); err != nil {
		return &domain.StoreIOError{Op: "write page", Page: i, Err: err}
	}
	return nil
}

// DeletePagesFrom removes page i and every later page.
func (s *Store) DeletePagesFrom(ctx context.Context, i int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreIOError{Op: "delete pages", Page: i, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM embedding_pages WHERE page_index >= ?`, i); err != nil {
		return &domain.StoreIOError{Op: "delete pages", Page: i, Err: err}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM document_pages WHERE page_index >= ?`, i); err != nil {
		return &domain.StoreIOError{Op: "delete pages", Page: i, Err: err}
	}
	if err = tx.Commit(); err != nil {
		return &domain.StoreIOError{Op: "delete pages", Page: i, Err: err}
	}
	return nil
}

// PageCount returns the number of stored pages, for diagnostics.
func (s *Store) PageCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return n, nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
