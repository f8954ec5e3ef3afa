// Package sqlite provides a SQLite-backed PageStore for the paged vector store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
//   - store_summary: the single summary row
//   - embedding_pages: chunk IDs and packed float32 vectors per page
//   - document_pages: chunk text and metadata per page, as JSON
//
// Every page write and every page deletion runs in its own transaction, so a
// page is either fully replaced or untouched.
//
// # Data Location
//
// The database is stored at <store.dir>/docrag.db
package sqlite
