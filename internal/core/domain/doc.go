// Package domain defines the core business entities for docrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted text of a source file
//   - Chunk: An overlapping slice of a document, the unit of retrieval
//   - Record: A chunk with its embedding, the unit of persistence
//   - Answer: A grounded, source-cited response to a question
//   - Settings: Typed runtime configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
