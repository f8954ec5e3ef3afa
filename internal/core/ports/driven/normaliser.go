package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Normaliser extracts the text of a source file.
// Each normaliser handles specific file extensions (e.g. ".pdf").
type Normaliser interface {
	// SupportedExtensions returns the lower-case extensions this normaliser
	// handles, including the leading dot.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise reads the file at path and returns its text.
	Normalise(ctx context.Context, path string) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Normalisation only produces a Document with Content;
// chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
