// Package plaintext reads plain text files as documents.
package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".md"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise reads the file as UTF-8. Invalid byte sequences are dropped.
func (n *Normaliser) Normalise(_ context.Context, path string) (*driven.NormaliseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}

	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Path:     path,
			Source:   filepath.Base(path),
			Title:    extractTitle(path),
			Content:  content,
			Metadata: map[string]any{"format": "text"},
		},
	}, nil
}

// extractTitle derives a human-readable title from the file name.
func extractTitle(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
