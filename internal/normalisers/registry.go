package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/normalisers/pdf"
	"github.com/custodia-labs/docrag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches files to normalisers by extension. When several
// normalisers claim an extension the highest priority wins; ties go to
// the one registered first.
type Registry struct {
	mu          sync.RWMutex
	byExtension map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExtension: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry registers the PDF and plain text normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser for each of its extensions.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range n.SupportedExtensions() {
		ext = strings.ToLower(ext)
		list := append(r.byExtension[ext], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byExtension[ext] = list
	}
}

// Normalise extracts path with the best normaliser for its extension.
// Unknown extensions return an *domain.ExtractionError wrapping
// domain.ErrUnsupportedType.
func (r *Registry) Normalise(ctx context.Context, path string) (*driven.NormaliseResult, error) {
	ext := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	list := r.byExtension[ext]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, &domain.ExtractionError{
			Path: path,
			Err:  fmt.Errorf("%w: extension %q", domain.ErrUnsupportedType, ext),
		}
	}
	return list[0].Normalise(ctx, path)
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
