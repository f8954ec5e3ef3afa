package postprocessors

import (
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
)

// NewDefaultPipeline returns the standard pipeline: a single chunker
// configured from settings.
func NewDefaultPipeline(cfg domain.ChunkerSettings) *Pipeline {
	var opts []chunker.Option
	if cfg.Size > 0 {
		opts = append(opts, chunker.WithChunkSize(cfg.Size))
	}
	if cfg.Overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(cfg.Overlap))
	}
	return NewPipeline(chunker.New(opts...))
}
