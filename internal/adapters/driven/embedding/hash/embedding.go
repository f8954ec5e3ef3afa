// Package hash provides a local, deterministic embedding service.
//
// Each lower-cased word is hashed with FNV-1a into one of D buckets; the
// bucket counts form the vector, which is then L2-normalised. Texts sharing
// vocabulary end up close in cosine space. No network is involved.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = domain.DefaultHashDimensions
	DefaultModel      = "hash-bow"
)

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
	model      string
}

// NewEmbeddingService creates a hashing embedder producing vectors of the
// given size. Non-positive sizes use DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		dimensions: dimensions,
		model:      DefaultModel,
	}
}

// Embed generates a vector embedding for the given text.
// Text without words yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, s.dimensions)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(s.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
