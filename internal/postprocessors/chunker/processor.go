// Package chunker provides a word-based overlapping text chunking processor.
package chunker

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DefaultChunkSize is the default character budget per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default character budget of the overlap window.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// idPrefixLength is how many leading characters of a chunk's text feed its ID.
const idPrefixLength = 50

// chunkNamespace scopes chunk IDs so they never collide with other name-based UUIDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docrag:chunk"))

// Processor splits document content into overlapping chunks of whole words.
// It implements the PostProcessor interface.
//
// Chunk size is measured as the summed length of a chunk's words, not
// counting the separating spaces. When adding the next word would exceed
// the budget, the chunk is closed and the next one starts with the
// closed chunk's trailing overlap window followed by that word.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Split(doc.Content, doc.Source), nil
}

// Split chunks text attributed to source. Empty or whitespace-only text
// yields no chunks. The result is deterministic for a given text, source
// and configuration.
func (p *Processor) Split(text, source string) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks  []domain.Chunk
		current []string
		length  int
	)

	for _, word := range words {
		if len(current) > 0 && length+len(word) > p.chunkSize {
			chunks = append(chunks, p.newChunk(source, len(chunks), current, length))

			current = p.overlapWindow(current)
			length = wordsLength(current)

			// An oversized next word must not push the seed over budget.
			for len(current) > 0 && length+len(word) > p.chunkSize {
				length -= len(current[0])
				current = current[1:]
			}
		}

		current = append(current, word)
		length += len(word)
	}

	if len(current) > 0 {
		chunks = append(chunks, p.newChunk(source, len(chunks), current, length))
	}

	return chunks
}

// overlapWindow returns the longest trailing run of words whose summed
// length fits the overlap budget. It holds at least one word when overlap
// is enabled and never the whole chunk.
func (p *Processor) overlapWindow(closed []string) []string {
	if p.overlap == 0 || len(closed) < 2 {
		return nil
	}

	start := len(closed) - 1
	total := len(closed[start])
	for start > 1 && total+len(closed[start-1]) <= p.overlap {
		start--
		total += len(closed[start])
	}

	window := make([]string, len(closed)-start)
	copy(window, closed[start:])
	return window
}

func (p *Processor) newChunk(source string, index int, words []string, length int) domain.Chunk {
	text := strings.Join(words, " ")
	return domain.Chunk{
		ID:   ChunkID(source, index, text),
		Text: text,
		Metadata: domain.ChunkMetadata{
			Source:     source,
			ChunkIndex: index,
			WordCount:  len(words),
			CharCount:  length,
		},
	}
}

// ChunkID derives the content-addressed ID of a chunk from its source,
// its index and the first characters of its text.
func ChunkID(source string, index int, text string) string {
	prefix := text
	if runes := []rune(text); len(runes) > idPrefixLength {
		prefix = string(runes[:idPrefixLength])
	}
	name := source + "|" + strconv.Itoa(index) + "|" + prefix
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

func wordsLength(words []string) int {
	n := 0
	for _, w := range words {
		n += len(w)
	}
	return n
}
