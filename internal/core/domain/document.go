package domain

// Document is the full extracted text of one source file.
// It is the output of a normaliser and the input to the chunker.
type Document struct {
	// Path is the absolute location of the source file.
	Path string

	// Source is the file name used for attribution (e.g. "reg-best-interest.pdf").
	Source string

	// Title is a human-readable title derived from the content or file name.
	Title string

	// Content is the full text after extraction.
	Content string

	// Metadata contains extractor-specific key-value pairs.
	Metadata map[string]any
}

// Chunk is a contiguous slice of a document's text.
// Chunks are immutable once created.
type Chunk struct {
	// ID is a content-addressed identifier derived from the source name,
	// the chunk index and the first characters of Text.
	ID string

	// Text is the non-empty chunk content.
	Text string

	// Metadata describes where the chunk came from.
	Metadata ChunkMetadata
}

// ChunkMetadata describes the origin of a chunk.
type ChunkMetadata struct {
	// Source is the file name of the originating document.
	Source string `json:"source"`

	// ChunkIndex is the emission position of the chunk within the document.
	ChunkIndex int `json:"chunk_index"`

	// WordCount is the number of whitespace-separated words in the chunk.
	WordCount int `json:"word_count"`

	// CharCount is the summed length of the chunk's words, excluding separators.
	// This is the counter the chunk size budget is measured against.
	CharCount int `json:"char_count"`
}

// Record is the durable unit of the vector store.
type Record struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Vector   []float32
}

// NewRecord pairs a chunk with its embedding.
func NewRecord(c Chunk, vector []float32) Record {
	return Record{
		ID:       c.ID,
		Text:     c.Text,
		Metadata: c.Metadata,
		Vector:   vector,
	}
}
