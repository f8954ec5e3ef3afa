package domain

// SearchHit is a single similarity search result.
type SearchHit struct {
	// ID is the matched record's chunk ID.
	ID string

	// Text is the matched chunk text.
	Text string

	// Metadata is the matched chunk metadata.
	Metadata ChunkMetadata

	// Similarity is the cosine similarity to the query, in [-1, 1].
	Similarity float64

	// Distance is 1 - Similarity.
	Distance float64
}
