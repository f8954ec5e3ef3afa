package domain

// SourceRef attributes part of an answer to a retrieved chunk.
type SourceRef struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Confidence float64 `json:"confidence"`
}

// Answer is the result of a question. It is always returned, even when
// something failed; Error then carries the reason.
type Answer struct {
	Text       string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	Confidence float64     `json:"confidence"`
	Error      string      `json:"error,omitempty"`
}

// Fixed answer texts.
const (
	NoInformationAnswer = "I could not find any relevant information in the indexed documents to answer this question."
	ApologyAnswer       = "Sorry, I was unable to generate an answer right now. Please try again later."
	InvalidQuestionText = "Please provide a non-empty question."
)

// Failed reports whether the answer carries an error.
func (a Answer) Failed() bool {
	return a.Error != ""
}
