package domain

// ComponentState is the lifecycle state of a stateful component
// (vector store, manager).
type ComponentState int

// Component states.
const (
	StateUninitialized ComponentState = iota
	StateReady
	StateFailed
)

// String returns the string representation.
func (s ComponentState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileState is the processing stage of a single file in the ingestion pipeline.
type FileState string

// File states, in pipeline order.
const (
	FileDetected            FileState = "detected"
	FileQueued              FileState = "queued"
	FileExtracting          FileState = "extracting"
	FileChunking            FileState = "chunking"
	FileFilteringDuplicates FileState = "filtering_duplicates"
	FileEmbedding           FileState = "embedding"
	FilePersisting          FileState = "persisting"
	FileDone                FileState = "done"
	FileFailed              FileState = "failed"
)

// IsTerminal returns true if no further processing happens for the file.
func (s FileState) IsTerminal() bool {
	return s == FileDone || s == FileFailed
}

// String returns the string representation.
func (s FileState) String() string {
	return string(s)
}
