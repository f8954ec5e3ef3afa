package domain

import "time"

// IngestResult is the outcome of processing one file.
type IngestResult struct {
	Path     string    `json:"path"`
	State    FileState `json:"state"`
	Chunks   int       `json:"chunks"`
	New      int       `json:"new"`
	Skipped  int       `json:"skipped"`
	Error    string    `json:"error,omitempty"`
	Finished time.Time `json:"finished"`
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	DocumentCount int            `json:"documentCount"`
	QueueLength   int            `json:"queueLength"`
	Watching      bool           `json:"watching"`
	WatchFolder   string         `json:"watchFolder,omitempty"`
	State         string         `json:"state"`
	Model         string         `json:"model,omitempty"`
	Dimensions    int            `json:"dimensions,omitempty"`
	ModelMismatch bool           `json:"modelMismatch,omitempty"`
	RecentFiles   []IngestResult `json:"recentFiles,omitempty"`
}

// Summary is the persisted bookkeeping record of the paged vector store.
// PageCount always equals ceil(TotalCount / PageSize). A zero PageSize
// means the pages were cut with the configured size.
type Summary struct {
	TotalCount int    `json:"totalCount"`
	PageCount  int    `json:"pageCount"`
	PageSize   int    `json:"pageSize,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	Model      string `json:"model,omitempty"`
}

// PageEmbedding is one entry of an embeddings page.
type PageEmbedding struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"embedding"`
}

// PageDocument is one entry of a documents page, joined positionally
// with the embeddings page of the same index.
type PageDocument struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Page is a single persisted page.
type Page struct {
	Embeddings []PageEmbedding
	Documents  []PageDocument
}
