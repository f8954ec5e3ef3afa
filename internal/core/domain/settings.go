package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHash is the local, deterministic hashing embedder.
	// It needs no network and is only valid for embeddings.
	AIProviderHash AIProvider = "hash"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API. Generation only.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHash, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderHash || p == AIProviderOllama || p == AIProviderOpenAI
}

// SupportsGeneration returns true if the provider can generate text.
func (p AIProvider) SupportsGeneration() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHash:
		return "Hashing (local, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects where vector store pages are persisted.
type StoreBackend string

// Available store backends.
const (
	StoreBackendFile   StoreBackend = "file"
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendFile, StoreBackendSQLite, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// WatchSettings configures the folder watcher.
type WatchSettings struct {
	// Folder is the directory observed for new documents.
	Folder string

	// Pattern is the file name glob (e.g. "*.pdf").
	Pattern string

	// Debounce is how long a path must be quiet before it is enqueued.
	Debounce time.Duration
}

// ChunkerSettings configures text chunking. Both values are in characters.
type ChunkerSettings struct {
	Size    int
	Overlap int
}

// StoreSettings configures the vector store persistence.
type StoreSettings struct {
	Backend StoreBackend

	// Dir is the directory holding pages (file) or the database (sqlite).
	Dir string

	// PageSize is the page capacity in records.
	PageSize int
}

// IngestSettings configures the ingestion pipeline.
type IngestSettings struct {
	// BatchSize is the number of chunks embedded and persisted together.
	BatchSize int

	// QueueSize is the capacity of the ingestion queue.
	QueueSize int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Required for the hash provider,
	// informational for remote providers.
	Dimensions int

	// MaxRetries bounds the retries on HTTP 429.
	MaxRetries int

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64

	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// IsConfigured returns true if the generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.SupportsGeneration() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// QuerySettings configures retrieval.
type QuerySettings struct {
	TopK int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// Settings holds all application settings.
type Settings struct {
	Watch     WatchSettings
	Chunker   ChunkerSettings
	Store     StoreSettings
	Ingest    IngestSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Query     QuerySettings
	Server    ServerSettings
}

// Defaults.
const (
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultPageSize        = 1000
	DefaultBatchSize       = 500
	DefaultQueueSize       = 256
	DefaultTopK            = 3
	DefaultHashDimensions  = 384
	DefaultMaxRetries      = 3
	DefaultWatchPattern    = "*.pdf"
	DefaultWatchDebounce   = 500 * time.Millisecond
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
	DefaultServerAddr      = "127.0.0.1:8080"
)

// DefaultSettings returns settings with sensible defaults.
// The hash embedder works offline; generation defaults to a local Ollama.
func DefaultSettings() Settings {
	return Settings{
		Watch: WatchSettings{
			Folder:   "documents",
			Pattern:  DefaultWatchPattern,
			Debounce: DefaultWatchDebounce,
		},
		Chunker: ChunkerSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Store: StoreSettings{
			Backend:  StoreBackendFile,
			PageSize: DefaultPageSize,
		},
		Ingest: IngestSettings{
			BatchSize: DefaultBatchSize,
			QueueSize: DefaultQueueSize,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Model:      "hash-bow",
			Dimensions: DefaultHashDimensions,
			MaxRetries: DefaultMaxRetries,
			Timeout:    DefaultEmbedTimeout,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
			Timeout:  DefaultGenerateTimeout,
		},
		Query:  QuerySettings{TopK: DefaultTopK},
		Server: ServerSettings{Addr: DefaultServerAddr},
	}
}

// Validate checks the settings for values the pipeline cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Chunker.Size <= 0:
		return fmt.Errorf("%w: chunker.size must be positive", ErrInvalidInput)
	case s.Chunker.Overlap < 0:
		return fmt.Errorf("%w: chunker.overlap must not be negative", ErrInvalidInput)
	case s.Chunker.Overlap >= s.Chunker.Size:
		return fmt.Errorf("%w: chunker.overlap must be below chunker.size", ErrInvalidInput)
	case s.Store.PageSize <= 0:
		return fmt.Errorf("%w: store.page_size must be positive", ErrInvalidInput)
	case !s.Store.Backend.IsValid():
		return fmt.Errorf("%w: store.backend %q", ErrUnsupportedType, s.Store.Backend)
	case s.Ingest.BatchSize <= 0:
		return fmt.Errorf("%w: ingest.batch_size must be positive", ErrInvalidInput)
	case s.Ingest.QueueSize <= 0:
		return fmt.Errorf("%w: ingest.queue_size must be positive", ErrInvalidInput)
	case s.Query.TopK <= 0:
		return fmt.Errorf("%w: query.top_k must be positive", ErrInvalidInput)
	case !s.Embedding.Provider.SupportsEmbeddings():
		return fmt.Errorf("%w: embedding.provider %q", ErrUnsupportedType, s.Embedding.Provider)
	case s.Embedding.Provider == AIProviderHash && s.Embedding.Dimensions <= 0:
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidInput)
	case s.LLM.Provider != "" && !s.LLM.Provider.SupportsGeneration():
		return fmt.Errorf("%w: llm.provider %q", ErrUnsupportedType, s.LLM.Provider)
	}
	return nil
}

// AllEmbeddingProviders returns the providers that can produce embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderHash, AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns the providers that can generate answers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHash:   "hash-bow",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
