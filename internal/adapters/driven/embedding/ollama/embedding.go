// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docrag/internal/adapters/driven/httpclient"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default
)

const backendName = "ollama"

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// MaxRetries bounds retries on HTTP 429 (default: 3).
	MaxRetries int

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64

	// Client overrides the HTTP client. Used by tests to inject timers.
	Client *httpclient.Client
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	client     *httpclient.Client
	baseURL    string
	model      string
	dimensions int
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client := cfg.Client
	if client == nil {
		client = httpclient.New(httpclient.Config{
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	}

	return &EmbeddingService{
		client:     client,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	err := s.client.PostJSON(ctx, s.baseURL+"/api/embeddings", nil, embedRequest{
		Model:  s.model,
		Prompt: text,
	}, &resp)
	if err != nil {
		return nil, backendError(err)
	}
	if len(resp.Embedding) == 0 {
		return nil, &domain.EmbeddingBackendError{Backend: backendName, Err: fmt.Errorf("empty embedding")}
	}

	embedding := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// EmbedBatch generates embeddings for multiple texts.
// Ollama has no batch endpoint, so texts are embedded one request at a time.
// Any failure fails the whole batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
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

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.Get(ctx, s.baseURL+"/api/tags", nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

func backendError(err error) error {
	e := &domain.EmbeddingBackendError{
		Backend:    backendName,
		StatusCode: httpclient.StatusCode(err),
		Err:        err,
	}
	if httpclient.IsRateLimited(err) {
		e.Err = fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return e
}
