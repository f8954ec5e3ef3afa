// Package openai provides an embedding service adapter using OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/docrag/internal/adapters/driven/httpclient"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

const backendName = "openai"

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// MaxRetries bounds retries on HTTP 429 (default: 3).
	MaxRetries int

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64

	// Client overrides the HTTP client.
	Client *httpclient.Client
}

// EmbeddingService generates embeddings using OpenAI API.
type EmbeddingService struct {
	client     *httpclient.Client
	header     http.Header
	baseURL    string
	model      string
	dimensions int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}

	client := cfg.Client
	if client == nil {
		client = httpclient.New(httpclient.Config{
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return &EmbeddingService{
		client:     client,
		header:     header,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{
		Model: s.model,
		Input: texts,
	}

	// Only include dimensions for text-embedding-3-* models
	if s.model == "text-embedding-3-small" || s.model == "text-embedding-3-large" {
		reqBody.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/embeddings", s.header, reqBody, &resp); err != nil {
		e := &domain.EmbeddingBackendError{
			Backend:    backendName,
			StatusCode: httpclient.StatusCode(err),
			Err:        err,
		}
		if httpclient.IsRateLimited(err) {
			e.Err = fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
		return nil, e
	}

	if resp.Error != nil {
		return nil, &domain.EmbeddingBackendError{Backend: backendName, Err: fmt.Errorf("%s", resp.Error.Message)}
	}
	if len(resp.Data) != len(texts) {
		return nil, &domain.EmbeddingBackendError{
			Backend: backendName,
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, &domain.EmbeddingBackendError{Backend: backendName, Err: fmt.Errorf("index %d out of range", data.Index)}
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
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

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.Get(ctx, s.baseURL+"/models", s.header); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
