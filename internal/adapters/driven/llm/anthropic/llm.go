// Package anthropic provides an LLM service adapter using Anthropic API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docrag/internal/adapters/driven/httpclient"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *httpclient.Client
}

// LLMService provides text generation using Anthropic API.
type LLMService struct {
	client  *httpclient.Client
	header  http.Header
	baseURL string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
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

	client := cfg.Client
	if client == nil {
		client = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	}

	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", anthropicVersion)

	return &LLMService{
		client:  client,
		header:  header,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopWords,
	}

	var resp messagesResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/v1/messages", s.header, reqBody, &resp); err != nil {
		return "", &domain.GenerationBackendError{
			Backend:    "anthropic",
			StatusCode: httpclient.StatusCode(err),
			Err:        err,
		}
	}
	if resp.Error != nil {
		return "", &domain.GenerationBackendError{Backend: "anthropic", Err: fmt.Errorf("%s", resp.Error.Message)}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &domain.GenerationBackendError{Backend: "anthropic", Err: fmt.Errorf("no text content returned")}
	}
	return strings.TrimSpace(b.String()), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.client.Get(ctx, s.baseURL+"/v1/models", s.header); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
