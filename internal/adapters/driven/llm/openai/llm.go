// Package openai provides an LLM service adapter using OpenAI API.
package openai

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
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 60 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *httpclient.Client
}

// LLMService provides text generation using OpenAI API.
type LLMService struct {
	client  *httpclient.Client
	header  http.Header
	baseURL string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	client := cfg.Client
	if client == nil {
		client = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return &LLMService{
		client:  client,
		header:  header,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt, sent as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	}

	var resp chatCompletionResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/chat/completions", s.header, reqBody, &resp); err != nil {
		return "", &domain.GenerationBackendError{
			Backend:    "openai",
			StatusCode: httpclient.StatusCode(err),
			Err:        err,
		}
	}
	if resp.Error != nil {
		return "", &domain.GenerationBackendError{Backend: "openai", Err: fmt.Errorf("%s", resp.Error.Message)}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.GenerationBackendError{Backend: "openai", Err: fmt.Errorf("no choices returned")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.client.Get(ctx, s.baseURL+"/models", s.header); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
