// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 60 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *httpclient.Client
}

// LLMService provides text generation using Ollama.
type LLMService struct {
	client  *httpclient.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
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

	return &LLMService{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	var resp generateResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/api/generate", nil, reqBody, &resp); err != nil {
		return "", &domain.GenerationBackendError{
			Backend:    "ollama",
			StatusCode: httpclient.StatusCode(err),
			Err:        err,
		}
	}
	if resp.Error != "" {
		return "", &domain.GenerationBackendError{Backend: "ollama", Err: fmt.Errorf("%s", resp.Error)}
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", &domain.GenerationBackendError{Backend: "ollama", Err: fmt.Errorf("empty response")}
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.client.Get(ctx, s.baseURL+"/api/tags", nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
