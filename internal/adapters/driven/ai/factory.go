// Package ai provides factory functions for creating embedding and
// generation service adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/docrag/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/docrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docrag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings missing", domain.ErrInvalidInput)
	}

	switch settings.Provider {
	case domain.AIProviderHash:
		return hashembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		dimensions := settings.Dimensions
		if dimensions == 0 {
			dimensions = domain.EmbeddingDimensions()[settings.Model]
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        dimensions,
			MaxRetries:        settings.MaxRetries,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        settings.Dimensions,
			MaxRetries:        settings.MaxRetries,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use hash, ollama or openai",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the generation service selected by settings.
// Returns nil if no provider is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates a generation service and pings it.
// An unconfigured provider is not an error.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
