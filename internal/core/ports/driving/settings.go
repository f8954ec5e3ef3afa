package driving

import "github.com/custodia-labs/docrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment
	// overrides applied.
	Get() (domain.Settings, error)

	// Set stores a single configuration key and persists it.
	Set(key string, value any) error

	// Path returns the configuration file path.
	Path() string

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
