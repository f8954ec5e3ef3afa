package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes every environment override (DOCRAG_EMBEDDING_PROVIDER).
const EnvPrefix = "docrag"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyWatchFolder     = "watch.folder"
	keyWatchPattern    = "watch.pattern"
	keyWatchDebounce   = "watch.debounce_ms"
	keyChunkSize       = "chunker.size"
	keyChunkOverlap    = "chunker.overlap"
	keyStoreBackend    = "store.backend"
	keyStoreDir        = "store.dir"
	keyStorePageSize   = "store.page_size"
	keyBatchSize       = "ingest.batch_size"
	keyQueueSize       = "ingest.queue_size"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedRetries    = "embedding.max_retries"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyEmbedTimeout    = "embedding.timeout_seconds"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout_seconds"
	keyQueryTopK       = "query.top_k"
	keyServerAddr      = "server.addr"
	storeDirName       = "store"
	memoryConfigPath   = ":memory:"
	defaultEnvFileName = ".env"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
)

// settingKeys lists every key Set accepts and how string values are parsed.
var settingKeys = map[string]keyKind{
	keyWatchFolder:   kindString,
	keyWatchPattern:  kindString,
	keyWatchDebounce: kindInt,
	keyChunkSize:     kindInt,
	keyChunkOverlap:  kindInt,
	keyStoreBackend:  kindString,
	keyStoreDir:      kindString,
	keyStorePageSize: kindInt,
	keyBatchSize:     kindInt,
	keyQueueSize:     kindInt,
	keyEmbedProvider: kindString,
	keyEmbedModel:    kindString,
	keyEmbedBaseURL:  kindString,
	keyEmbedAPIKey:   kindString,
	keyEmbedDims:     kindInt,
	keyEmbedRetries:  kindInt,
	keyEmbedRPS:      kindFloat,
	keyEmbedTimeout:  kindInt,
	keyLLMProvider:   kindString,
	keyLLMModel:      kindString,
	keyLLMBaseURL:    kindString,
	keyLLMAPIKey:     kindString,
	keyLLMTimeout:    kindInt,
	keyQueryTopK:     kindInt,
	keyServerAddr:    kindString,
}

// SettingKeys returns every supported configuration key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// envOverrides is filled by envconfig. Nil fields were not set.
type envOverrides struct {
	WatchFolder   *string  `envconfig:"WATCH_FOLDER"`
	WatchPattern  *string  `envconfig:"WATCH_PATTERN"`
	ChunkSize     *int     `envconfig:"CHUNKER_SIZE"`
	ChunkOverlap  *int     `envconfig:"CHUNKER_OVERLAP"`
	StoreBackend  *string  `envconfig:"STORE_BACKEND"`
	StoreDir      *string  `envconfig:"STORE_DIR"`
	EmbedProvider *string  `envconfig:"EMBEDDING_PROVIDER"`
	EmbedModel    *string  `envconfig:"EMBEDDING_MODEL"`
	EmbedBaseURL  *string  `envconfig:"EMBEDDING_BASE_URL"`
	EmbedAPIKey   *string  `envconfig:"EMBEDDING_API_KEY"`
	EmbedDims     *int     `envconfig:"EMBEDDING_DIMENSIONS"`
	EmbedRPS      *float64 `envconfig:"EMBEDDING_REQUESTS_PER_SECOND"`
	LLMProvider   *string  `envconfig:"LLM_PROVIDER"`
	LLMModel      *string  `envconfig:"LLM_MODEL"`
	LLMBaseURL    *string  `envconfig:"LLM_BASE_URL"`
	LLMAPIKey     *string  `envconfig:"LLM_API_KEY"`
	QueryTopK     *int     `envconfig:"QUERY_TOP_K"`
	ServerAddr    *string  `envconfig:"SERVER_ADDR"`
}

// LoadEnvFiles loads KEY=VALUE files into the process environment.
// Variables already set win. Missing files are skipped; with no
// arguments ./.env is tried.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{defaultEnvFileName}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadSettings resolves settings from defaults, the config store and
// DOCRAG_* environment variables, in increasing precedence. The result
// is not validated; callers that build the pipeline call Validate.
func LoadSettings(store driven.ConfigStore) (domain.Settings, error) {
	s := domain.DefaultSettings()
	r := reader{store: store}

	s.Watch.Folder = r.str(keyWatchFolder, s.Watch.Folder)
	s.Watch.Pattern = r.str(keyWatchPattern, s.Watch.Pattern)
	s.Watch.Debounce = r.millis(keyWatchDebounce, s.Watch.Debounce)

	s.Chunker.Size = r.integer(keyChunkSize, s.Chunker.Size)
	s.Chunker.Overlap = r.integer(keyChunkOverlap, s.Chunker.Overlap)

	s.Store.Backend = domain.StoreBackend(r.str(keyStoreBackend, string(s.Store.Backend)))
	s.Store.Dir = r.str(keyStoreDir, defaultStoreDir(store))
	s.Store.PageSize = r.integer(keyStorePageSize, s.Store.PageSize)

	s.Ingest.BatchSize = r.integer(keyBatchSize, s.Ingest.BatchSize)
	s.Ingest.QueueSize = r.integer(keyQueueSize, s.Ingest.QueueSize)

	s.Embedding.Provider = r.provider(keyEmbedProvider, s.Embedding.Provider)
	s.Embedding.Model = store.GetString(keyEmbedModel)
	s.Embedding.BaseURL = store.GetString(keyEmbedBaseURL) // empty selects the provider default
	s.Embedding.APIKey = store.GetString(keyEmbedAPIKey)
	s.Embedding.Dimensions = store.GetInt(keyEmbedDims)
	s.Embedding.MaxRetries = r.integer(keyEmbedRetries, s.Embedding.MaxRetries)
	s.Embedding.RequestsPerSecond = store.GetFloat(keyEmbedRPS)
	s.Embedding.Timeout = r.seconds(keyEmbedTimeout, s.Embedding.Timeout)

	s.LLM.Provider = r.provider(keyLLMProvider, s.LLM.Provider)
	s.LLM.Model = store.GetString(keyLLMModel)
	s.LLM.BaseURL = store.GetString(keyLLMBaseURL)
	s.LLM.APIKey = store.GetString(keyLLMAPIKey)
	s.LLM.Timeout = r.seconds(keyLLMTimeout, s.LLM.Timeout)

	s.Query.TopK = r.integer(keyQueryTopK, s.Query.TopK)
	s.Server.Addr = r.str(keyServerAddr, s.Server.Addr)

	if err := applyEnv(&s); err != nil {
		return domain.Settings{}, err
	}
	fillProviderDefaults(&s)

	return s, nil
}

func applyEnv(s *domain.Settings) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: environment: %v", domain.ErrInvalidInput, err)
	}

	setString(&s.Watch.Folder, env.WatchFolder)
	setString(&s.Watch.Pattern, env.WatchPattern)
	setInt(&s.Chunker.Size, env.ChunkSize)
	setInt(&s.Chunker.Overlap, env.ChunkOverlap)
	if env.StoreBackend != nil {
		s.Store.Backend = domain.StoreBackend(*env.StoreBackend)
	}
	setString(&s.Store.Dir, env.StoreDir)
	if env.EmbedProvider != nil {
		s.Embedding.Provider = domain.AIProvider(*env.EmbedProvider)
	}
	setString(&s.Embedding.Model, env.EmbedModel)
	setString(&s.Embedding.BaseURL, env.EmbedBaseURL)
	setString(&s.Embedding.APIKey, env.EmbedAPIKey)
	setInt(&s.Embedding.Dimensions, env.EmbedDims)
	if env.EmbedRPS != nil {
		s.Embedding.RequestsPerSecond = *env.EmbedRPS
	}
	if env.LLMProvider != nil {
		s.LLM.Provider = domain.AIProvider(*env.LLMProvider)
	}
	setString(&s.LLM.Model, env.LLMModel)
	setString(&s.LLM.BaseURL, env.LLMBaseURL)
	setString(&s.LLM.APIKey, env.LLMAPIKey)
	setInt(&s.Query.TopK, env.QueryTopK)
	setString(&s.Server.Addr, env.ServerAddr)

	// Conventional provider variables fill an empty key.
	if s.Embedding.APIKey == "" && s.Embedding.Provider == domain.AIProviderOpenAI {
		s.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.LLM.APIKey == "" {
		switch s.LLM.Provider {
		case domain.AIProviderOpenAI:
			s.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case domain.AIProviderAnthropic:
			s.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return nil
}

// fillProviderDefaults picks models and dimensions once providers are known.
func fillProviderDefaults(s *domain.Settings) {
	if s.Embedding.Model == "" {
		s.Embedding.Model = domain.DefaultEmbeddingModels()[s.Embedding.Provider]
	}
	if s.Embedding.Dimensions == 0 {
		if s.Embedding.Provider == domain.AIProviderHash {
			s.Embedding.Dimensions = domain.DefaultHashDimensions
		} else {
			s.Embedding.Dimensions = domain.EmbeddingDimensions()[s.Embedding.Model]
		}
	}
	if s.LLM.Model == "" {
		s.LLM.Model = domain.DefaultLLMModels()[s.LLM.Provider]
	}
	if s.LLM.BaseURL == "" && s.LLM.Provider == domain.AIProviderOllama {
		s.LLM.BaseURL = domain.DefaultSettings().LLM.BaseURL
	}
}

func defaultStoreDir(store driven.ConfigStore) string {
	if store.Path() == memoryConfigPath || store.Path() == "" {
		return storeDirName
	}
	return filepath.Join(filepath.Dir(store.Path()), storeDirName)
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (domain.Settings, error) {
	return LoadSettings(s.configStore)
}

// Set stores one key. String values are parsed to the key's type so
// `docrag config set chunker.size 800` stores an integer.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if str, isString := value.(string); isString {
		switch kind {
		case kindInt:
			n, err := strconv.Atoi(str)
			if err != nil {
				return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
			}
			value = n
		case kindFloat:
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
			}
			value = f
		}
	}

	switch key {
	case keyEmbedProvider:
		if p := domain.AIProvider(fmt.Sprint(value)); !p.SupportsEmbeddings() {
			return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, p)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(fmt.Sprint(value)); !p.SupportsGeneration() {
			return fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, p)
		}
	case keyStoreBackend:
		if b := domain.StoreBackend(fmt.Sprint(value)); !b.IsValid() {
			return fmt.Errorf("%w: store backend %q", domain.ErrUnsupportedType, b)
		}
	}

	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// reader reads config keys with defaults.
type reader struct {
	store driven.ConfigStore
}

func (r reader) str(key, defaultVal string) string {
	if val := r.store.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (r reader) integer(key string, defaultVal int) int {
	if _, exists := r.store.Get(key); !exists {
		return defaultVal
	}
	return r.store.GetInt(key)
}

func (r reader) millis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := r.store.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(r.store.GetInt(key)) * time.Millisecond
}

func (r reader) seconds(key string, defaultVal time.Duration) time.Duration {
	if n := r.store.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func (r reader) provider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := r.store.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		logger.Warn("settings: unknown %s %q, using %s", key, val, defaultVal)
		return defaultVal
	}
	return provider
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
