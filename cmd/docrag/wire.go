package main

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/pagefile"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/paged"
	"github.com/custodia-labs/docrag/internal/connectors/filesystem"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// runtime wires the adapters behind the CLI for one configuration
// directory.
type runtime struct {
	dir      string
	configs  driven.ConfigStore
	settings *services.SettingsService
}

func newRuntime(configDir string) (*runtime, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config directory: %w", err)
		}
		configDir = dir
	}

	configs, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	return &runtime{
		dir:      configDir,
		configs:  configs,
		settings: services.NewSettingsService(configs, ai.NewConfigValidator()),
	}, nil
}

func (r *runtime) Settings() (driving.SettingsService, error) {
	return r.settings, nil
}

// Manager builds the pipeline from the current settings: page store,
// vector store, AI backends, extraction and chunking, then the watcher.
func (r *runtime) Manager() (driving.Manager, error) {
	settings, err := r.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(r.dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	pages, err := openPageStore(settings.Store)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		_ = pages.Close()
		return nil, fmt.Errorf("embedding backend: %w", err)
	}

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		_ = pages.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("generation backend: %w", err)
	}

	store := paged.New(pages, paged.Config{
		PageSize: settings.Store.PageSize,
		Model:    embedder.ModelName(),
	})

	ingestion := services.NewIngestionService(
		normalisers.NewDefaultRegistry(),
		postprocessors.NewDefaultPipeline(settings.Chunker),
		embedder,
		store,
		services.IngestionConfig{
			BatchSize: settings.Ingest.BatchSize,
			QueueSize: settings.Ingest.QueueSize,
		},
	)

	query := services.NewQueryService(embedder, store, llm,
		services.WithTopK(settings.Query.TopK),
		services.WithGenerateTimeout(settings.LLM.Timeout),
	)
	query.SetPromptStore(prompts)

	deps := services.ManagerDeps{
		Store:     store,
		Embedder:  embedder,
		LLM:       llm,
		Ingestion: ingestion,
		Query:     query,
	}
	if settings.Watch.Folder != "" {
		deps.Watcher = filesystem.New(settings.Watch.Folder,
			filesystem.WithPattern(settings.Watch.Pattern),
			filesystem.WithDebounce(settings.Watch.Debounce),
		)
	}

	return services.NewManager(deps), nil
}

// openPageStore opens the page persistence selected by the store backend.
func openPageStore(cfg domain.StoreSettings) (driven.PageStore, error) {
	switch cfg.Backend {
	case domain.StoreBackendFile:
		s, err := pagefile.NewStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open page files: %w", err)
		}
		return s, nil
	case domain.StoreBackendSQLite:
		s, err := sqlite.NewStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case domain.StoreBackendMemory:
		return memory.NewPageStore(), nil
	default:
		return nil, fmt.Errorf("%w: store backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}
