package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Manager implements the interface.
var _ driving.Manager = (*Manager)(nil)

// errNoWatcher is returned by Start when watching without a folder.
var errNoWatcher = fmt.Errorf("%w: no watch folder configured", domain.ErrInvalidInput)

// ManagerDeps are the collaborators a Manager drives. Watcher and LLM
// may be nil.
type ManagerDeps struct {
	Store     driven.VectorStore
	Embedder  driven.EmbeddingService
	LLM       driven.LLMService
	Watcher   driven.FileWatcher
	Ingestion *IngestionService
	Query     *QueryService
}

// Manager owns the pipeline lifecycle and is the single entry point for
// the driving adapters. A stopped Manager cannot be restarted.
type Manager struct {
	deps ManagerDeps

	mu            sync.RWMutex
	state         domain.ComponentState
	stopped       bool
	watching      bool
	modelMismatch bool

	cancelWorker context.CancelFunc
	cancelWatch  context.CancelFunc
	watchDone    chan struct{}
	watchErr     error
}

// NewManager creates a manager in the uninitialized state.
func NewManager(deps ManagerDeps) *Manager {
	return &Manager{deps: deps}
}

// Start opens the store, starts the ingestion worker and, when watch is
// true, the folder watcher. Starting a running manager is a no-op.
func (m *Manager) Start(ctx context.Context, watch bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return &domain.NotReadyError{Component: "manager", State: m.state}
	}
	if m.state == domain.StateReady {
		return nil
	}
	if watch && m.deps.Watcher == nil {
		return errNoWatcher
	}

	if loader, ok := m.deps.Store.(driven.VectorStoreLoader); ok {
		if err := loader.Load(ctx); err != nil {
			m.state = domain.StateFailed
			return fmt.Errorf("open vector store: %w", err)
		}
	}
	m.checkModel(ctx)

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelWorker = cancel
	m.deps.Ingestion.Start(workerCtx)

	if watch {
		m.startWatcher(ctx)
	}

	m.state = domain.StateReady
	logger.Info("pipeline started (watching: %t)", watch)
	return nil
}

// startWatcher runs the watcher until Stop or ctx ends. Caller holds mu.
func (m *Manager) startWatcher(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	m.cancelWatch = cancel
	m.watchDone = make(chan struct{})
	m.watching = true

	go func() {
		defer close(m.watchDone)

		err := m.deps.Watcher.Watch(watchCtx, func(path string) {
			if err := m.deps.Ingestion.Enqueue(watchCtx, path); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("enqueue %s: %v", path, err)
			}
		})

		m.mu.Lock()
		m.watching = false
		m.watchErr = err
		m.mu.Unlock()

		if err != nil {
			logger.Error("watch %s: %v", m.deps.Watcher.Folder(), err)
		}
	}()
}

// checkModel warns when the store was built by another embedding model.
// Vectors from different models are not comparable.
func (m *Manager) checkModel(ctx context.Context) {
	sum, err := m.deps.Store.Summary(ctx)
	if err != nil || sum.TotalCount == 0 {
		m.modelMismatch = false
		return
	}

	model, dims := m.deps.Embedder.ModelName(), m.deps.Embedder.Dimensions()
	m.modelMismatch = (sum.Model != "" && sum.Model != model) ||
		(sum.Dimensions != 0 && dims != 0 && sum.Dimensions != dims)
	if m.modelMismatch {
		logger.Warn("store was built with %s (%d dimensions) but the embedder is %s (%d dimensions); run `docrag clear` and re-ingest",
			sum.Model, sum.Dimensions, model, dims)
	}
}

// Wait blocks until ctx ends or the watcher stops on its own, returning
// the watcher error in the latter case.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	done := m.watchDone
	m.mu.RUnlock()

	if done == nil {
		<-ctx.Done()
		return nil
	}

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.watchErr
	}
}

// Stop stops the watcher, then the worker, then closes the store and
// backends.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	cancelWatch, watchDone := m.cancelWatch, m.watchDone
	m.mu.Unlock()

	if cancelWatch != nil {
		cancelWatch()
		<-watchDone
	}

	m.deps.Ingestion.Stop()
	if m.cancelWorker != nil {
		m.cancelWorker()
	}

	var errs []error
	if err := m.deps.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := m.deps.Embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close embedder: %w", err))
	}
	if m.deps.LLM != nil {
		if err := m.deps.LLM.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close llm: %w", err))
		}
	}

	m.mu.Lock()
	m.state = domain.StateUninitialized
	m.watching = false
	m.mu.Unlock()

	logger.Info("pipeline stopped")
	return errors.Join(errs...)
}

// Status returns a point-in-time view of the pipeline. It is available
// in every state; counts are only filled in while ready.
func (m *Manager) Status(ctx context.Context) (domain.Status, error) {
	m.mu.RLock()
	status := domain.Status{
		State:         m.state.String(),
		Watching:      m.watching,
		ModelMismatch: m.modelMismatch,
		QueueLength:   m.deps.Ingestion.QueueLength(),
		RecentFiles:   m.deps.Ingestion.Recent(),
	}
	ready := m.state == domain.StateReady
	m.mu.RUnlock()

	if m.deps.Watcher != nil {
		status.WatchFolder = m.deps.Watcher.Folder()
	}
	if !ready {
		return status, nil
	}

	sum, err := m.deps.Store.Summary(ctx)
	if err != nil {
		return status, fmt.Errorf("read summary: %w", err)
	}
	status.DocumentCount = sum.TotalCount
	status.Model = sum.Model
	status.Dimensions = sum.Dimensions
	if status.Model == "" {
		status.Model = m.deps.Embedder.ModelName()
	}
	return status, nil
}

// Answer answers question from the stored records.
func (m *Manager) Answer(ctx context.Context, question string, topK int) domain.Answer {
	if err := m.ready(); err != nil {
		return domain.Answer{
			Text:    domain.ApologyAnswer,
			Sources: []domain.SourceRef{},
			Error:   err.Error(),
		}
	}
	return m.deps.Query.Answer(ctx, question, topK)
}

// IngestFile processes path synchronously. The returned error is the
// typed pipeline error when the file failed.
func (m *Manager) IngestFile(ctx context.Context, path string) (domain.IngestResult, error) {
	if err := m.ready(); err != nil {
		return domain.IngestResult{Path: path, State: domain.FileFailed, Error: err.Error()}, err
	}
	return m.deps.Ingestion.ingest(ctx, path)
}

// Clear removes every record. It waits for the file in progress. After a
// failed Start it empties the store without loading it.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.RLock()
	failed := m.state == domain.StateFailed && !m.stopped
	m.mu.RUnlock()
	if failed {
		return m.reset(ctx)
	}

	if err := m.ready(); err != nil {
		return err
	}

	err := m.deps.Ingestion.Exclusive(func() error {
		return m.deps.Store.Clear(ctx)
	})
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	m.mu.Lock()
	m.modelMismatch = false
	m.mu.Unlock()

	logger.Info("store cleared")
	return nil
}

// reset empties a store that failed to load. The manager goes back to
// uninitialized so the next Start opens the empty store.
func (m *Manager) reset(ctx context.Context) error {
	resetter, ok := m.deps.Store.(driven.VectorStoreResetter)
	if !ok {
		return &domain.NotReadyError{Component: "manager", State: domain.StateFailed}
	}

	err := m.deps.Ingestion.Exclusive(func() error {
		return resetter.Reset(ctx)
	})
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	m.mu.Lock()
	if m.state == domain.StateFailed {
		m.state = domain.StateUninitialized
	}
	m.modelMismatch = false
	m.mu.Unlock()

	logger.Warn("store could not be opened and was cleared")
	return nil
}

func (m *Manager) ready() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != domain.StateReady {
		return &domain.NotReadyError{Component: "manager", State: m.state}
	}
	return nil
}
