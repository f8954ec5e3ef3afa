package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultHistorySize is the number of per-file outcomes kept for status.
const DefaultHistorySize = 50

// IngestionConfig sizes the ingestion pipeline.
type IngestionConfig struct {
	// BatchSize is the number of chunks embedded and persisted together.
	BatchSize int

	// QueueSize is the capacity of the queue; Enqueue blocks beyond it.
	QueueSize int

	// HistorySize bounds the recent outcome list.
	HistorySize int
}

// IngestionService turns source files into stored records. Queued paths
// are processed in order by a single worker, which is the only writer to
// the vector store.
type IngestionService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	store    driven.VectorStore
	cfg      IngestionConfig

	queue chan string
	stop  chan struct{}
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	// writeMu serialises store writers: the worker, IngestFile and Exclusive.
	writeMu sync.Mutex

	mu      sync.RWMutex
	closed  bool
	started bool
	recent  []domain.IngestResult
}

// NewIngestionService creates an ingestion service. Zero config values
// select the defaults.
func NewIngestionService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cfg IngestionConfig,
) *IngestionService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = domain.DefaultQueueSize
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	return &IngestionService{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		queue:    make(chan string, cfg.QueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Files are processed with ctx; cancelling it
// aborts the file in progress. Calling Start twice has no effect.
func (s *IngestionService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run(ctx)
	})
}

// Stop closes the queue and waits for the worker to finish the file in
// progress. Paths still queued are dropped.
func (s *IngestionService) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		close(s.stop)
		if started {
			<-s.done
		}

		if n := len(s.queue); n > 0 {
			logger.Warn("ingestion stopped with %d queued file(s) dropped", n)
		}
	})
}

func (s *IngestionService) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case path := <-s.queue:
			s.IngestFile(ctx, path)
		}
	}
}

// Enqueue adds path to the queue, blocking while it is full.
func (s *IngestionService) Enqueue(ctx context.Context, path string) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return domain.ErrQueueClosed
	}

	select {
	case s.queue <- path:
		logger.Debug("%s: %s", domain.FileQueued, path)
		return nil
	case <-s.stop:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLength returns the number of paths waiting to be processed.
func (s *IngestionService) QueueLength() int {
	return len(s.queue)
}

// Recent returns the most recent per-file outcomes, newest first.
func (s *IngestionService) Recent() []domain.IngestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.IngestResult, len(s.recent))
	for i, r := range s.recent {
		out[len(s.recent)-1-i] = r
	}
	return out
}

// IngestFile runs the full pipeline for one file and records the outcome.
// Failures are reported in the result, never retried.
func (s *IngestionService) IngestFile(ctx context.Context, path string) domain.IngestResult {
	res, _ := s.ingest(ctx, path)
	return res
}

// ingest is IngestFile keeping the typed error.
func (s *IngestionService) ingest(ctx context.Context, path string) (domain.IngestResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := domain.IngestResult{Path: path}
	err := s.process(ctx, &res)
	if err != nil {
		res.State = domain.FileFailed
		res.Error = err.Error()
		logger.Error("ingest %s: %v", path, err)
	} else {
		res.State = domain.FileDone
		logger.Info("ingested %s: %d chunks, %d new, %d already stored", path, res.Chunks, res.New, res.Skipped)
	}
	res.Finished = time.Now()

	s.record(res)
	return res, err
}

// Exclusive runs fn while no file is being written.
func (s *IngestionService) Exclusive(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

func (s *IngestionService) process(ctx context.Context, res *domain.IngestResult) error {
	transition(res, domain.FileExtracting)
	extracted, err := s.registry.Normalise(ctx, res.Path)
	if err != nil {
		var extractErr *domain.ExtractionError
		if errors.As(err, &extractErr) {
			return err
		}
		return &domain.ExtractionError{Path: res.Path, Err: err}
	}

	transition(res, domain.FileChunking)
	chunks, err := s.pipeline.Process(ctx, &extracted.Document)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		logger.Warn("no text extracted from %s", res.Path)
		return nil
	}

	transition(res, domain.FileFilteringDuplicates)
	fresh, err := s.unseen(ctx, chunks)
	if err != nil {
		return err
	}
	res.Skipped = len(chunks) - len(fresh)
	if len(fresh) == 0 {
		logger.Debug("%s already stored", res.Path)
		return nil
	}

	for start := 0; start < len(fresh); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+s.cfg.BatchSize, len(fresh))
		if err := s.storeBatch(ctx, res, fresh[start:end]); err != nil {
			return err
		}
		res.New += end - start
	}

	return nil
}

// unseen returns the chunks whose IDs are not stored yet, in chunk order.
func (s *IngestionService) unseen(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}

	existing, err := s.store.Exists(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check existing chunks: %w", err)
	}

	fresh := make([]domain.Chunk, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, ok := existing[c.ID]; ok {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

func (s *IngestionService) storeBatch(ctx context.Context, res *domain.IngestResult, batch []domain.Chunk) error {
	transition(res, domain.FileEmbedding)
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	transition(res, domain.FilePersisting)
	records := make([]domain.Record, len(batch))
	for i := range batch {
		records[i] = domain.NewRecord(batch[i], vectors[i])
	}
	if err := s.store.Insert(ctx, records); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func (s *IngestionService) record(res domain.IngestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, res)
	if over := len(s.recent) - s.cfg.HistorySize; over > 0 {
		s.recent = append([]domain.IngestResult(nil), s.recent[over:]...)
	}
}

func transition(res *domain.IngestResult, state domain.FileState) {
	res.State = state
	logger.Debug("%s: %s", state, res.Path)
}
