package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure QueryService implements the interfaces.
var (
	_ driving.QueryService    = (*QueryService)(nil)
	_ driven.PromptStoreAware = (*QueryService)(nil)
)

// errNoGenerator is reported when no generation backend is configured.
var errNoGenerator = errors.New("no generation backend configured")

// QueryService answers questions from the stored records.
type QueryService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService

	topK    int
	timeout time.Duration

	mu      sync.RWMutex
	prompts driven.PromptStore
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithTopK sets the default number of retrieved chunks.
func WithTopK(k int) QueryOption {
	return func(s *QueryService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithGenerateTimeout bounds each generation call.
func WithGenerateTimeout(d time.Duration) QueryOption {
	return func(s *QueryService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewQueryService creates a query service. llm may be nil, in which case
// every question with results degrades to the apology answer.
func NewQueryService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	opts ...QueryOption,
) *QueryService {
	s := &QueryService{
		embedder: embedder,
		store:    store,
		llm:      llm,
		topK:     domain.DefaultTopK,
		timeout:  domain.DefaultGenerateTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPromptStore sets the store the answer template is loaded from.
func (s *QueryService) SetPromptStore(store driven.PromptStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = store
}

// Answer retrieves the most similar chunks and asks the generation
// backend for an answer grounded in them.
func (s *QueryService) Answer(ctx context.Context, question string, topK int) domain.Answer {
	logger.Section("Answer")

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{
			Text:    domain.InvalidQuestionText,
			Sources: []domain.SourceRef{},
			Error:   fmt.Errorf("%w: empty question", domain.ErrInvalidInput).Error(),
		}
	}
	if topK <= 0 {
		topK = s.topK
	}
	logger.Debug("Question: %q, topK: %d", question, topK)

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return apology(fmt.Errorf("embed question: %w", err))
	}

	hits, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		return apology(fmt.Errorf("search: %w", err))
	}
	if len(hits) == 0 {
		logger.Debug("No matching chunks")
		return domain.Answer{Text: domain.NoInformationAnswer, Sources: []domain.SourceRef{}}
	}

	sources := make([]domain.SourceRef, len(hits))
	minDistance := math.Inf(1)
	for i, hit := range hits {
		sources[i] = domain.SourceRef{
			Source:     hit.Metadata.Source,
			ChunkIndex: hit.Metadata.ChunkIndex,
			Confidence: confidence(hit.Distance),
		}
		minDistance = math.Min(minDistance, hit.Distance)
		logger.Debug("[%d] %s chunk %d distance %.4f", i+1, hit.Metadata.Source, hit.Metadata.ChunkIndex, hit.Distance)
	}

	if s.llm == nil {
		return apology(errNoGenerator)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Generate(genCtx, s.buildPrompt(question, hits), driven.GenerateOptions{})
	if err != nil {
		return apology(fmt.Errorf("generate: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apology(errors.New("generate: empty completion"))
	}

	return domain.Answer{
		Text:       text,
		Sources:    sources,
		Confidence: confidence(minDistance),
	}
}

// buildPrompt numbers each retrieved chunk and fills the answer template.
func (s *QueryService) buildPrompt(question string, hits []domain.SearchHit) string {
	var blocks strings.Builder
	for i, hit := range hits {
		if i > 0 {
			blocks.WriteString("\n\n")
		}
		fmt.Fprintf(&blocks, "[%d] (source: %s, chunk %d)\n%s",
			i+1, hit.Metadata.Source, hit.Metadata.ChunkIndex, hit.Text)
	}

	return fmt.Sprintf(s.template(), blocks.String(), question)
}

func (s *QueryService) template() string {
	s.mu.RLock()
	prompts := s.prompts
	s.mu.RUnlock()

	if prompts == nil {
		return driven.DefaultAnswerPrompt
	}
	tmpl, err := prompts.Load(driven.PromptAnswer)
	if err != nil || strings.Count(tmpl, "%s") != 2 {
		logger.Warn("answer prompt unusable, using built-in template")
		return driven.DefaultAnswerPrompt
	}
	return tmpl
}

func apology(err error) domain.Answer {
	logger.Error("answer failed: %v", err)
	return domain.Answer{
		Text:    domain.ApologyAnswer,
		Sources: []domain.SourceRef{},
		Error:   err.Error(),
	}
}

func confidence(distance float64) float64 {
	return math.Max(0, 1-distance)
}
