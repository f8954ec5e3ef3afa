package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/docrag/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

var errMock = errors.New("mock failure")

// mockRegistry serves document text from a map keyed by path.
type mockRegistry struct {
	docs map[string]string
	errs map[string]error
}

func newMockRegistry(docs map[string]string) *mockRegistry {
	return &mockRegistry{docs: docs, errs: map[string]error{}}
}

func (r *mockRegistry) Normalise(_ context.Context, path string) (*driven.NormaliseResult, error) {
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	content, ok := r.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return &driven.NormaliseResult{Document: domain.Document{
		Path:    path,
		Source:  filepath.Base(path),
		Content: content,
	}}, nil
}

func (r *mockRegistry) Register(driven.Normaliser) {}

func (r *mockRegistry) SupportedExtensions() []string { return []string{".txt"} }

// countingEmbedder wraps the hash embedder and records calls.
type countingEmbedder struct {
	*hash.EmbeddingService

	mu         sync.Mutex
	embedCalls int
	batchCalls int
	embedded   int
	failBatch  int // fail the nth EmbedBatch call (1-based); 0 never fails
	embedErr   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{EmbeddingService: hash.NewEmbeddingService(64)}
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.embedCalls++
	err := e.embedErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	fail := e.failBatch != 0 && e.batchCalls == e.failBatch
	if !fail {
		e.embedded += len(texts)
	}
	e.mu.Unlock()
	if fail {
		return nil, &domain.EmbeddingBackendError{Backend: "mock", Err: errMock}
	}
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

func (e *countingEmbedder) Embedded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedded
}

func (e *countingEmbedder) EmbedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedCalls
}

// mockLLM records prompts and returns a canned response.
type mockLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	block      bool
	calls      int
	lastPrompt string
	closed     bool
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	block, resp, err := m.block, m.response, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", &domain.GenerationBackendError{Backend: "mock", Err: ctx.Err()}
	}
	return resp, err
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(context.Context) error { return nil }

func (m *mockLLM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// staticEmbedder returns the same vector for every text.
type staticEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func (e *staticEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, e.err
}

func (e *staticEmbedder) Dimensions() int { return len(e.vector) }
func (e *staticEmbedder) ModelName() string { return "static" }
func (e *staticEmbedder) Ping(context.Context) error { return nil }
func (e *staticEmbedder) Close() error { return nil }

// mockPromptStore serves a single answer template.
type mockPromptStore struct {
	template string
	err      error
}

func (p *mockPromptStore) Load(string) (string, error) { return p.template, p.err }

func (p *mockPromptStore) Reload() {}

// mockAIValidator records what it was asked to validate.
type mockAIValidator struct {
	embedErr      error
	llmErr        error
	lastEmbedding domain.EmbeddingSettings
	lastLLM       domain.LLMSettings
}

func (v *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	v.lastEmbedding = *cfg
	return v.embedErr
}

func (v *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	v.lastLLM = *cfg
	return v.llmErr
}

// mockWatcher reports a fixed set of files, then waits for cancellation.
type mockWatcher struct {
	folder string
	files  []string
	err    error
}

func (w *mockWatcher) Watch(ctx context.Context, onFile func(string)) error {
	if w.err != nil {
		return w.err
	}
	for _, f := range w.files {
		onFile(f)
	}
	<-ctx.Done()
	return nil
}

func (w *mockWatcher) Folder() string { return w.folder }
