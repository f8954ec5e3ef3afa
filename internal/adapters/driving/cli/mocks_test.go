package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var (
	_ Runtime                 = (*mockRuntime)(nil)
	_ driving.Manager         = (*mockManager)(nil)
	_ driving.SettingsService = (*mockSettings)(nil)
)

// mockRuntime hands out the mocks below.
type mockRuntime struct {
	settings   *mockSettings
	manager    *mockManager
	managerErr error
}

func (r *mockRuntime) Settings() (driving.SettingsService, error) { return r.settings, nil }

func (r *mockRuntime) Manager() (driving.Manager, error) {
	if r.managerErr != nil {
		return nil, r.managerErr
	}
	return r.manager, nil
}

// mockManager implements driving.Manager for testing.
type mockManager struct {
	mu sync.Mutex

	startErr  error
	started   bool
	watch     bool
	stopped   bool
	cleared   bool
	clearErr  error
	status    domain.Status
	answer    domain.Answer
	results   map[string]domain.IngestResult
	ingestErr map[string]error
	questions []string
	topK      int
}

func (m *mockManager) Start(_ context.Context, watch bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started, m.watch = true, watch
	return nil
}

func (m *mockManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockManager) Wait(context.Context) error { return nil }

func (m *mockManager) Status(context.Context) (domain.Status, error) {
	return m.status, nil
}

func (m *mockManager) Answer(_ context.Context, question string, topK int) domain.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	m.topK = topK
	return m.answer
}

func (m *mockManager) IngestFile(_ context.Context, path string) (domain.IngestResult, error) {
	if err := m.ingestErr[path]; err != nil {
		return domain.IngestResult{Path: path, State: domain.FileFailed, Error: err.Error()}, err
	}
	if res, ok := m.results[path]; ok {
		return res, nil
	}
	return domain.IngestResult{Path: path, State: domain.FileDone}, nil
}

func (m *mockManager) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	return nil
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings    domain.Settings
	values      map[string]any
	setErr      error
	embedErr    error
	llmErr      error
	embedChecks int
	llmChecks   int
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultSettings(), values: map[string]any{}}
}

func (s *mockSettings) Get() (domain.Settings, error) { return s.settings, nil }

func (s *mockSettings) Set(key string, value any) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *mockSettings) Path() string { return "/tmp/docrag/config.toml" }

func (s *mockSettings) ValidateEmbeddingConfig() error {
	s.embedChecks++
	return s.embedErr
}

func (s *mockSettings) ValidateLLMConfig() error {
	s.llmChecks++
	return s.llmErr
}

// run executes the root command against r and returns the combined
// output. Command flags are reset afterwards.
func run(t *testing.T, r *mockRuntime, stdin string, args ...string) (string, error) {
	t.Helper()

	rt = nil
	if r != nil {
		rt = r
	}
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rt = nil
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		askTopK, askJSON = 0, false
		statusJSON, statusRecent = false, 10
		clearYes = false
		verbose = false
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func newMockRuntime() *mockRuntime {
	return &mockRuntime{settings: newMockSettings(), manager: &mockManager{}}
}
