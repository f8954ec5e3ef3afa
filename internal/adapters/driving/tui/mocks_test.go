package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var _ driving.Manager = (*mockManager)(nil)

// mockManager implements driving.Manager for testing.
type mockManager struct {
	mu        sync.Mutex
	status    domain.Status
	statusErr error
	answer    domain.Answer
	questions []string
}

func (m *mockManager) Answer(_ context.Context, question string, _ int) domain.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	return m.answer
}

func (m *mockManager) Start(context.Context, bool) error { return nil }
func (m *mockManager) Stop() error                       { return nil }
func (m *mockManager) Wait(context.Context) error        { return nil }

func (m *mockManager) Status(context.Context) (domain.Status, error) {
	return m.status, m.statusErr
}

func (m *mockManager) IngestFile(_ context.Context, path string) (domain.IngestResult, error) {
	return domain.IngestResult{Path: path, State: domain.FileDone}, nil
}

func (m *mockManager) Clear(context.Context) error { return nil }
