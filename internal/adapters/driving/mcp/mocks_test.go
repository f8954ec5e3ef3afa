package mcp

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// mockManager is a mock implementation of driving.Manager.
type mockManager struct {
	answer    domain.Answer
	status    domain.Status
	statusErr error

	lastQuestion string
	lastTopK     int
}

func (m *mockManager) Answer(_ context.Context, question string, topK int) domain.Answer {
	m.lastQuestion = question
	m.lastTopK = topK
	return m.answer
}

func (m *mockManager) Start(context.Context, bool) error { return nil }

func (m *mockManager) Stop() error { return nil }

func (m *mockManager) Wait(context.Context) error { return nil }

func (m *mockManager) Status(context.Context) (domain.Status, error) {
	return m.status, m.statusErr
}

func (m *mockManager) IngestFile(_ context.Context, path string) (domain.IngestResult, error) {
	return domain.IngestResult{Path: path, State: domain.FileDone}, nil
}

func (m *mockManager) Clear(context.Context) error { return nil }
