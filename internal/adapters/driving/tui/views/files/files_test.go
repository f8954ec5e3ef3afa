package files

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

func testStatus() domain.Status {
	return domain.Status{
		State:         "ready",
		DocumentCount: 30,
		QueueLength:   2,
		Watching:      true,
		WatchFolder:   "/srv/docs",
		RecentFiles: []domain.IngestResult{
			{Path: "/srv/docs/reg-bi.pdf", State: domain.FileDone, Chunks: 20, New: 20, Finished: time.Now()},
			{Path: "/srv/docs/scan.pdf", State: domain.FileFailed, Error: "extract: encrypted", Finished: time.Now()},
		},
	}
}

func TestView_RendersPolledStatus(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(120, 30)

	v.Update(messages.StatusRefreshed{Status: testStatus()})

	view := v.View()
	assert.Contains(t, view, "Recent files")
	assert.Contains(t, view, "/srv/docs")
	assert.Contains(t, view, "2 file(s) waiting")
	assert.Contains(t, view, "reg-bi.pdf")
	assert.Contains(t, view, "extract: encrypted")
	assert.Contains(t, view, "r: refresh")
	assert.Len(t, v.Files(), 2)
}

func TestView_RefreshErrorKeepsFiles(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(120, 30)
	v.Update(messages.StatusRefreshed{Status: testStatus()})

	v.Update(messages.StatusRefreshed{Err: errors.New("read summary: disk full")})

	require.Error(t, v.Err())
	assert.Len(t, v.Files(), 2)
	assert.Contains(t, v.View(), "disk full")
}

func TestView_Keys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want tea.Msg
	}{
		{name: "esc goes to menu", key: tea.KeyMsg{Type: tea.KeyEsc}, want: messages.ViewChanged{View: messages.ViewMenu}},
		{name: "r refreshes", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}, want: messages.StatusTick{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView(nil, nil)
			_, cmd := v.Update(tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestView_NotReady(t *testing.T) {
	assert.Equal(t, "Initialising...", NewView(nil, nil).View())
}
