// Package files provides the recent ingestion outcomes view of the TUI.
package files

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// View lists the most recent per-file ingestion outcomes. Its content
// comes from the status the app polls.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.FileList
	statusbar *status.Bar
	status    domain.Status
	err       error
	ready     bool
}

// NewView creates the files view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetState(status.StateFiles)

	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewFileList(s),
		statusbar: bar,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation and status refreshes.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.StatusRefreshed:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.SetStatus(msg.Status)
		return v, nil

	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyEsc:
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case keymap.Matches(msg.String(), v.keymap.Refresh):
			return v, func() tea.Msg { return messages.StatusTick{} }
		}
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

// View renders the files view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("Recent files")
	if v.status.WatchFolder != "" {
		header += v.styles.Muted.Render("  " + v.status.WatchFolder)
	}

	sections := []string{header, ""}
	if v.status.QueueLength > 0 {
		sections = append(sections, v.styles.Warning.Render(fmt.Sprintf("%d file(s) waiting", v.status.QueueLength)), "")
	}
	sections = append(sections, v.list.View(), "")
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetStatus replaces the listed outcomes with those of st.
func (v *View) SetStatus(st domain.Status) {
	v.status = st
	v.list.SetFiles(st.RecentFiles)
	v.statusbar.SetStatus(st)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.ready = true
	v.list.SetDimensions(width, max(height-8, 2))
	v.statusbar.SetWidth(width)
}

// Files returns the listed outcomes.
func (v *View) Files() []domain.IngestResult {
	return v.list.Files()
}

// Err returns the last refresh error.
func (v *View) Err() error {
	return v.err
}
