// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// State is what the bar's left side currently reports.
type State string

const (
	StateReady     State = "ready"
	StateAnswering State = "answering"
	StateError     State = "error"
	StateAnswered  State = "answered"
	StateFiles     State = "files"
)

// Bar shows the pipeline status on the left and key hints on the right.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	state   State
	message string
	status  domain.Status
	width   int
}

// NewBar creates a status bar.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: sp,
		state:   StateReady,
		width:   80,
	}
}

// Init returns nil; the spinner is started by SetState.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update advances the spinner while answering.
func (b *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || b.state != StateAnswering {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return b, cmd
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateAnswering:
		return b.spinner.View() + b.styles.Muted.Render(" Thinking...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateReady, StateAnswered, StateFiles:
	}
	if b.message != "" {
		return b.styles.Normal.Render(b.message)
	}
	return b.renderPipeline()
}

// renderPipeline summarises the last polled pipeline status.
func (b *Bar) renderPipeline() string {
	st := b.status
	if st.State == "" {
		return b.styles.Muted.Render("Connecting...")
	}

	parts := []string{fmt.Sprintf("%s, %d chunks", st.State, st.DocumentCount)}
	if st.QueueLength > 0 {
		parts = append(parts, fmt.Sprintf("%d queued", st.QueueLength))
	}
	if st.Watching {
		parts = append(parts, "watching")
	}
	text := b.styles.Muted.Render(strings.Join(parts, " | "))
	if st.ModelMismatch {
		text += " " + b.styles.Warning.Render("model mismatch")
	}
	return text
}

func (b *Bar) renderRight() string {
	var bindings []key.Binding
	switch b.state {
	case StateAnswered:
		bindings = b.keymap.AnswerHelp()
	case StateFiles:
		bindings = b.keymap.FilesHelp()
	case StateReady, StateAnswering, StateError:
		bindings = b.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the bar state. Entering StateAnswering returns the
// command that starts the spinner.
func (b *Bar) SetState(state State) tea.Cmd {
	b.state = state
	if state == StateAnswering {
		return b.spinner.Tick
	}
	return nil
}

func (b *Bar) State() State { return b.state }

// SetMessage replaces the pipeline summary with message until cleared.
func (b *Bar) SetMessage(message string) { b.message = message }

func (b *Bar) Message() string { return b.message }

// SetStatus records the latest polled pipeline status.
func (b *Bar) SetStatus(status domain.Status) { b.status = status }

func (b *Bar) Status() domain.Status { return b.status }

func (b *Bar) SetWidth(width int) { b.width = width }

func (b *Bar) Width() int { return b.width }

// Clear resets the state and message, keeping the polled status.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
}
