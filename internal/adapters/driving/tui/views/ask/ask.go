// Package ask provides the question and answer view of the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// View is the ask view: question input, answer, sources and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *list.SourceList
	statusbar *status.Bar

	queryService driving.QueryService
	topK         int
	ctx          context.Context

	width      int
	height     int
	ready      bool
	err        error
	answering  bool
	focusInput bool
	question   string
	answer     *domain.Answer
}

// NewView creates an ask view. topK <= 0 leaves the choice to the
// query service.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService, topK int) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		sources:      list.NewSourceList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		topK:         topK,
		ctx:          context.Background(),
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context questions are answered with.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.answering = false
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if v.statusbar, cmd = v.statusbar.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if v.focusInput {
		if v.input, cmd = v.input.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return v, tea.Batch(cmds...)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	// Keys are ignored until the pending answer arrives.
	if v.answering {
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		v.statusbar.Clear()
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.sources.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.sources.MoveDown()
	}
	return v, nil
}

// submit starts answering the typed question. Blank input is ignored.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}

	v.question = question
	v.answering = true
	v.err = nil
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetMessage("")

	return tea.Batch(v.statusbar.SetState(status.StateAnswering), v.ask(question))
}

// ask answers question on a goroutine managed by Bubbletea.
func (v *View) ask(question string) tea.Cmd {
	service, ctx, topK := v.queryService, v.ctx, v.topK
	return func() tea.Msg {
		if service == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		return messages.AnswerCompleted{Question: question, Answer: service.Answer(ctx, question, topK)}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.answering = false
	answer := msg.Answer
	v.answer = &answer
	v.sources.SetSources(answer.Sources)

	if answer.Failed() {
		v.err = errors.New(answer.Error)
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(answer.Error)
		return
	}

	v.err = nil
	v.statusbar.SetState(status.StateAnswered)
	if len(answer.Sources) > 0 {
		v.statusbar.SetMessage(fmt.Sprintf("%d sources, confidence %.2f", len(answer.Sources), answer.Confidence))
	}
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("docrag"), "", v.input.View(), "")

	if v.answer != nil {
		if v.question != "" {
			sections = append(sections, v.styles.Subtitle.Render(v.question), "")
		}
		body := v.styles.Answer.Width(max(v.width-4, 20)).Render(v.answer.Text)
		sections = append(sections, body, "")
		if len(v.answer.Sources) > 0 {
			sections = append(sections, v.sources.View(), "")
		}
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.sources.SetDimensions(width, max(height/3, 4))
	v.statusbar.SetWidth(width)
}

// SetStatus forwards a polled pipeline status to the status bar.
func (v *View) SetStatus(st domain.Status) {
	v.statusbar.SetStatus(st)
}

// Reset returns to an empty question with the input focused.
func (v *View) Reset() {
	v.focusInput = true
	v.answering = false
	v.input.Focus()
	v.input.SetValue("")
	v.question = ""
	v.answer = nil
	v.sources.SetSources(nil)
	v.err = nil
	v.statusbar.Clear()
}

func (v *View) Ready() bool          { return v.ready }
func (v *View) Question() string     { return v.input.Value() }
func (v *View) SetQuestion(q string) { v.input.SetValue(q) }
func (v *View) Answering() bool      { return v.answering }
func (v *View) InputFocused() bool   { return v.focusInput }
func (v *View) Err() error           { return v.err }

// Answer returns the last answer, or nil before the first.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// SelectedSource returns the highlighted source of the last answer.
func (v *View) SelectedSource() *domain.SourceRef {
	return v.sources.SelectedSource()
}
