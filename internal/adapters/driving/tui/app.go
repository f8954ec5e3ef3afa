package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/views/files"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DefaultPollInterval is how often the pipeline status is refreshed.
const DefaultPollInterval = 2 * time.Second

// pollMsg drives the periodic status refresh.
type pollMsg struct{}

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView  *menu.View
	askView   *ask.View
	filesView *files.View

	currentView  messages.ViewType
	pollInterval time.Duration

	status domain.Status
	err    error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		menuView:     menu.NewView(s),
		askView:      ask.NewView(s, km, ports.Manager, ports.TopK),
		filesView:    files.NewView(s, km),
		currentView:  messages.ViewMenu,
		pollInterval: DefaultPollInterval,
	}, nil
}

// WithContext sets the context questions and status polls run with.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	return a
}

// WithPollInterval overrides how often the status is refreshed.
func (a *App) WithPollInterval(d time.Duration) *App {
	if d > 0 {
		a.pollInterval = d
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docrag"),
		func() tea.Msg { return pollMsg{} },
	)
}

// fetchStatus polls the manager once.
func (a *App) fetchStatus() tea.Cmd {
	manager, ctx := a.ports.Manager, a.ctx
	return func() tea.Msg {
		st, err := manager.Status(ctx)
		return messages.StatusRefreshed{Status: st, Err: err}
	}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case pollMsg:
		next := tea.Tick(a.pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
		return a, tea.Batch(a.fetchStatus(), next)

	case messages.StatusTick:
		return a, a.fetchStatus()

	case messages.StatusRefreshed:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.err = nil
			a.status = msg.Status
			a.menuView.SetStatus(msg.Status)
			a.askView.SetStatus(msg.Status)
		}
		a.filesView, cmd = a.filesView.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.forwardKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewAsk:
			a.askView.Reset()
			return a, a.askView.Init()
		case messages.ViewFiles:
			return a, a.fetchStatus()
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, nil

	case messages.AnswerCompleted, messages.ErrorOccurred:
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Spinner ticks and cursor blinks belong to the ask view.
	if a.currentView == messages.ViewAsk {
		a.askView, cmd = a.askView.Update(msg)
	}
	return a, cmd
}

func (a *App) forwardKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewFiles:
		a.filesView, cmd = a.filesView.Update(msg)
	case messages.ViewHelp:
		if msg.Type == tea.KeyEsc {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewFiles:
		return a.filesView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back to menu
  ctrl+c      Quit

Ask:
  (type)      Enter a question
  enter       Ask
  n           New question
  j/k, ↑/↓    Move through the sources

Recent files:
  j/k, ↑/↓    Move through files
  r           Refresh now

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Status returns the last polled pipeline status.
func (a *App) Status() domain.Status {
	return a.status
}

// Err returns the last status poll error.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app knows the terminal size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.filesView.SetDimensions(width, height)
}
