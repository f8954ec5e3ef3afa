// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Back returns to the menu.
	Back key.Binding

	// Ask submits the question being typed.
	Ask key.Binding

	Up   key.Binding
	Down key.Binding

	Select key.Binding

	// NewQuestion clears the answer and focuses the input again.
	NewQuestion key.Binding

	// Refresh polls the pipeline status immediately.
	Refresh key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		NewQuestion: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new question"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// ShortHelp returns the hints shown while typing a question.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Back}
}

// AnswerHelp returns the hints shown once an answer is displayed.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.Down, k.Back}
}

// FilesHelp returns the hints of the recent files view.
func (k *KeyMap) FilesHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Ask, k.NewQuestion, k.Refresh},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches reports whether keyStr triggers binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
