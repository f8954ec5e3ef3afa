// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// AnswerRequested is a command to answer a question.
type AnswerRequested struct {
	Question string
	TopK     int
}

// AnswerCompleted carries the answer back to the model. Answers never
// fail outright; Answer.Error carries the reason when they degrade.
type AnswerCompleted struct {
	Question string
	Answer   domain.Answer
}

// StatusTick triggers a status poll.
type StatusTick struct{}

// StatusRefreshed carries a freshly polled pipeline status.
type StatusRefreshed struct {
	Status domain.Status
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewFiles lists recent ingestion outcomes.
	ViewFiles
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewFiles:
		return "files"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
