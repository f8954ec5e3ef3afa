// Package styles holds the colour theme and lipgloss styles of the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette the styles are built from.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#2563EB"), // Blue
		Secondary:  lipgloss.Color("#0D9488"), // Teal
		Background: lipgloss.Color("#1E1E2E"),
		Foreground: lipgloss.Color("#E2E8F0"),
		Muted:      lipgloss.Color("#64748B"),
		Success:    lipgloss.Color("#22C55E"),
		Warning:    lipgloss.Color("#EAB308"),
		Error:      lipgloss.Color("#EF4444"),
		Border:     lipgloss.Color("#475569"),
	}
}

// Styles contains the pre-configured styles used by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// InputField frames the question input.
	InputField lipgloss.Style

	StatusBar lipgloss.Style
	Help      lipgloss.Style
	Border    lipgloss.Style

	// Answer renders generated answer text with a left rule.
	Answer lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme selects the default.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:  lipgloss.NewStyle().Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Primary),

		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#0F172A")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().Foreground(theme.Muted),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Answer: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Primary).
			PaddingLeft(1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
