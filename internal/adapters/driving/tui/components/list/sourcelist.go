package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SourceList displays the chunks an answer was grounded on.
type SourceList struct {
	cursor
	sources []domain.SourceRef
	styles  *styles.Styles
}

// NewSourceList creates an empty source list.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &SourceList{
		cursor: cursor{width: 80, height: 10},
		styles: s,
	}
}

// Update handles list navigation keys.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	l.handleKey(msg)
	return l, nil
}

// View renders the sources with their confidence, numbered the way the
// answer cites them.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.sources)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))), "")

	start, end := l.window(1, 2)
	nameWidth := max(l.width-24, 10)
	for i := start; i < end; i++ {
		src := l.sources[i]
		name := truncate(src.Source, nameWidth)
		row := fmt.Sprintf("[%d] %-*s chunk %-4d", i+1, nameWidth, name, src.ChunkIndex)
		score := fmt.Sprintf("%.2f", src.Confidence)

		if i == l.selected {
			lines = append(lines, l.styles.Selected.Render("> "+row+" "+score))
			continue
		}
		lines = append(lines, l.styles.Normal.Render("  "+row+" ")+l.styles.Muted.Render(score))
	}
	return strings.Join(lines, "\n")
}

// SetSources replaces the list and selects the first entry.
func (l *SourceList) SetSources(sources []domain.SourceRef) {
	l.sources = sources
	l.reset(len(sources))
}

// Sources returns the listed sources.
func (l *SourceList) Sources() []domain.SourceRef { return l.sources }

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int { return l.selected }

// SelectedSource returns the selected source, or nil when empty.
func (l *SourceList) SelectedSource() *domain.SourceRef {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

func (l *SourceList) MoveUp()   { l.up() }
func (l *SourceList) MoveDown() { l.down() }

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}
