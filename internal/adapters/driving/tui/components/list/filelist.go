package list

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// FileList displays recent per-file ingestion outcomes.
type FileList struct {
	cursor
	files  []domain.IngestResult
	styles *styles.Styles
}

// NewFileList creates an empty file list.
func NewFileList(s *styles.Styles) *FileList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &FileList{
		cursor: cursor{width: 80, height: 10},
		styles: s,
	}
}

// Update handles list navigation keys.
func (l *FileList) Update(msg tea.Msg) (*FileList, tea.Cmd) {
	l.handleKey(msg)
	return l, nil
}

// View renders one row per file, followed by the error of failed files.
func (l *FileList) View() string {
	if len(l.files) == 0 {
		return l.styles.Muted.Render("No files ingested yet")
	}

	lines := make([]string, 0, len(l.files)*2)
	start, end := l.window(2, 0)
	nameWidth := max(l.width-36, 10)

	for i := start; i < end; i++ {
		f := l.files[i]
		indicator := "  "
		if i == l.selected {
			indicator = "> "
		}

		name := truncate(filepath.Base(f.Path), nameWidth)
		row := fmt.Sprintf("%s%-*s %4d chunks  %s", indicator, nameWidth, name, f.Chunks, f.Finished.Format("15:04:05"))

		state := l.styles.Success.Render(string(f.State))
		if f.State == domain.FileFailed {
			state = l.styles.Error.Render(string(f.State))
		}

		if i == l.selected {
			lines = append(lines, l.styles.Selected.Render(row)+" "+state)
		} else {
			lines = append(lines, l.styles.Normal.Render(row)+" "+state)
		}

		detail := fmt.Sprintf("    %d new, %d already stored", f.New, f.Skipped)
		if f.Error != "" {
			lines = append(lines, l.styles.Error.Render("    "+truncate(f.Error, l.width-4)))
			continue
		}
		lines = append(lines, l.styles.Muted.Render(detail))
	}
	return strings.Join(lines, "\n")
}

// SetFiles replaces the list, keeping the selection when still in range.
func (l *FileList) SetFiles(files []domain.IngestResult) {
	selected := l.selected
	l.files = files
	l.reset(len(files))
	if selected < len(files) {
		l.selected = selected
	}
}

// Files returns the listed outcomes.
func (l *FileList) Files() []domain.IngestResult { return l.files }

// Selected returns the index of the selected file.
func (l *FileList) Selected() int { return l.selected }

func (l *FileList) MoveUp()   { l.up() }
func (l *FileList) MoveDown() { l.down() }

// SetDimensions sets the component dimensions.
func (l *FileList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}
