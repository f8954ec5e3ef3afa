// Package list provides navigable list components for the TUI.
package list

import tea "github.com/charmbracelet/bubbletea"

// cursor tracks a selection over n rows and the rows visible in height.
type cursor struct {
	selected int
	n        int
	width    int
	height   int
}

func (c *cursor) reset(n int) {
	c.n = n
	c.selected = 0
}

func (c *cursor) up() {
	if c.selected > 0 {
		c.selected--
	}
}

func (c *cursor) down() {
	if c.selected < c.n-1 {
		c.selected++
	}
}

// handleKey moves the cursor on up/down and j/k.
func (c *cursor) handleKey(msg tea.Msg) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch key.String() {
	case "up", "k":
		c.up()
	case "down", "j":
		c.down()
	}
}

// window returns the [start, end) range of rows to render when each row
// takes rowHeight lines and header lines are reserved.
func (c *cursor) window(rowHeight, header int) (int, int) {
	visible := max((c.height-header)/rowHeight, 1)
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	return start, min(start+visible, c.n)
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
