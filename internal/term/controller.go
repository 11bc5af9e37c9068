// Package term draws streaming publications in place on a terminal:
// each new snapshot erases the previous rendering and redraws, so the
// document appears to grow without scrolling artifacts.
package term

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// controller handles cursor movement and screen clearing for in-place
// re-renders.
type controller struct {
	output io.Writer
	width  int
}

func newController(output io.Writer, width int) *controller {
	return &controller{
		output: output,
		width:  width,
	}
}

// ClearLines moves the cursor up n lines and clears from cursor to end
// of screen, erasing previously rendered output before a redraw.
func (c *controller) ClearLines(n int) error {
	if n <= 0 {
		return nil
	}

	seq := ansi.CursorUp(n)
	seq += ansi.CursorHorizontalAbsolute(1)
	seq += ansi.EraseDisplay(0)

	_, err := c.output.Write([]byte(seq))
	return err
}

// CountLines calculates how many terminal lines the rendered string
// occupies, accounting for wrapping and ANSI escape sequences.
func (c *controller) CountLines(rendered string) int {
	if len(rendered) == 0 {
		return 0
	}

	lines := strings.Split(rendered, "\n")
	totalLines := 0

	for i, line := range lines {
		// Don't count the trailing empty string after a final newline
		if i == len(lines)-1 && line == "" {
			continue
		}

		lineWidth := ansi.StringWidth(line)

		if lineWidth == 0 {
			// Empty line still takes one line
			totalLines++
		} else if c.width > 0 {
			wrappedLines := (lineWidth + c.width - 1) / c.width
			if wrappedLines == 0 {
				wrappedLines = 1
			}
			totalLines += wrappedLines
		} else {
			// No width specified, assume no wrapping
			totalLines++
		}
	}

	return totalLines
}
