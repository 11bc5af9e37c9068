package term

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/samsaffron/streammd/internal/stream"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934"))

// Sink renders each publication in place of the previous one. It
// implements stream.Publisher for plain terminal output.
type Sink struct {
	ctrl  *controller
	lines int // terminal lines occupied by the last draw
}

func NewSink(out io.Writer, width int) *Sink {
	return &Sink{ctrl: newController(out, width)}
}

func (s *Sink) Publish(p stream.Publication) {
	if err := s.ctrl.ClearLines(s.lines); err != nil {
		return
	}
	if _, err := io.WriteString(s.ctrl.output, p.Rendered); err != nil {
		return
	}
	s.lines = s.ctrl.CountLines(p.Rendered)
}

func (s *Sink) Finish(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(s.ctrl.output, "\n%s\n", errorStyle.Render(fmt.Sprintf("stream failed: %v", err)))
}
