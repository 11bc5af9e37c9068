// Package tui is the full-screen stream viewer: a viewport that fills
// with the document as complete snapshots arrive, a spinner while the
// source is still talking, and silent cancellation on q/esc/ctrl+c.
package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/samsaffron/streammd/internal/render"
	"github.com/samsaffron/streammd/internal/stream"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#928374"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#b8bb26"))
)

type (
	pubMsg      stream.Publication
	finishedMsg struct{ err error }
)

// Model is the stream viewer. Create it with New, start the run with
// the publisher from Sink, attach the handle with SetRun, then hand the
// model to a tea.Program.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	keys     KeyMap

	run      *stream.Run
	pubs     chan stream.Publication
	fin      chan error
	stop     chan struct{}
	stopOnce sync.Once

	label   string // source description for the status line
	style   string // terminal render style
	started time.Time

	markdown string
	rendered string

	width  int
	height int
	ready  bool
	done   bool
	err    error
}

func New(label, style string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#d3869b"))

	return &Model{
		spinner: s,
		keys:    DefaultKeyMap(),
		pubs:    make(chan stream.Publication),
		fin:     make(chan error, 1),
		stop:    make(chan struct{}),
		label:   label,
		style:   style,
		started: time.Now(),
	}
}

// Sink returns the publisher that feeds this model. Pass it to
// stream.Start before running the program.
func (m *Model) Sink() stream.Publisher {
	return &chanSink{pubs: m.pubs, fin: m.fin, stop: m.stop}
}

// SetRun attaches the run handle so the viewer can stop it.
func (m *Model) SetRun(r *stream.Run) {
	m.run = r
}

// FinalMarkdown returns the last raw snapshot, for callers that persist
// or reprint the document after the program exits.
func (m *Model) FinalMarkdown() string { return m.markdown }

// FinalRendered returns the last rendered snapshot.
func (m *Model) FinalRendered() string { return m.rendered }

// Err returns the stream's terminal error, if any.
func (m *Model) Err() error { return m.err }

// Finished reports whether the stream ran to completion before the
// viewer exited.
func (m *Model) Finished() bool { return m.done }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForStream(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		m.redraw()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.abandon()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case pubMsg:
		m.markdown = msg.Markdown
		m.redraw()
		m.viewport.GotoBottom()
		cmds = append(cmds, m.waitForStream())

	case finishedMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "  starting..."
	}
	return m.viewport.View() + "\n" + m.statusLine()
}

// redraw re-renders the current markdown at the viewport width.
func (m *Model) redraw() {
	if !m.ready || m.markdown == "" {
		return
	}
	out, err := render.Terminal(m.markdown, m.style, m.viewport.Width)
	if err != nil {
		out = render.ErrorFragment
	}
	m.rendered = out
	m.viewport.SetContent(out)
}

func (m *Model) statusLine() string {
	var status string
	switch {
	case m.err != nil:
		status = errStyle.Render(fmt.Sprintf("✗ %v", m.err))
	case m.done:
		status = doneStyle.Render(fmt.Sprintf("✓ finished in %s", time.Since(m.started).Round(time.Millisecond)))
	default:
		status = m.spinner.View() + statusStyle.Render(fmt.Sprintf(
			"streaming from %s · %d chars · q to stop",
			m.label, len(m.markdown)))
	}
	return wordwrap.String(status, m.width)
}

// abandon stops the run and releases the publisher, so the driver never
// blocks on a viewer that has exited.
func (m *Model) abandon() {
	if m.run != nil {
		m.run.Stop()
	}
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Model) waitForStream() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-m.pubs:
			return pubMsg(p)
		case err := <-m.fin:
			return finishedMsg{err: err}
		}
	}
}

// chanSink bridges driver publications into the tea message loop.
type chanSink struct {
	pubs chan<- stream.Publication
	fin  chan<- error
	stop <-chan struct{}
}

func (s *chanSink) Publish(p stream.Publication) {
	select {
	case s.pubs <- p:
	case <-s.stop:
	}
}

func (s *chanSink) Finish(err error) {
	select {
	case s.fin <- err:
	case <-s.stop:
	}
}
