package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultSliderStep    = 0.05
)

// frameMsg carries the wall time of one UI frame.
type frameMsg time.Time

type Options struct {
	Host          string
	Port          int
	FrameInterval time.Duration
	// SliderStep is the normalized slider change per arrow key press.
	SliderStep float32
}

// Model is the interactive chair console. Every link call happens inside
// Update, so the link never sees concurrent access.
type Model struct {
	link *link.Link
	feed *Feed
	opts Options
	axis motion.Axis
	last time.Time
	err  error
	quit bool
}

// NewModel drives l. feed must already be registered as one of l's sinks.
func NewModel(l *link.Link, feed *Feed, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.SliderStep <= 0 || opts.SliderStep > 1 {
		opts.SliderStep = DefaultSliderStep
	}
	if feed == nil {
		feed = NewFeed(DefaultFeedSize)
	}
	return Model{link: l, feed: feed, opts: opts}
}

func (m Model) Init() tea.Cmd {
	return m.frame()
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		now := time.Time(msg)
		if !m.last.IsZero() {
			if err := m.link.Tick(now.Sub(m.last)); err != nil {
				m.err = err
			}
		}
		m.last = now
		return m, m.frame()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.link.Motion()
	switch msg.String() {
	case "ctrl+c", "q":
		_ = m.link.Close()
		m.quit = true
		return m, tea.Quit
	case "up", "k":
		m.axis = (m.axis + motion.NumAxes - 1) % motion.NumAxes
	case "down", "j":
		m.axis = (m.axis + 1) % motion.NumAxes
	case "left", "h":
		state.SetFromSlider(m.axis, state.Slider(m.axis)-m.opts.SliderStep)
	case "right", "l":
		state.SetFromSlider(m.axis, state.Slider(m.axis)+m.opts.SliderStep)
	case "1", "2", "3", "4":
		p := motion.Presets[int(msg.String()[0]-'1')]
		m.err = m.link.ApplyPreset(p)
	case "r":
		m.link.ResetMotion()
	case "p":
		m.link.ToggleVariant()
	case "c":
		if m.link.Connected() {
			m.err = m.link.Disconnect()
		} else {
			m.err = m.link.Connect(m.opts.Host, m.opts.Port)
		}
	}
	return m, nil
}

func (m Model) Err() error { return m.err }

func (m Model) Selected() motion.Axis { return m.axis }

func (m Model) View() string {
	if m.quit {
		return "chair released\n"
	}

	var b strings.Builder
	status := "DISCONNECTED"
	if m.link.Connected() {
		status = "CONNECTED"
	}
	dest := m.link.Destination()
	if dest == "" {
		dest = fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	}
	v := m.link.Variant()
	fmt.Fprintf(&b, "chair %s  %s  protocol %s [%s]  sent %d\n\n", status, dest, v, v.Header(), m.feed.Sent())

	state := m.link.Motion()
	for _, a := range motion.Axes {
		cursor := " "
		if a == m.axis {
			cursor = ">"
		}
		fmt.Fprintf(&b, "%s %-6s %7.2f  %s  ±%g\n", cursor, a, state.Get(a), bar(state.Slider(a), 21), state.Limit(a))
	}

	b.WriteString("\n")
	for _, line := range m.feed.Lines() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.err != nil {
		fmt.Fprintf(&b, "error: %v\n", m.err)
	}
	b.WriteString("\n↑/↓ axis  ←/→ adjust  1 forward  2 backward  3 left  4 right  r reset  c connect  p protocol  q quit\n")
	return b.String()
}

// bar renders a slider position in [0, 1] as a fixed-width gauge.
func bar(pos float32, width int) string {
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	idx := int(pos*float32(width-1) + 0.5)
	cells := []rune(strings.Repeat("-", width))
	cells[width/2] = '|'
	cells[idx] = '#'
	return "[" + string(cells) + "]"
}
