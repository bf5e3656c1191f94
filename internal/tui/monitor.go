// Package tui renders a live terminal monitor for the filtering pipeline:
// a scrolling log of verdicts plus running counters.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/earlyspark/scrollguard/internal/pipeline"
)

const maxLogLines = 200

type logLine struct {
	at    time.Time
	event pipeline.Event
}

// Monitor is the bubbletea model for the live pipeline view.
type Monitor struct {
	pipe   *pipeline.Pipeline
	events <-chan pipeline.Event

	lines  []logLine
	stats  pipeline.Stats
	masks  int
	paused bool
	done   bool

	width  int
	height int

	spinner spinner.Model
}

// RunOpts holds all parameters for launching the monitor.
type RunOpts struct {
	Pipeline *pipeline.Pipeline
	Events   <-chan pipeline.Event
}

func NewMonitor(opts RunOpts) *Monitor {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &Monitor{
		pipe:    opts.Pipeline,
		events:  opts.Events,
		spinner: sp,
	}
}

// Run blocks until the user quits or the event stream closes.
func Run(opts RunOpts) error {
	p := tea.NewProgram(NewMonitor(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent(), m.tickStats())
}

// waitForEvent blocks on the pipeline's event stream and re-arms itself
// after every message.
func (m *Monitor) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: e}
	}
}

func (m *Monitor) tickStats() tea.Cmd {
	pipe := m.pipe
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return statsTickMsg{stats: pipe.Snapshot(), masks: pipe.ActiveMasks()}
	})
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
		case "c":
			m.lines = nil
		}
		return m, nil

	case eventMsg:
		if !m.paused {
			m.lines = append(m.lines, logLine{at: time.Now(), event: msg.event})
			if len(m.lines) > maxLogLines {
				m.lines = m.lines[len(m.lines)-maxLogLines:]
			}
		}
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.done = true
		return m, nil

	case statsTickMsg:
		m.stats = msg.stats
		m.masks = msg.masks
		return m, m.tickStats()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := headerStyle.Render("scrollguard") + "  "
	if m.done {
		header += discardHintStyle.Render("session finished, q to quit")
	} else if m.paused {
		header += discardHintStyle.Render("paused")
	} else {
		header += m.spinner.View()
	}

	logHeight := m.height - 4
	if logHeight < 1 {
		logHeight = 1
	}

	start := 0
	if len(m.lines) > logHeight {
		start = len(m.lines) - logHeight
	}
	var body string
	for _, ln := range m.lines[start:] {
		body += m.renderLine(ln) + "\n"
	}

	pane := logPaneStyle.
		Width(m.width - 2).
		Height(logHeight).
		Render(body)

	return header + "\n" + pane + "\n" + m.renderStatusBar()
}

func (m *Monitor) renderLine(ln logLine) string {
	e := ln.event
	stamp := rationaleStyle.Render(ln.at.Format("15:04:05"))

	verdict := passedStyle.Render("pass")
	if e.Masked {
		verdict = maskedStyle.Render("MASK")
	} else if !e.Productive {
		verdict = maskedStyle.Render("flag")
	}

	line := fmt.Sprintf("%s %s %s  %s", stamp, verdict, shortKey(e.ContentKey), rationaleStyle.Render(e.Rationale))
	if e.CacheHit {
		line += discardHintStyle.Render("  (cached)")
	}
	return line
}

func (m *Monitor) renderStatusBar() string {
	s := m.stats
	left := fmt.Sprintf(" %d seen · %d masked · %d cached · %d active", s.ItemsSeen, s.Masked, s.CacheHits, m.masks)
	if s.ExtractErrs > 0 {
		left += fmt.Sprintf(" · %d extract errors", s.ExtractErrs)
	}

	right := " p pause  c clear  q quit "

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	bar := left + fmt.Sprintf("%*s", gap, "") + right
	return statusBarStyle.Width(m.width).Render(bar)
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
