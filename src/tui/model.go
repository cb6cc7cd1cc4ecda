// Package tui is a terminal watcher for a shared canvas: it shows the
// connection state, the presence roster and the operation log counts, and
// lets the user undo, redo and clear.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/orchestra-mcp/canvas/src/client"
)

// Session is the part of a client.Manager the watcher drives.
type Session interface {
	UserID() string
	Events() <-chan client.Event
	Mirror() *client.Mirror
	Undo() error
	Redo() error
	Clear() error
}

type eventMsg client.Event

type closedMsg struct{}

type actionErrMsg struct {
	action string
	err    error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52B788"))
	rule       = dimStyle.Render(strings.Repeat("─", 40))
)

// Model is the bubbletea model of the watcher.
type Model struct {
	session   Session
	spinner   spinner.Model
	state     client.State
	view      client.View
	lastEvent string
	attempt   int
	delay     time.Duration
	err       error
	closed    bool
}

// New creates a watcher over s.
func New(s Session) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	return Model{
		session: s,
		spinner: sp,
		state:   client.StateConnecting,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent)
}

// waitForEvent is a tea.Cmd that blocks on the next session event.
func (m Model) waitForEvent() tea.Msg {
	ev, ok := <-m.session.Events()
	if !ok {
		return closedMsg{}
	}
	return eventMsg(ev)
}

func action(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionErrMsg{action: name, err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "u":
			return m, action("undo", m.session.Undo)
		case "r":
			return m, action("redo", m.session.Redo)
		case "c":
			return m, action("clear", m.session.Clear)
		}
		return m, nil

	case eventMsg:
		m.state = msg.State
		m.view = m.session.Mirror().Snapshot()
		switch {
		case msg.Message != nil:
			m.lastEvent = describe(msg.Message)
		case msg.State == client.StateReconnecting:
			m.attempt, m.delay = msg.Attempt, msg.Delay
			m.lastEvent = fmt.Sprintf("connection lost: %v", msg.Err)
		case msg.State == client.StateFailed:
			m.err = msg.Err
		default:
			m.lastEvent = msg.State.String()
		}
		if msg.State == client.StateConnected {
			m.attempt = 0
		}
		return m, m.waitForEvent

	case closedMsg:
		m.closed = true
		return m, nil

	case actionErrMsg:
		m.lastEvent = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("canvas watcher"))
	b.WriteString(" ")
	b.WriteString(swatch(m.view.Color))
	b.WriteString(" ")
	b.WriteString(m.session.UserID())
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n\n")

	visible := len(m.view.Visible())
	fmt.Fprintf(&b, "operations  %d visible / %d total\n", visible, len(m.view.Operations))
	fmt.Fprintf(&b, "users       %d online\n", len(m.view.Users))
	for _, u := range m.view.Users {
		marker := " "
		if u.UserID == m.session.UserID() {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s %s\n", swatch(u.Color), u.UserID, marker)
	}
	if m.view.LastError != "" {
		b.WriteString(errorStyle.Render("server: " + m.view.LastError))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.lastEvent != "" {
		b.WriteString(dimStyle.Render("last: " + m.lastEvent))
		b.WriteString("\n")
	}
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("u undo · r redo · c clear · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(fmt.Sprintf("disconnected: %v", m.err))
	case m.closed:
		return dimStyle.Render("session closed")
	}
	switch m.state {
	case client.StateConnected:
		return okStyle.Render("● connected")
	case client.StateReconnecting:
		return fmt.Sprintf("%s reconnecting (attempt %d, waiting %s)", m.spinner.View(), m.attempt, m.delay)
	default:
		return fmt.Sprintf("%s %s", m.spinner.View(), m.state)
	}
}

func swatch(color string) string {
	if color == "" {
		return "○"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}
