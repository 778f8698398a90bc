// ABOUTME: Bubbletea model for the clock watch TUI
// ABOUTME: Shows the live clock rate and lets the user pick a new one
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

// historySize is how many rate changes the view keeps
const historySize = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// change is one observed rate transition
type change struct {
	at   time.Time
	from int
	to   int
}

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string

	// Clock
	attached bool
	rate     int
	code     string
	rates    []protocol.RateInfo
	cursor   int
	history  []change
	lastErr  string

	control *Control
	now     func() time.Time

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Connected  *bool
	ServerName string
	State      *protocol.ClockState
	Rates      []protocol.RateInfo
	Err        error
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}
	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rates)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.cursor < len(m.rates) {
			m.control.requestSet(m.rates[m.cursor].Rate)
		}
	case "r":
		m.control.requestRefresh()
	}
	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Rates != nil {
		m.rates = msg.Rates
		m.moveCursorTo(m.rate)
	}
	if msg.State != nil {
		m.applyState(*msg.State)
		m.lastErr = ""
	}
	if msg.Err != nil {
		m.lastErr = msg.Err.Error()
	}
}

func (m *Model) applyState(s protocol.ClockState) {
	if m.attached && s.Rate != 0 && m.rate != 0 && s.Rate != m.rate {
		m.history = append(m.history, change{at: m.now(), from: m.rate, to: s.Rate})
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
	}
	m.attached = s.Attached
	m.rate = s.Rate
	m.code = s.Code
	m.moveCursorTo(s.Rate)
}

func (m *Model) moveCursorTo(rate int) {
	for i, r := range m.rates {
		if r.Rate == rate {
			m.cursor = i
			return
		}
	}
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("XclockDAC"))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Daemon: "))
	if m.connected {
		b.WriteString(valueStyle.Render(m.serverName))
	} else {
		b.WriteString(errorStyle.Render("disconnected"))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Clock:  "))
	switch {
	case !m.attached:
		b.WriteString(errorStyle.Render("not attached"))
	case m.rate == 0:
		b.WriteString(errorStyle.Render(fmt.Sprintf("unrecognized code %s", m.code)))
	default:
		b.WriteString(activeStyle.Render(formatRate(m.rate)))
		b.WriteString(valueStyle.Render(" (" + m.code + ")"))
	}
	b.WriteString("\n\n")

	for i, r := range m.rates {
		line := fmt.Sprintf("%-10s %s  %s", formatRate(r.Rate), r.Code, familyName(r.Crystal))
		switch {
		case i == m.cursor:
			b.WriteString(selectedStyle.Render("> " + line))
		case r.Rate == m.rate:
			b.WriteString(activeStyle.Render("* " + line))
		default:
			b.WriteString(valueStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Changes"))
		b.WriteString("\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			c := m.history[i]
			b.WriteString(valueStyle.Render(fmt.Sprintf("  %s  %s -> %s",
				c.at.Format("15:04:05"), formatRate(c.from), formatRate(c.to))))
			b.WriteString("\n")
		}
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Select  enter:Set rate  r:Refresh  q:Quit"))
	return b.String()
}

// formatRate renders 44100 as "44.1 kHz"
func formatRate(hz int) string {
	if hz%1000 == 0 {
		return fmt.Sprintf("%d kHz", hz/1000)
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", float64(hz)/1000), "0"), ".") + " kHz"
}

func familyName(crystal int) string {
	return fmt.Sprintf("%.4f MHz", float64(crystal)/1e6)
}
