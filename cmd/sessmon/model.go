// Package main implements sessmon, a sysop-facing terminal dashboard
// over the live session store. It is an operator tool, not a BBS-facing
// menu: it has no notion of message areas, file libraries, or doors.
package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/width"

	"github.com/stlalpha/impulse7/internal/session"
)

const refreshInterval = 2 * time.Second

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

// row is a point-in-time snapshot of one session, captured outside the
// store's locks so the TUI never holds them across a render.
type row struct {
	id       string
	username string
	age      time.Duration
	idle     time.Duration
}

// Model is the bubbletea model driving the session dashboard.
type Model struct {
	store  *session.Store
	rows   []row
	cursor int
	width  int
	height int
	status string
}

// NewModel returns a Model polling store.
func NewModel(store *session.Store) Model {
	return Model{store: store, width: 80, height: 24}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("session monitor"), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) snapshot() []row {
	now := time.Now()
	sessions := m.store.ListAll()
	rows := make([]row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, row{
			id:       s.ID,
			username: s.Username(),
			age:      s.Age(now),
			idle:     s.IdleFor(now),
		})
	}
	return rows
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		m.rows = m.snapshot()
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "x":
			if m.cursor >= 0 && m.cursor < len(m.rows) {
				victim := m.rows[m.cursor]
				m.store.Remove(victim.id)
				m.status = fmt.Sprintf("terminated session for %s", victim.username)
				m.rows = m.snapshot()
			}
		}
	}
	return m, nil
}

// padTo pads or truncates s to a fixed display width. Usernames may
// contain fullwidth forms (e.g. a handle typed on a CJK IME); folding to
// narrow form first keeps the column width calculation based on rune
// count valid instead of under-counting double-width glyphs.
func padTo(s string, n int) string {
	s = width.Narrow.String(s)
	r := []rune(s)
	for len(r) < n {
		r = append(r, ' ')
	}
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func (m Model) View() string {
	out := headerStyle.Render(padTo("SESSION", 18) + padTo("USER", 16) + padTo("AGE", 10) + padTo("IDLE", 10))
	out += "\n"
	for i, r := range m.rows {
		line := padTo(r.id[:min(8, len(r.id))], 18) + padTo(r.username, 16) +
			padTo(r.age.Round(time.Second).String(), 10) + padTo(r.idle.Round(time.Second).String(), 10)
		if i == m.cursor {
			out += selectedStyle.Render(line)
		} else {
			out += line
		}
		out += "\n"
	}
	if len(m.rows) == 0 {
		out += dimStyle.Render("(no active sessions)") + "\n"
	}
	out += "\n" + dimStyle.Render("up/down select · x terminate · q quit")
	if m.status != "" {
		out += "\n" + m.status
	}
	return out
}
