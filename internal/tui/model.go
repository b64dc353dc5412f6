// Package tui renders the dock in a terminal with Bubble Tea.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/search"
)

const (
	runningMark = "●"
	idleMark    = "○"
	maxResults  = 8
)

// Actions are the requests the terminal sends back to the dock. They must
// not block.
type Actions interface {
	ToggleSearch()
	HideSearch()
	SetQuery(q string)
	Refresh()
}

type appsMsg struct {
	gen  uint64
	apps []dock.App
}

type runningMsg struct {
	gen     uint64
	idx     int
	running bool
}

type themeMsg Theme

type searchMsg struct {
	state   search.State
	results []search.Result
}

type statusMsg string

// Model is the root application state for Bubble Tea.
type Model struct {
	actions Actions
	theme   Theme
	styles  Styles
	width   int

	gen     uint64
	apps    []dock.App
	running []bool
	status  string

	search  search.State
	results []search.Result
}

// NewModel creates a model with the default theme.
func NewModel(actions Actions) Model {
	th := DefaultTheme()
	return Model{actions: actions, theme: th, styles: th.Styles()}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case appsMsg:
		m.gen = msg.gen
		m.apps = msg.apps
		m.running = make([]bool, len(msg.apps))
		return m, nil

	case runningMsg:
		if msg.gen == m.gen && msg.idx < len(m.running) {
			m.running[msg.idx] = msg.running
		}
		return m, nil

	case themeMsg:
		m.theme = Theme(msg)
		m.styles = m.theme.Styles()
		return m, nil

	case searchMsg:
		m.search = msg.state
		m.results = msg.results
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Visible {
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.actions.HideSearch()
			return m, nil
		case tea.KeyBackspace:
			if q := []rune(m.search.Query); len(q) > 0 {
				m.actions.SetQuery(string(q[:len(q)-1]))
			}
			return m, nil
		case tea.KeySpace:
			m.actions.SetQuery(m.search.Query + " ")
			return m, nil
		case tea.KeyRunes:
			m.actions.SetQuery(m.search.Query + string(msg.Runes))
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.actions.ToggleSearch()
	case "r":
		m.actions.Refresh()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := m.styles.Title.Render("hyprdock")
	if m.status != "" {
		title += " " + m.styles.Muted.Render(m.status)
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.apps) == 0 {
		b.WriteString(m.styles.Muted.Render("nothing pinned"))
	} else {
		items := make([]string, len(m.apps))
		for i, app := range m.apps {
			mark := m.styles.Idle.Render(idleMark)
			if m.running[i] {
				mark = m.styles.Running.Render(runningMark)
			}
			items[i] = m.styles.Item.Render(mark + " " + app.Name)
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, items...)
		if m.width > 0 {
			row = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, row)
		}
		b.WriteString(row)
	}
	b.WriteString("\n")

	if m.search.Visible {
		b.WriteString("\n")
		b.WriteString(m.renderSearch())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.search.Visible {
		b.WriteString(m.styles.Muted.Render("esc close"))
	} else {
		b.WriteString(m.styles.Muted.Render("/ search  r refresh  q quit"))
	}
	return b.String()
}

func (m Model) renderSearch() string {
	lines := []string{"> " + m.search.Query}
	for i, res := range m.results {
		if i == maxResults {
			lines = append(lines, m.styles.Muted.Render("…"))
			break
		}
		lines = append(lines, m.styles.Match.Render("  "+res.Name))
	}
	if len(m.results) == 0 {
		lines = append(lines, m.styles.Muted.Render("  no matches"))
	}
	return m.styles.Search.Render(strings.Join(lines, "\n"))
}
