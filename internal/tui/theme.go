package tui

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the dock colors. Values are anything lipgloss.Color accepts.
type Theme struct {
	Text    string
	Muted   string
	Accent  string
	Running string
	Border  string
}

// DefaultTheme is used until a style sheet provides colors.
func DefaultTheme() Theme {
	return Theme{
		Text:    "#cdd6f4",
		Muted:   "#6c7086",
		Accent:  "#89b4fa",
		Running: "#a6e3a1",
		Border:  "#45475a",
	}
}

// ParseTheme reads GTK-style "@define-color name value;" lines over the
// defaults. Known names: text, muted, accent, running, border. Other lines
// are ignored.
func ParseTheme(css []byte) Theme {
	th := DefaultTheme()
	fields := map[string]*string{
		"text":    &th.Text,
		"muted":   &th.Muted,
		"accent":  &th.Accent,
		"running": &th.Running,
		"border":  &th.Border,
	}

	sc := bufio.NewScanner(bytes.NewReader(css))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "@define-color")
		if !ok {
			continue
		}
		parts := strings.Fields(strings.TrimSuffix(strings.TrimSpace(rest), ";"))
		if len(parts) != 2 {
			continue
		}
		if dst, ok := fields[strings.ToLower(parts[0])]; ok {
			*dst = parts[1]
		}
	}
	return th
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Item    lipgloss.Style
	Running lipgloss.Style
	Idle    lipgloss.Style
	Muted   lipgloss.Style
	Search  lipgloss.Style
	Match   lipgloss.Style
}

// Styles returns lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),

		Item: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Running)).
			Bold(true),

		Idle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		Search: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		Match: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),
	}
}
