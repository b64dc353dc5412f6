package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/search"
)

type recordingSender struct {
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

type fakeActions struct {
	toggles   int
	hides     int
	refreshes int
	queries   []string
}

func (f *fakeActions) ToggleSearch()     { f.toggles++ }
func (f *fakeActions) HideSearch()       { f.hides++ }
func (f *fakeActions) SetQuery(q string) { f.queries = append(f.queries, q) }
func (f *fakeActions) Refresh()          { f.refreshes++ }

// feed replays every recorded message into a fresh model.
func feed(m Model, msgs []tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestPresenter_QueuesUntilAttached(t *testing.T) {
	p := NewPresenter()
	inds := p.Build([]dock.App{{ID: "firefox.desktop", Name: "Firefox"}, {ID: "code.desktop", Name: "Code"}})
	inds[0].SetVisible(true)

	rec := &recordingSender{}
	p.Attach(rec)
	inds[1].SetVisible(false)

	if len(rec.msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(rec.msgs))
	}

	p.Detach()
	inds[1].SetVisible(true)
	if len(rec.msgs) != 3 {
		t.Fatal("message delivered after Detach")
	}
}

func TestModel_RendersRunningMarks(t *testing.T) {
	p := NewPresenter()
	rec := &recordingSender{}
	p.Attach(rec)

	inds := p.Build([]dock.App{{ID: "firefox.desktop", Name: "Firefox"}, {ID: "code.desktop", Name: "Code"}})
	inds[1].SetVisible(true)
	p.StatusChanged(dock.Status{Phase: "connected"})

	view := feed(NewModel(&fakeActions{}), rec.msgs).View()
	for _, want := range []string{"○ Firefox", "● Code", "connected", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_StaleIndicatorIgnored(t *testing.T) {
	p := NewPresenter()
	rec := &recordingSender{}
	p.Attach(rec)

	old := p.Build([]dock.App{{ID: "a.desktop", Name: "Alpha"}})
	p.Build([]dock.App{{ID: "b.desktop", Name: "Beta"}})
	old[0].SetVisible(true)

	view := feed(NewModel(&fakeActions{}), rec.msgs).View()
	if strings.Contains(view, "●") || strings.Contains(view, "Alpha") {
		t.Fatalf("stale build leaked into view:\n%s", view)
	}
}

func TestModel_EmptyDock(t *testing.T) {
	if view := NewModel(&fakeActions{}).View(); !strings.Contains(view, "nothing pinned") {
		t.Fatalf("view = %q", view)
	}
}

func TestModel_Keys(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(actions)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	if actions.toggles != 1 || actions.refreshes != 1 {
		t.Fatalf("toggles = %d, refreshes = %d", actions.toggles, actions.refreshes)
	}

	m = feed(m, []tea.Msg{searchMsg{
		state:   search.State{Visible: true, Query: "fi"},
		results: []search.Result{{ID: "firefox.desktop", Name: "Firefox"}},
	}})

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("r")},
		{Type: tea.KeyBackspace},
		{Type: tea.KeySpace},
		{Type: tea.KeyEsc},
	} {
		next, _ = m.Update(key)
		m = next.(Model)
	}
	want := []string{"fir", "f", "fi "}
	if strings.Join(actions.queries, "|") != strings.Join(want, "|") {
		t.Fatalf("queries = %q, want %q", actions.queries, want)
	}
	if actions.hides != 1 || actions.refreshes != 1 {
		t.Fatalf("hides = %d, refreshes = %d", actions.hides, actions.refreshes)
	}

	view := m.View()
	if !strings.Contains(view, "> fi") || !strings.Contains(view, "Firefox") {
		t.Fatalf("search overlay not rendered:\n%s", view)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("ctrl+c did not quit")
	}
}

func TestParseTheme(t *testing.T) {
	css := []byte(`
@define-color running #00ff00;
@define-color Accent   red ;
@define-color broken;
.dock { color: @text; }
`)
	th := ParseTheme(css)
	def := DefaultTheme()
	if th.Running != "#00ff00" || th.Accent != "red" {
		t.Fatalf("theme = %+v", th)
	}
	if th.Text != def.Text || th.Muted != def.Muted {
		t.Fatalf("unset colors changed: %+v", th)
	}
}

func TestPresenter_ReloadStyle(t *testing.T) {
	p := NewPresenter()
	rec := &recordingSender{}
	p.Attach(rec)

	path := filepath.Join(t.TempDir(), "style.css")
	if err := os.WriteFile(path, []byte("@define-color running #123456;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p.ReloadStyle(path)
	p.ReloadStyle(filepath.Join(t.TempDir(), "missing.css"))

	if len(rec.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(rec.msgs))
	}
	m := feed(NewModel(&fakeActions{}), rec.msgs)
	if m.theme.Running != "#123456" {
		t.Fatalf("running color = %q", m.theme.Running)
	}
}
