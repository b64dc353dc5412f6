package search

import (
	"testing"

	"github.com/bryanchriswhite/hyprdock/internal/desktop"
)

type staticSource []*desktop.Entry

func (s staticSource) Visible([]string) []*desktop.Entry { return s }

var apps = staticSource{
	{ID: "firefox.desktop", Name: "Firefox", Icon: "firefox"},
	{ID: "org.gnome.Nautilus.desktop", Name: "Files"},
	{ID: "kitty.desktop", Name: "kitty"},
	{ID: "firefox-developer-edition.desktop", Name: "Firefox Developer Edition"},
	{ID: "steam.desktop", Name: "Steam"},
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query lists everything by name",
			query: "",
			want: []string{
				"org.gnome.Nautilus.desktop",
				"firefox.desktop",
				"firefox-developer-edition.desktop",
				"kitty.desktop",
				"steam.desktop",
			},
		},
		{
			name:  "case insensitive name match ranked by distance",
			query: "FIREFOX",
			want:  []string{"firefox.desktop", "firefox-developer-edition.desktop"},
		},
		{
			name:  "matches on desktop id",
			query: "nautilus",
			want:  []string{"org.gnome.Nautilus.desktop"},
		},
		{
			name:  "surrounding whitespace ignored",
			query: "  kit ",
			want:  []string{"kitty.desktop"},
		},
		{
			name:  "no match",
			query: "blender",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(apps, tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
				}
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	if got := Suggest(apps, "stm"); got != "Steam" {
		t.Fatalf("Suggest(stm) = %q, want Steam", got)
	}
	if got := Suggest(apps, "zzz"); got != "" {
		t.Fatalf("Suggest(zzz) = %q, want empty", got)
	}
	if got := Suggest(nil, "steam"); got != "" {
		t.Fatalf("Suggest on empty list = %q", got)
	}
}

func TestSearcher_ToggleAndQuery(t *testing.T) {
	s := New(apps, nil)

	var seen []State
	s.OnChange(func(st State) { seen = append(seen, st) })

	if s.State().Visible {
		t.Fatal("searcher starts visible")
	}
	if !s.Toggle() {
		t.Fatal("Toggle did not show the overlay")
	}
	s.SetQuery("steam")
	s.SetQuery("steam")
	if got := ids(s.Results()); len(got) != 1 || got[0] != "steam.desktop" {
		t.Fatalf("Results = %v", got)
	}
	s.Hide()
	s.Hide()
	if s.Toggle() != true {
		t.Fatal("Toggle after Hide did not show")
	}

	want := []State{
		{Visible: true},
		{Visible: true, Query: "steam"},
		{Visible: false, Query: "steam"},
		{Visible: true, Query: "steam"},
	}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %+v, want %+v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestSearcher_FindLeavesStateAlone(t *testing.T) {
	s := New(apps, nil)
	if got := ids(s.Find("kitty")); len(got) != 1 {
		t.Fatalf("Find = %v", got)
	}
	if st := s.State(); st.Query != "" || st.Visible {
		t.Fatalf("Find changed state: %+v", st)
	}
}
