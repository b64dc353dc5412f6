// Package desktop reads XDG desktop entries: the application registry the
// dock resolves names, icons and window-class hints from.
package desktop

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

const mainSection = "Desktop Entry"

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	PreserveSurroundedQuote: true,
	KeyValueDelimiters:      "=",
	AllowNonUniqueSections:  true,
}

// Entry is the subset of a desktop entry the dock needs.
type Entry struct {
	ID             string   `json:"id"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	GenericName    string   `json:"generic_name,omitempty"`
	Icon           string   `json:"icon,omitempty"`
	Exec           string   `json:"exec,omitempty"`
	StartupWMClass string   `json:"startup_wm_class,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Terminal       bool     `json:"terminal"`
	NoDisplay      bool     `json:"no_display"`
	Hidden         bool     `json:"hidden"`
	OnlyShowIn     []string `json:"only_show_in,omitempty"`
	NotShowIn      []string `json:"not_show_in,omitempty"`
}

// ParseEntry parses desktop-entry data. Only the [Desktop Entry] group is
// read; localized keys are ignored.
func ParseEntry(id string, data []byte) (*Entry, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}

	sec, err := f.GetSection(mainSection)
	if err != nil {
		return nil, fmt.Errorf("parse %s: missing [%s] group", id, mainSection)
	}

	e := &Entry{
		ID:             id,
		Type:           sec.Key("Type").String(),
		Name:           sec.Key("Name").String(),
		GenericName:    sec.Key("GenericName").String(),
		Icon:           sec.Key("Icon").String(),
		Exec:           sec.Key("Exec").String(),
		StartupWMClass: strings.TrimSpace(sec.Key("StartupWMClass").String()),
		Keywords:       splitList(sec.Key("Keywords").String()),
		Terminal:       boolKey(sec, "Terminal"),
		NoDisplay:      boolKey(sec, "NoDisplay"),
		Hidden:         boolKey(sec, "Hidden"),
		OnlyShowIn:     splitList(sec.Key("OnlyShowIn").String()),
		NotShowIn:      splitList(sec.Key("NotShowIn").String()),
	}
	if e.Name == "" {
		e.Name = strings.TrimSuffix(id, ".desktop")
	}
	return e, nil
}

// ShouldShow reports whether the entry belongs in application listings for
// the given desktop names (XDG_CURRENT_DESKTOP).
func (e *Entry) ShouldShow(desktops []string) bool {
	if e.Hidden || e.NoDisplay {
		return false
	}
	if e.Type != "" && e.Type != "Application" {
		return false
	}
	if len(e.OnlyShowIn) > 0 && !intersects(e.OnlyShowIn, desktops) {
		return false
	}
	if intersects(e.NotShowIn, desktops) {
		return false
	}
	return true
}

func boolKey(sec *ini.Section, name string) bool {
	return strings.TrimSpace(sec.Key(name).String()) == "true"
}

// splitList splits a semicolon-separated list value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intersects(list, desktops []string) bool {
	for _, d := range desktops {
		if slices.ContainsFunc(list, func(s string) bool { return strings.EqualFold(s, d) }) {
			return true
		}
	}
	return false
}
