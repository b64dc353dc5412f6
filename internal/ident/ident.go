// Package ident derives the keys used to match desktop applications against
// compositor window classes.
package ident

import "strings"

// DesktopSuffix is the file suffix of desktop-entry ids.
const DesktopSuffix = ".desktop"

// HintLookup resolves the declared window-class hint (StartupWMClass) of a
// desktop id. ok is false when the id is unknown.
type HintLookup interface {
	WMClassHint(id string) (hint string, ok bool)
}

// Lower lowercases ASCII letters only. Compositor classes are compared
// byte-wise, so non-ASCII bytes are left alone.
func Lower(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			continue
		}
		if b == nil {
			b = []byte(s)
		}
		b[i] = c + ('a' - 'A')
	}
	if b == nil {
		return s
	}
	return string(b)
}

// Key returns the canonical match key for a desktop id. It prefers a
// non-empty StartupWMClass hint, then the id without its .desktop suffix,
// then the id itself. A nil lookup skips the registry.
func Key(lookup HintLookup, id string) string {
	if id == "" {
		return ""
	}

	if lookup != nil {
		if hint, ok := lookup.WMClassHint(id); ok && hint != "" {
			return Lower(hint)
		}
	}

	if stem, ok := strings.CutSuffix(id, DesktopSuffix); ok {
		return Lower(stem)
	}
	return Lower(id)
}
