// Package search implements the application search overlay model: a
// toggleable, filterable list of launchable desktop applications.
package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/bryanchriswhite/hyprdock/internal/desktop"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Source lists the applications that can be searched.
type Source interface {
	Visible(desktops []string) []*desktop.Entry
}

// Result is one matching application.
type Result struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Distance int    `json:"distance"`
}

// State is a snapshot of the overlay.
type State struct {
	Visible bool   `json:"visible"`
	Query   string `json:"query"`
}

// Searcher holds overlay visibility and the current query.
type Searcher struct {
	source   Source
	desktops []string

	mu        sync.Mutex
	visible   bool
	query     string
	listeners []func(State)
}

// New creates a hidden searcher over source.
func New(source Source, desktops []string) *Searcher {
	return &Searcher{source: source, desktops: desktops}
}

// OnChange registers fn to be called after every visibility or query change.
func (s *Searcher) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Toggle flips visibility and returns the new value.
func (s *Searcher) Toggle() bool {
	s.mu.Lock()
	s.visible = !s.visible
	st, listeners := s.stateLocked(), s.listeners
	s.mu.Unlock()

	notify(listeners, st)
	return st.Visible
}

// Hide closes the overlay.
func (s *Searcher) Hide() {
	s.setVisible(false)
}

// Show opens the overlay.
func (s *Searcher) Show() {
	s.setVisible(true)
}

func (s *Searcher) setVisible(v bool) {
	s.mu.Lock()
	if s.visible == v {
		s.mu.Unlock()
		return
	}
	s.visible = v
	st, listeners := s.stateLocked(), s.listeners
	s.mu.Unlock()

	notify(listeners, st)
}

// SetQuery replaces the filter text.
func (s *Searcher) SetQuery(q string) {
	s.mu.Lock()
	if s.query == q {
		s.mu.Unlock()
		return
	}
	s.query = q
	st, listeners := s.stateLocked(), s.listeners
	s.mu.Unlock()

	notify(listeners, st)
}

// State returns the current overlay state.
func (s *Searcher) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Results filters the source by the current query.
func (s *Searcher) Results() []Result {
	return Filter(s.source.Visible(s.desktops), s.State().Query)
}

// Find filters the source by q without touching the overlay state.
func (s *Searcher) Find(q string) []Result {
	return Filter(s.source.Visible(s.desktops), q)
}

// Suggest returns the closest application name for q, or "".
func (s *Searcher) Suggest(q string) string {
	return Suggest(s.source.Visible(s.desktops), q)
}

func (s *Searcher) stateLocked() State {
	return State{Visible: s.visible, Query: s.query}
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}

// Filter keeps entries whose name or id contains query, ignoring ASCII case.
// An empty query keeps everything. Matches are ordered by edit distance
// between the query and the name, then by name.
func Filter(entries []*desktop.Entry, query string) []Result {
	q := strings.ToLower(strings.TrimSpace(query))

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		if q != "" && !strings.Contains(name, q) && !strings.Contains(strings.ToLower(e.ID), q) {
			continue
		}
		r := Result{ID: e.ID, Name: e.Name, Icon: e.Icon}
		if q != "" {
			r.Distance = fuzzy.LevenshteinDistance(q, name)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name)
	})
	return results
}

// Suggest returns the best fuzzy match among entry names, for "did you mean"
// hints when Filter finds nothing.
func Suggest(entries []*desktop.Entry, query string) string {
	if query == "" || len(entries) == 0 {
		return ""
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	ranks := fuzzy.RankFindFold(query, names)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
