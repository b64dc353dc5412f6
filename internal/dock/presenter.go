package dock

// App is a pinned application handed to the presenter.
type App struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	IconSize int    `json:"icon_size"`
}

// Indicator is the presenter's "running" mark for one pinned app. The dock
// only toggles it; the presenter owns it.
type Indicator interface {
	SetVisible(visible bool)
}

// Presenter renders the dock. All calls happen on the event loop.
type Presenter interface {
	// Build replaces the rendered entries and returns one indicator per app,
	// in order. A nil indicator is allowed.
	Build(apps []App) []Indicator
	// ReloadStyle re-reads the style sheet at path.
	ReloadStyle(path string)
}

// Presenters fans calls out to several presenters. The indicator returned
// for each app toggles every presenter's indicator for it.
type Presenters []Presenter

// Build implements Presenter.
func (ps Presenters) Build(apps []App) []Indicator {
	out := make([]Indicator, len(apps))
	groups := make([]multiIndicator, len(apps))
	for _, p := range ps {
		inds := p.Build(apps)
		for i := range apps {
			if i < len(inds) && inds[i] != nil {
				groups[i] = append(groups[i], inds[i])
			}
		}
	}
	for i, g := range groups {
		if len(g) > 0 {
			out[i] = g
		}
	}
	return out
}

// ReloadStyle implements Presenter.
func (ps Presenters) ReloadStyle(path string) {
	for _, p := range ps {
		p.ReloadStyle(path)
	}
}

type multiIndicator []Indicator

func (m multiIndicator) SetVisible(v bool) {
	for _, ind := range m {
		ind.SetVisible(v)
	}
}
