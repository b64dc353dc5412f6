package commands

import (
	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/desktop"
	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/bryanchriswhite/hyprdock/internal/icon"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/loop"
	"github.com/bryanchriswhite/hyprdock/internal/search"
	"github.com/spf13/viper"
)

// engine holds the pieces shared by every command that runs a dock.
type engine struct {
	config   *config.Manager
	loop     *loop.Loop
	registry *desktop.Registry
	searcher *search.Searcher
	icons    *icon.Theme
	dock     *dock.Dock
}

func newEngine(configMgr *config.Manager) *engine {
	registry := desktop.NewRegistry()
	registry.Load()

	dataDirs := registry.Dirs()
	return &engine{
		config:   configMgr,
		loop:     loop.New(),
		registry: registry,
		searcher: search.New(registry, desktop.CurrentDesktops()),
		icons:    icon.NewTheme(icon.BaseDirs(dataDirs), icon.PixmapDirs(dataDirs), viper.GetString("icon_theme")),
	}
}

// build creates the dock over presenter. It must run before start.
func (e *engine) build(presenter dock.Presenter) {
	e.dock = dock.New(dock.Options{
		Config:    e.config,
		Catalog:   e.registry,
		Counter:   hypr.NewClassCounter(hypr.ExecRunner{}),
		Presenter: presenter,
		Scheduler: e.loop,
	})
}

// start loads the style sheet, builds the entries, connects to the
// compositor and watches the config and style files.
func (e *engine) start() {
	e.loop.Invoke(e.dock.ReloadStyle)
	e.dock.Start()
	e.dock.Watch(e.config.GetConfigPath(), e.config.StylePath())

	cfg := e.config.Get()
	logger.WithComponent("main").Info().
		Int("pinned", len(cfg.PinnedApps)).
		Int("desktop_entries", e.registry.Len()).
		Str("config", e.config.GetConfigPath()).
		Msg("Dock started")
}

func (e *engine) actions() *dockActions {
	return &dockActions{loop: e.loop, dock: e.dock, searcher: e.searcher}
}

// dockActions turns control requests into work on the event loop. It
// serves the D-Bus service, SIGUSR1 and the terminal key bindings.
type dockActions struct {
	loop     *loop.Loop
	dock     *dock.Dock
	searcher *search.Searcher
}

func (a *dockActions) ToggleSearch() {
	a.loop.Invoke(func() { a.searcher.Toggle() })
}

func (a *dockActions) HideSearch() {
	a.loop.Invoke(a.searcher.Hide)
}

func (a *dockActions) SetQuery(q string) {
	a.loop.Invoke(func() { a.searcher.SetQuery(q) })
}

func (a *dockActions) Refresh() {
	a.dock.RequestRefresh()
}

func (a *dockActions) Status() dock.Status {
	return a.dock.Status()
}
