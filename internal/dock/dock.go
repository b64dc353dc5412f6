package dock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/ident"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/watch"
)

// Counter reports running window classes. *hypr.ClassCounter implements it.
type Counter interface {
	Counts(ctx context.Context) map[string]int
}

// Catalog resolves desktop ids. *desktop.Registry implements it.
type Catalog interface {
	ident.HintLookup
	Describe(id string) (name, icon string, ok bool)
}

// ConfigSource supplies the pinned list and sizes. *config.Manager
// implements it.
type ConfigSource interface {
	Get() *config.Config
	Reload() error
	StylePath() string
}

// EntryStatus is the externally visible state of one pinned app.
type EntryStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	MatchKey string `json:"match_key"`
	Running  int    `json:"running"`
}

// Snapshot is the dock state after the latest refresh.
type Snapshot struct {
	Entries   []EntryStatus  `json:"entries"`
	Counts    map[string]int `json:"counts"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Status describes the event connection.
type Status struct {
	Phase      string    `json:"phase"`
	SocketPath string    `json:"socket_path,omitempty"`
	Events     uint64    `json:"events"`
	Polling    bool      `json:"polling"`
	Pinned     int       `json:"pinned"`
	Running    int       `json:"running"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// String renders the status as JSON.
func (s Status) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Options wires a Dock.
type Options struct {
	Config     ConfigSource
	Catalog    Catalog
	Counter    Counter
	Presenter  Presenter
	Scheduler  Scheduler
	Supervisor []SupervisorOption
}

// Dock owns the pinned entries and keeps their indicators in step with the
// compositor. Rebuild, RefreshRunning, ReloadStyle and ReloadConfig must run
// on the scheduler's loop; the rest is safe from any goroutine.
type Dock struct {
	cfg       ConfigSource
	catalog   Catalog
	counter   Counter
	presenter Presenter
	sched     Scheduler

	state      *State
	coalescer  *Coalescer
	supervisor *Supervisor

	apps      []App
	listeners []func(Snapshot)

	snapMu sync.RWMutex
	snap   Snapshot

	watchMu sync.Mutex
	watches []*watch.Subscription
}

// New wires a dock. Nothing runs until Start.
func New(opts Options) *Dock {
	d := &Dock{
		cfg:       opts.Config,
		catalog:   opts.Catalog,
		counter:   opts.Counter,
		presenter: opts.Presenter,
		sched:     opts.Scheduler,
		state:     NewState(),
		snap:      Snapshot{Counts: map[string]int{}},
	}
	d.coalescer = NewCoalescer(d.state, d.sched, d.RefreshRunning)

	supOpts := append([]SupervisorOption{WithPollInterval(d.cfg.Get().PollInterval())}, opts.Supervisor...)
	d.supervisor = NewSupervisor(d.state, d.sched, d.coalescer, supOpts...)
	return d
}

// State exposes the shared live state.
func (d *Dock) State() *State { return d.state }

// Supervisor exposes the event supervisor.
func (d *Dock) Supervisor() *Supervisor { return d.supervisor }

// OnUpdate registers fn to run on the loop after every refresh. Register
// before Start.
func (d *Dock) OnUpdate(fn func(Snapshot)) {
	d.listeners = append(d.listeners, fn)
}

// Start builds the entries on the loop and starts the event supervisor.
func (d *Dock) Start() {
	d.sched.Invoke(d.Rebuild)
	d.supervisor.Start()
}

// RequestRefresh queues a coalesced refresh. Safe from any goroutine.
func (d *Dock) RequestRefresh() {
	d.coalescer.Request()
}

// ReloadConfig re-reads the config file and rebuilds the entries.
func (d *Dock) ReloadConfig() {
	if err := d.cfg.Reload(); err != nil {
		logger.WithComponent("dock").Warn().Err(err).Msg("Config reload failed, rebuilding from previous config")
	}
	d.Rebuild()
}

// Rebuild recreates the entries from the current config, then refreshes the
// running state once.
func (d *Dock) Rebuild() {
	cfg := d.cfg.Get()

	apps := make([]App, 0, len(cfg.PinnedApps))
	for _, id := range cfg.PinnedApps {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		app := App{ID: id, Name: strings.TrimSuffix(id, ident.DesktopSuffix), IconSize: cfg.IconSize}
		if d.catalog != nil {
			if name, icon, ok := d.catalog.Describe(id); ok {
				app.Name, app.Icon = name, icon
			}
		}
		apps = append(apps, app)
	}

	indicators := d.presenter.Build(apps)

	entries := make([]Entry, len(apps))
	for i, app := range apps {
		entries[i] = Entry{
			ID:       app.ID,
			Name:     app.Name,
			MatchKey: ident.Key(d.catalog, app.ID),
		}
		if i < len(indicators) {
			entries[i].Indicator = indicators[i]
		}
	}
	d.state.entries = entries
	d.apps = apps

	logger.WithComponent("dock").Debug().Int("entries", len(entries)).Msg("Dock rebuilt")

	d.RefreshRunning()
}

// RefreshRunning queries running classes and toggles each indicator. It is
// a no-op when nothing is pinned.
func (d *Dock) RefreshRunning() {
	entries := d.state.entries
	if len(entries) == 0 {
		d.publish(Snapshot{Counts: map[string]int{}, UpdatedAt: time.Now()})
		return
	}

	counts := d.counter.Counts(context.Background())

	snap := Snapshot{
		Entries:   make([]EntryStatus, len(entries)),
		Counts:    counts,
		UpdatedAt: time.Now(),
	}
	for i, e := range entries {
		n := counts[e.MatchKey]
		if e.Indicator != nil {
			e.Indicator.SetVisible(n > 0)
		}
		snap.Entries[i] = EntryStatus{
			ID:       e.ID,
			Name:     e.Name,
			Icon:     d.apps[i].Icon,
			MatchKey: e.MatchKey,
			Running:  n,
		}
	}
	d.publish(snap)
}

func (d *Dock) publish(snap Snapshot) {
	d.snapMu.Lock()
	d.snap = snap
	d.snapMu.Unlock()

	for _, fn := range d.listeners {
		fn(snap)
	}
}

// ReloadStyle passes the current style sheet path to the presenter.
func (d *Dock) ReloadStyle() {
	d.presenter.ReloadStyle(d.cfg.StylePath())
}

// Snapshot returns the state after the latest refresh.
func (d *Dock) Snapshot() Snapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.snap
}

// Status describes the event connection and the latest refresh.
func (d *Dock) Status() Status {
	snap := d.Snapshot()
	running := 0
	for _, e := range snap.Entries {
		if e.Running > 0 {
			running++
		}
	}
	return Status{
		Phase:      d.supervisor.Phase().String(),
		SocketPath: d.supervisor.SocketPath(),
		Events:     d.supervisor.Events(),
		Polling:    d.state.Polling(),
		Pinned:     len(snap.Entries),
		Running:    running,
		UpdatedAt:  snap.UpdatedAt,
	}
}

// Watch subscribes to the config file and style sheet. Config changes
// rebuild the dock; style changes reload the style sheet. A file whose
// directory does not exist is skipped with a warning.
func (d *Dock) Watch(configPath, stylePath string, opts ...watch.Option) {
	log := logger.WithComponent("dock")

	subscribe := func(path string, fn func(watch.Event)) {
		if path == "" {
			return
		}
		sub, err := watch.File(path, d.sched, fn, opts...)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot watch file")
			return
		}
		d.watchMu.Lock()
		d.watches = append(d.watches, sub)
		d.watchMu.Unlock()
	}

	subscribe(configPath, func(watch.Event) { d.ReloadConfig() })
	subscribe(stylePath, func(watch.Event) { d.ReloadStyle() })
}

// Close stops the supervisor, cancels file watches and drops the entries.
// The loop must not be blocked on the caller.
func (d *Dock) Close() {
	d.supervisor.Stop()

	d.watchMu.Lock()
	watches := d.watches
	d.watches = nil
	d.watchMu.Unlock()
	for _, sub := range watches {
		sub.Cancel()
	}

	d.sched.Invoke(func() {
		d.state.entries = nil
		d.apps = nil
	})
}
