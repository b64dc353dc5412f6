package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/icon"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/search"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by /api/health.
const Version = "0.1.0"

// Dock is the part of *dock.Dock the server reads.
type Dock interface {
	Snapshot() dock.Snapshot
	Status() dock.Status
	RequestRefresh()
}

// Config is the part of *config.Manager the server uses.
type Config interface {
	Get() *config.Config
	AddPinnedApp(id string) error
	RemovePinnedApp(id string) (bool, error)
}

// Icons renders icon names. *icon.Theme implements it.
type Icons interface {
	PNG(name string, size int) ([]byte, error)
}

// Options wires a Server. Searcher and Icons are optional.
type Options struct {
	Dock     Dock
	Config   Config
	Searcher *search.Searcher
	Icons    Icons
}

// Server is the HTTP and websocket face of the dock. It is also a
// dock.Presenter: Build records the pinned apps and their indicators.
type Server struct {
	router   *mux.Router
	dock     Dock
	config   Config
	searcher *search.Searcher
	icons    Icons
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	gen     uint64
	apps    []dock.App
	running []bool
	style   []byte

	subMu       sync.Mutex
	subscribers map[chan dock.Snapshot]struct{}

	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		dock:        opts.Dock,
		config:      opts.Config,
		searcher:    opts.Searcher,
		icons:       opts.Icons,
		subscribers: make(map[chan dock.Snapshot]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Dock state
	api.HandleFunc("/dock", s.handleGetDock).Methods("GET")
	api.HandleFunc("/dock/stream", s.handleDockStream)
	api.HandleFunc("/dock/pins", s.handleAddPin).Methods("POST")
	api.HandleFunc("/dock/pins/{id}", s.handleRemovePin).Methods("DELETE")
	api.HandleFunc("/running", s.handleGetRunning).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")

	// Application search
	api.HandleFunc("/apps", s.handleGetApps).Methods("GET")
	api.HandleFunc("/search", s.handleGetSearch).Methods("GET")
	api.HandleFunc("/search", s.handleSetQuery).Methods("POST")
	api.HandleFunc("/search/toggle", s.handleToggleSearch).Methods("POST")

	api.HandleFunc("/icons/{id}", s.handleIcon).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/style.css", s.handleStyle).Methods("GET")
	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Bind sets the dock read by the state routes when it was not known at
// construction. Call it before Start.
func (s *Server) Bind(d Dock) {
	s.dock = d
}

// Handler returns the routed handler with CORS headers applied.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until Shutdown.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.WithComponent("api").Info().Str("addr", "http://"+addr).Msg("Starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes every stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.subMu.Lock()
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
	s.subMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Presenter

type indicator struct {
	s   *Server
	idx int
	gen uint64
}

// SetVisible records the running mark. Indicators from an older Build are
// ignored.
func (i *indicator) SetVisible(v bool) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if i.gen != i.s.gen {
		return
	}
	i.s.running[i.idx] = v
}

// Build implements dock.Presenter.
func (s *Server) Build(apps []dock.App) []dock.Indicator {
	cp := make([]dock.App, len(apps))
	copy(cp, apps)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.apps = cp
	s.running = make([]bool, len(cp))
	s.mu.Unlock()

	out := make([]dock.Indicator, len(cp))
	for i := range cp {
		out[i] = &indicator{s: s, idx: i, gen: gen}
	}
	return out
}

// ReloadStyle implements dock.Presenter. A missing or unreadable sheet
// keeps the previous one.
func (s *Server) ReloadStyle(path string) {
	log := logger.WithComponent("api")
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Style sheet not loaded")
		return
	}

	s.mu.Lock()
	s.style = data
	s.mu.Unlock()
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Style sheet loaded")
}

// Publish pushes snap to every stream. Slow streams skip stale snapshots.
func (s *Server) Publish(snap dock.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Server) subscribe() chan dock.Snapshot {
	ch := make(chan dock.Snapshot, 1)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan dock.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// DockItem is one rendered dock entry.
type DockItem struct {
	dock.App
	Running bool   `json:"running"`
	IconURL string `json:"icon_url"`
}

// Items returns the rendered entries in dock order.
func (s *Server) Items() []DockItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]DockItem, len(s.apps))
	for i, app := range s.apps {
		items[i] = DockItem{
			App:     app,
			Running: s.running[i],
			IconURL: "/api/icons/" + app.ID + "?size=" + strconv.Itoa(app.IconSize),
		}
	}
	return items
}

// HTTP Handlers

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetDock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Items())
}

func (s *Server) handleGetRunning(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dock.Snapshot())
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dock.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.dock.RequestRefresh()
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleAddPin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.config.AddPinnedApp(req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]string{"status": "success"})
}

func (s *Server) handleRemovePin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	removed, err := s.config.RemovePinnedApp(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "not pinned: "+id, http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"status": "success"})
}

func (s *Server) handleDockStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	// Detect the peer going away; the stream itself is write-only.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.dock.Snapshot()); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-gone:
			return
		}
	}
}

func (s *Server) handleGetApps(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeJSON(w, []search.Result{})
		return
	}
	results := s.searcher.Find(r.URL.Query().Get("q"))
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, results)
}

type searchResponse struct {
	search.State
	Results    []search.Result `json:"results"`
	Suggestion string          `json:"suggestion,omitempty"`
}

func (s *Server) searchResponse() searchResponse {
	st := s.searcher.State()
	resp := searchResponse{State: st, Results: s.searcher.Results()}
	if resp.Results == nil {
		resp.Results = []search.Result{}
	}
	if len(resp.Results) == 0 && st.Query != "" {
		resp.Suggestion = s.searcher.Suggest(st.Query)
	}
	return resp
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		http.Error(w, "search disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, s.searchResponse())
}

func (s *Server) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		http.Error(w, "search disabled", http.StatusNotFound)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.searcher.SetQuery(req.Query)
	writeJSON(w, s.searchResponse())
}

func (s *Server) handleToggleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		http.Error(w, "search disabled", http.StatusNotFound)
		return
	}
	s.searcher.Toggle()
	writeJSON(w, s.searcher.State())
}

// handleIcon serves the icon of a pinned app, or of any app the searcher
// knows, as PNG. Apps without a resolvable icon get a lettered placeholder.
func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	if s.icons == nil {
		http.NotFound(w, r)
		return
	}
	id := mux.Vars(r)["id"]

	ref, ok := s.iconFor(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	size := ref.size
	if q := r.URL.Query().Get("size"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > config.MaxIconSize {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size = n
	}

	var data []byte
	var err error
	if ref.name != "" {
		data, err = s.icons.PNG(ref.name, size)
	} else {
		err = icon.ErrNotFound
	}
	if errors.Is(err, icon.ErrNotFound) {
		data, err = icon.PlaceholderPNG(ref.label, size)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=300")
	w.Write(data)
}

type iconRef struct {
	name  string
	label string
	size  int
}

func (s *Server) iconFor(id string) (iconRef, bool) {
	cfg := s.config.Get()

	s.mu.RLock()
	for _, app := range s.apps {
		if app.ID == id {
			s.mu.RUnlock()
			return iconRef{name: app.Icon, label: labelFor(app.Name, id), size: app.IconSize}, true
		}
	}
	s.mu.RUnlock()

	if s.searcher != nil {
		for _, res := range s.searcher.Find(strings.TrimSuffix(id, ".desktop")) {
			if res.ID == id {
				return iconRef{name: res.Icon, label: labelFor(res.Name, id), size: cfg.SearcherIconSize}, true
			}
		}
	}
	return iconRef{}, false
}

func labelFor(name, id string) string {
	if name != "" {
		return name
	}
	return strings.TrimSuffix(id, ".desktop")
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	style := s.style
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/css")
	w.Write(style)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>hyprdock</title>
    <link rel="stylesheet" href="/style.css">
</head>
<body>
    <div id="dock" class="dock"></div>
    <script>
    const dock = document.getElementById("dock");
    async function render() {
        const items = await (await fetch("/api/dock")).json();
        dock.replaceChildren(...items.map(item => {
            const el = document.createElement("div");
            el.className = "dock-item" + (item.running ? " running" : "");
            el.title = item.name;
            const img = document.createElement("img");
            img.src = item.icon_url;
            img.width = img.height = item.icon_size;
            const dot = document.createElement("span");
            dot.className = "indicator";
            el.append(img, dot);
            return el;
        }));
    }
    const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/dock/stream");
    ws.onmessage = render;
    render();
    </script>
</body>
</html>`
