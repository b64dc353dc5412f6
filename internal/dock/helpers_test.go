package dock

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/loop"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// countingScheduler records how many periodic sources were armed.
type countingScheduler struct {
	*loop.Loop
	every atomic.Int32
}

func (c *countingScheduler) Every(d time.Duration, fn func() bool) loop.SourceID {
	c.every.Add(1)
	return c.Loop.Every(d, fn)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	calls  atomic.Int32
}

func (f *fakeCounter) set(counts map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = counts
}

func (f *fakeCounter) Counts(context.Context) map[string]int {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}

type fakeIndicator struct {
	visible bool
	sets    int
}

func (f *fakeIndicator) SetVisible(v bool) {
	f.visible = v
	f.sets++
}

type fakePresenter struct {
	builds     [][]App
	indicators []*fakeIndicator
	styles     []string
}

func (f *fakePresenter) Build(apps []App) []Indicator {
	f.builds = append(f.builds, apps)
	f.indicators = make([]*fakeIndicator, len(apps))
	out := make([]Indicator, len(apps))
	for i := range apps {
		f.indicators[i] = &fakeIndicator{}
		out[i] = f.indicators[i]
	}
	return out
}

func (f *fakePresenter) ReloadStyle(path string) {
	f.styles = append(f.styles, path)
}

type fakeConfig struct {
	cfg     *config.Config
	next    *config.Config
	reloads int
	style   string
}

func (f *fakeConfig) Get() *config.Config {
	c := *f.cfg
	return &c
}

func (f *fakeConfig) Reload() error {
	f.reloads++
	if f.next == nil {
		return errors.New("no config on disk")
	}
	f.cfg = f.next
	return nil
}

func (f *fakeConfig) StylePath() string { return f.style }

type fakeCatalog map[string][3]string // id -> name, icon, wm class

func (c fakeCatalog) WMClassHint(id string) (string, bool) {
	v, ok := c[id]
	return v[2], ok
}

func (c fakeCatalog) Describe(id string) (string, string, bool) {
	v, ok := c[id]
	return v[0], v[1], ok
}

// eventServer is a stand-in for the compositor's event socket.
type eventServer struct {
	path     string
	listener net.Listener
	conns    chan net.Conn
}

func newEventServer(t *testing.T) *eventServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".socket2.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &eventServer{path: path, listener: l, conns: make(chan net.Conn, 4)}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			srv.conns <- c
		}
	}()
	t.Cleanup(func() { l.Close() })
	return srv
}

func (s *eventServer) discover() (string, error) { return s.path, nil }

func (s *eventServer) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("worker never connected")
		return nil
	}
}
