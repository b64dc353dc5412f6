// Package watch turns file-system notifications for single files into
// cancelable subscriptions whose callbacks run on the dock's event loop.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultRateLimit is the minimum spacing between deliveries for one file.
const DefaultRateLimit = 200 * time.Millisecond

// Op is the kind of change delivered to subscribers.
type Op int

const (
	// Changed means the file was written in place.
	Changed Op = iota + 1
	// Created means the file appeared, including an editor renaming a
	// temporary file over it.
	Created
)

func (o Op) String() string {
	switch o {
	case Changed:
		return "changed"
	case Created:
		return "created"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Event is a change to a watched file.
type Event struct {
	Path string
	Op   Op
}

// Invoker runs callbacks on the event loop.
type Invoker interface {
	Invoke(fn func())
}

// Option configures a subscription.
type Option func(*Subscription)

// WithRateLimit overrides DefaultRateLimit.
func WithRateLimit(d time.Duration) Option {
	return func(s *Subscription) { s.rateLimit = d }
}

// Subscription delivers events for one file until cancelled.
type Subscription struct {
	path      string
	rateLimit time.Duration
	invoker   Invoker
	fn        func(Event)

	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu        sync.Mutex
	cancelled bool
}

// File watches path. The parent directory is watched so the subscription
// survives the file being replaced or created later; the directory itself
// must exist. Bursts of changes within the rate limit are folded into one
// delivery carrying the last operation.
func File(path string, inv Invoker, fn func(Event), opts ...Option) (*Subscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s := &Subscription{
		path:      abs,
		rateLimit: DefaultRateLimit,
		invoker:   inv,
		fn:        fn,
		watcher:   w,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()

	logger.WithComponent("watch").Debug().Str("path", abs).Msg("Watching file")
	return s, nil
}

// Path returns the absolute path being watched.
func (s *Subscription) Path() string { return s.path }

// Cancel stops the subscription. Events already queued on the loop are
// dropped. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()

		close(s.done)
		<-s.stopped
		s.watcher.Close()
	})
}

func (s *Subscription) run() {
	defer close(s.stopped)
	log := logger.WithComponent("watch")

	var (
		pending *Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			op, handled := s.translate(ev)
			if !handled {
				continue
			}
			pending = &Event{Path: s.path, Op: op}
			if fire == nil {
				timer = time.NewTimer(s.rateLimit)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			if pending != nil {
				s.deliver(*pending)
				pending = nil
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", s.path).Msg("File watch error")
		}
	}
}

func (s *Subscription) translate(ev fsnotify.Event) (Op, bool) {
	if filepath.Clean(ev.Name) != s.path {
		return 0, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return Created, true
	case ev.Has(fsnotify.Write):
		return Changed, true
	default:
		return 0, false
	}
}

func (s *Subscription) deliver(ev Event) {
	s.invoker.Invoke(func() {
		s.mu.Lock()
		cancelled := s.cancelled
		s.mu.Unlock()
		if cancelled {
			return
		}

		logger.WithComponent("watch").Debug().
			Str("path", ev.Path).
			Stringer("op", ev.Op).
			Msg("File changed")
		s.fn(ev)
	})
}
