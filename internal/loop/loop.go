// Package loop provides the single-goroutine scheduling domain the dock runs
// on. Presenter calls, config reloads, timers and idle callbacks are all
// dispatched here, one at a time, in the order they were queued.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

// SourceID identifies a scheduled idle or periodic callback. Zero is never
// a valid id.
type SourceID uint64

type source struct {
	fn     func() bool
	stop   chan struct{} // nil for one-shot sources
	queued bool
}

type item struct {
	id SourceID // 0 for Invoke calls, which cannot be cancelled
	fn func()
}

// Loop is a cooperative event loop. All scheduling methods are safe to call
// from any goroutine and never block; callbacks only run inside Run or
// RunPending.
type Loop struct {
	mu      sync.Mutex
	nextID  SourceID
	sources map[SourceID]*source
	queue   []item
	wake    chan struct{}
	closed  bool
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		sources: make(map[SourceID]*source),
		wake:    make(chan struct{}, 1),
	}
}

// Invoke queues fn to run once on the loop.
func (l *Loop) Invoke(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.enqueueLocked(item{fn: fn})
}

// Idle queues fn to run once on the loop and returns a handle that can
// cancel it until it starts.
func (l *Loop) Idle(fn func()) SourceID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}

	id := l.addLocked(&source{fn: func() bool { fn(); return false }})
	l.sources[id].queued = true
	l.enqueueLocked(item{id: id})
	return id
}

// Every runs fn on the loop every interval until fn returns false or the
// source is cancelled. Ticks that arrive while a previous one is still queued
// are dropped.
func (l *Loop) Every(interval time.Duration, fn func() bool) SourceID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}

	src := &source{fn: fn, stop: make(chan struct{})}
	id := l.addLocked(src)
	go l.tick(id, src, interval)
	return id
}

// Cancel removes a pending source. It reports whether the source was still
// scheduled; cancelled sources never run again.
func (l *Loop) Cancel(id SourceID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(id)
}

// Pending reports whether id is still scheduled.
func (l *Loop) Pending(id SourceID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sources[id]
	return ok
}

// Run dispatches callbacks until ctx is done, then cancels every remaining
// source.
func (l *Loop) Run(ctx context.Context) error {
	log := logger.WithComponent("loop")
	log.Debug().Msg("Event loop started")
	defer log.Debug().Msg("Event loop stopped")
	defer l.Close()

	for {
		l.dispatch(l.take())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending dispatches everything queued at the time of the call and
// returns how many callbacks ran. Callbacks queued meanwhile wait for the
// next call.
func (l *Loop) RunPending() int {
	return l.dispatch(l.take())
}

// Close cancels all sources and rejects new ones.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id := range l.sources {
		l.removeLocked(id)
	}
	l.queue = nil
}

func (l *Loop) addLocked(src *source) SourceID {
	l.nextID++
	l.sources[l.nextID] = src
	return l.nextID
}

func (l *Loop) removeLocked(id SourceID) bool {
	src, ok := l.sources[id]
	if !ok {
		return false
	}
	delete(l.sources, id)
	if src.stop != nil {
		close(src.stop)
	}
	return true
}

func (l *Loop) enqueueLocked(it item) {
	l.queue = append(l.queue, it)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) take() []item {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.queue
	l.queue = nil
	return q
}

func (l *Loop) dispatch(items []item) int {
	ran := 0
	for _, it := range items {
		if it.id == 0 {
			it.fn()
			ran++
			continue
		}

		l.mu.Lock()
		src, ok := l.sources[it.id]
		if ok {
			src.queued = false
			if src.stop == nil {
				delete(l.sources, it.id)
			}
		}
		l.mu.Unlock()
		if !ok {
			continue
		}

		keep := src.fn()
		ran++
		if !keep && src.stop != nil {
			l.Cancel(it.id)
		}
	}
	return ran
}

func (l *Loop) tick(id SourceID, src *source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-src.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			if _, ok := l.sources[id]; ok && !src.queued {
				src.queued = true
				l.enqueueLocked(item{id: id})
			}
			l.mu.Unlock()
		}
	}
}
