// Package dock is the live-state synchronization engine: it keeps the pinned
// entries' running indicators in step with the compositor, driven by the
// event socket when available and by polling otherwise.
package dock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/bryanchriswhite/hyprdock/internal/loop"
)

// Scheduler is the event-loop surface the engine schedules work on.
// *loop.Loop implements it.
type Scheduler interface {
	Invoke(fn func())
	Idle(fn func()) loop.SourceID
	Every(interval time.Duration, fn func() bool) loop.SourceID
	Cancel(id loop.SourceID) bool
}

// Entry is one pinned application.
type Entry struct {
	ID        string
	Name      string
	MatchKey  string
	Indicator Indicator
}

// State is the single record shared by the event loop and the event worker.
//
// entries is only touched on the loop. The two flags and the published
// connection are read and written from both goroutines. mu guards the
// scheduled source handles.
type State struct {
	entries []Entry

	refreshPending atomic.Bool
	stopRequested  atomic.Bool
	conn           atomic.Pointer[hypr.EventConn]

	mu     sync.Mutex
	pollID loop.SourceID
	idleID loop.SourceID
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// RefreshPending reports whether a coalesced refresh is queued.
func (s *State) RefreshPending() bool { return s.refreshPending.Load() }

// StopRequested reports whether shutdown has begun.
func (s *State) StopRequested() bool { return s.stopRequested.Load() }

// Connected reports whether an event connection is currently published.
func (s *State) Connected() bool { return s.conn.Load() != nil }

// Polling reports whether the polling fallback is armed.
func (s *State) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollID != 0
}
