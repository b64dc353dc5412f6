package dock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

// Phase is the event supervisor's connection state.
type Phase int32

const (
	Idle Phase = iota
	Connecting
	Connected
	Disconnected
	PollingFallback
	Stopping
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case PollingFallback:
		return "polling"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

const readChunk = 4096

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithDiscover replaces hypr.FindEventSocket.
func WithDiscover(fn func() (string, error)) SupervisorOption {
	return func(s *Supervisor) { s.discover = fn }
}

// WithDial replaces hypr.DialEvents.
func WithDial(fn func(ctx context.Context, path string) (*hypr.EventConn, error)) SupervisorOption {
	return func(s *Supervisor) { s.dial = fn }
}

// WithPollInterval sets the polling fallback interval (default 1s).
func WithPollInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Supervisor owns the background worker that reads the compositor event
// socket. Every complete line read requests a coalesced refresh; when the
// socket is missing or drops, refreshes come from a periodic poll instead.
type Supervisor struct {
	state     *State
	sched     Scheduler
	coalescer *Coalescer
	interval  time.Duration
	discover  func() (string, error)
	dial      func(ctx context.Context, path string) (*hypr.EventConn, error)

	phase  atomic.Int32
	events atomic.Uint64
	path   atomic.Pointer[string]

	mu   sync.Mutex // serializes Start and Stop
	done chan struct{}
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(state *State, sched Scheduler, coalescer *Coalescer, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		state:     state,
		sched:     sched,
		coalescer: coalescer,
		interval:  time.Second,
		discover:  hypr.FindEventSocket,
		dial:      hypr.DialEvents,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current phase.
func (s *Supervisor) Phase() Phase { return Phase(s.phase.Load()) }

// Events returns how many event lines have been read since creation.
func (s *Supervisor) Events() uint64 { return s.events.Load() }

// SocketPath returns the last discovered socket path, or "".
func (s *Supervisor) SocketPath() string {
	if p := s.path.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Supervisor) setPhase(p Phase) { s.phase.Store(int32(p)) }

// Running reports whether a worker goroutine is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Start spawns the worker. It is a no-op while a worker is running.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return
		}
	}

	s.state.stopRequested.Store(false)
	s.setPhase(Idle)
	done := make(chan struct{})
	s.done = done
	go s.work(done)
}

// Stop requests shutdown, cancels the poll and any queued refresh, unblocks
// the worker's read and waits for the worker to exit. Safe to call before
// Start, after the worker exited, and more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("hypr-events")

	s.state.stopRequested.Store(true)
	done := s.done
	if done != nil {
		s.setPhase(Stopping)
	}

	s.state.mu.Lock()
	if s.state.pollID != 0 {
		s.sched.Cancel(s.state.pollID)
		s.state.pollID = 0
	}
	s.state.mu.Unlock()
	s.coalescer.Cancel()

	if conn := s.state.conn.Load(); conn != nil {
		if err := conn.Interrupt(); err != nil {
			log.Debug().Err(err).Msg("Interrupting event socket")
		}
	}

	if done != nil {
		<-done
		s.done = nil
		log.Debug().Msg("Event worker joined")
	}
	s.setPhase(Stopped)
}

func (s *Supervisor) work(done chan struct{}) {
	defer close(done)
	log := logger.WithComponent("hypr-events")

	path, err := s.discover()
	if err != nil {
		log.Warn().Err(err).Msg("Event socket unavailable, falling back to polling")
		s.fallback()
		return
	}
	s.path.Store(&path)

	s.setPhase(Connecting)
	conn, err := s.dial(context.Background(), path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Event socket connect failed, falling back to polling")
		s.fallback()
		return
	}

	// Publish before checking the stop flag: Stop sets the flag before
	// loading the connection, so one side always sees the other.
	s.state.conn.Store(conn)
	s.setPhase(Connected)
	log.Info().Str("path", path).Msg("Connected to event socket")

	var readErr error
	if !s.state.stopRequested.Load() {
		readErr = s.readEvents(conn)
	}

	s.state.conn.Store(nil)
	conn.Close()
	s.setPhase(Disconnected)

	if s.state.stopRequested.Load() {
		log.Debug().Msg("Event worker stopping")
		return
	}
	if readErr != nil && !errors.Is(readErr, errPeerClosed) {
		log.Warn().Err(readErr).Msg("Event socket read failed, falling back to polling")
	} else {
		log.Warn().Msg("Event socket closed, falling back to polling")
	}
	s.fallback()
}

var errPeerClosed = errors.New("peer closed")

// readEvents blocks reading newline-delimited events until the connection
// ends. Each complete line requests a refresh.
func (s *Supervisor) readEvents(conn *hypr.EventConn) error {
	log := logger.WithComponent("hypr-events")
	buf := make([]byte, readChunk)
	var acc []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			consumed := 0
			for {
				i := bytes.IndexByte(acc[consumed:], '\n')
				if i < 0 {
					break
				}
				if e := log.Trace(); e.Enabled() {
					e.Bytes("event", acc[consumed:consumed+i]).Msg("Event")
				}
				consumed += i + 1
				s.events.Add(1)
				s.coalescer.Request()
			}
			acc = acc[:copy(acc, acc[consumed:])]
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errPeerClosed
			}
			return err
		}
		if n == 0 {
			return errPeerClosed
		}
		if s.state.stopRequested.Load() {
			return nil
		}
	}
}

// fallback arms the polling fallback on the loop unless shutdown began.
func (s *Supervisor) fallback() {
	if s.state.stopRequested.Load() {
		return
	}
	s.setPhase(PollingFallback)
	s.sched.Invoke(s.ensurePolling)
}

// ensurePolling arms at most one poll source. Runs on the loop.
func (s *Supervisor) ensurePolling() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.stopRequested.Load() || s.state.pollID != 0 {
		return
	}

	s.state.pollID = s.sched.Every(s.interval, func() bool {
		// Stop clears pollID itself.
		if s.state.stopRequested.Load() {
			return false
		}
		s.coalescer.Request()
		return true
	})

	logger.WithComponent("hypr-events").Info().
		Dur("interval", s.interval).
		Msg("Polling for window changes")
}
