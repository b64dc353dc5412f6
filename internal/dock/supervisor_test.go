package dock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/bryanchriswhite/hyprdock/internal/loop"
)

type supervisorFixture struct {
	loop      *countingScheduler
	state     *State
	sup       *Supervisor
	refreshes atomic.Int32
}

func newSupervisorFixture(t *testing.T, opts ...SupervisorOption) *supervisorFixture {
	t.Helper()
	f := &supervisorFixture{
		loop:  &countingScheduler{Loop: loop.New()},
		state: NewState(),
	}
	c := NewCoalescer(f.state, f.loop, func() { f.refreshes.Add(1) })
	f.sup = NewSupervisor(f.state, f.loop, c, opts...)
	t.Cleanup(f.sup.Stop)
	return f
}

func missingSocket() (string, error) {
	return "", hypr.ErrSocketNotFound
}

func TestSupervisor_MissingSocketFallsBackToOnePoll(t *testing.T) {
	f := newSupervisorFixture(t, WithDiscover(missingSocket), WithPollInterval(time.Hour))

	f.sup.Start()
	waitFor(t, "polling armed", func() bool {
		f.loop.RunPending()
		return f.state.Polling()
	})
	if p := f.sup.Phase(); p != PollingFallback {
		t.Fatalf("phase = %v, want polling", p)
	}
	if f.state.Connected() {
		t.Fatal("connection published without a socket")
	}

	// A second worker falling back again must not arm another poll.
	waitFor(t, "worker exit", func() bool { return !f.sup.Running() })
	f.sup.Start()
	waitFor(t, "second worker exit", func() bool { return !f.sup.Running() })
	f.loop.RunPending()

	if n := f.loop.every.Load(); n != 1 {
		t.Fatalf("poll sources armed = %d, want 1", n)
	}
}

func TestSupervisor_DialFailureFallsBack(t *testing.T) {
	dialErr := errors.New("connection refused")
	f := newSupervisorFixture(t,
		WithDiscover(func() (string, error) { return "/nonexistent/.socket2.sock", nil }),
		WithDial(func(context.Context, string) (*hypr.EventConn, error) { return nil, dialErr }),
		WithPollInterval(time.Hour),
	)

	f.sup.Start()
	waitFor(t, "polling armed", func() bool {
		f.loop.RunPending()
		return f.state.Polling()
	})
	if got := f.sup.SocketPath(); got != "/nonexistent/.socket2.sock" {
		t.Fatalf("SocketPath = %q", got)
	}
}

func TestSupervisor_TwoLinesInOneReadRefreshOnce(t *testing.T) {
	srv := newEventServer(t)
	f := newSupervisorFixture(t, WithDiscover(srv.discover))

	f.sup.Start()
	peer := srv.accept(t)
	waitFor(t, "connected", func() bool { return f.sup.Phase() == Connected })

	if _, err := peer.Write([]byte("workspace>>2\nactivewindow>>kitty,~\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, "two events", func() bool { return f.sup.Events() == 2 })

	f.loop.RunPending()
	if n := f.refreshes.Load(); n != 1 {
		t.Fatalf("refreshes = %d, want 1", n)
	}
	if f.state.RefreshPending() {
		t.Fatal("pending flag still set")
	}
}

func TestSupervisor_PartialLinesWaitForNewline(t *testing.T) {
	srv := newEventServer(t)
	f := newSupervisorFixture(t, WithDiscover(srv.discover))

	f.sup.Start()
	peer := srv.accept(t)
	waitFor(t, "connected", func() bool { return f.sup.Phase() == Connected })

	if _, err := peer.Write([]byte("openwindow>>abc,1,kit")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := f.sup.Events(); n != 0 {
		t.Fatalf("events = %d before newline, want 0", n)
	}
	if f.state.RefreshPending() {
		t.Fatal("partial line requested a refresh")
	}

	if _, err := peer.Write([]byte("ty,kitty\n")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "one event", func() bool { return f.sup.Events() == 1 })
}

func TestSupervisor_StopUnblocksRead(t *testing.T) {
	srv := newEventServer(t)
	f := newSupervisorFixture(t, WithDiscover(srv.discover))

	f.sup.Start()
	srv.accept(t)
	waitFor(t, "connected", func() bool { return f.state.Connected() })
	time.Sleep(10 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		f.sup.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the worker was blocked in a read")
	}

	if f.sup.Running() {
		t.Fatal("worker still running after Stop")
	}
	if f.state.Connected() {
		t.Fatal("connection still published after Stop")
	}
	if p := f.sup.Phase(); p != Stopped {
		t.Fatalf("phase = %v, want stopped", p)
	}

	// Clean shutdown never arms polling.
	f.loop.RunPending()
	if f.state.Polling() || f.loop.every.Load() != 0 {
		t.Fatal("polling armed after a requested stop")
	}

	second := make(chan struct{})
	go func() {
		f.sup.Stop()
		close(second)
	}()
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second Stop blocked")
	}
}

func TestSupervisor_PeerCloseFallsBack(t *testing.T) {
	srv := newEventServer(t)
	f := newSupervisorFixture(t, WithDiscover(srv.discover), WithPollInterval(time.Hour))

	f.sup.Start()
	peer := srv.accept(t)
	waitFor(t, "connected", func() bool { return f.state.Connected() })
	peer.Close()

	waitFor(t, "polling armed", func() bool {
		f.loop.RunPending()
		return f.state.Polling()
	})
	if f.state.Connected() {
		t.Fatal("connection still published after peer close")
	}
	if p := f.sup.Phase(); p != PollingFallback {
		t.Fatalf("phase = %v, want polling", p)
	}
}

func TestSupervisor_StopBeforeStartAndDoubleStart(t *testing.T) {
	srv := newEventServer(t)
	f := newSupervisorFixture(t, WithDiscover(srv.discover))

	f.sup.Stop()
	if p := f.sup.Phase(); p != Stopped {
		t.Fatalf("phase = %v, want stopped", p)
	}

	f.sup.Start()
	srv.accept(t)
	f.sup.Start()

	select {
	case <-srv.conns:
		t.Fatal("second Start spawned another worker")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSupervisor_PollingRequestsRefreshUntilStop(t *testing.T) {
	f := newSupervisorFixture(t, WithDiscover(missingSocket), WithPollInterval(2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.loop.Run(ctx)

	f.sup.Start()
	waitFor(t, "poll refreshes", func() bool { return f.refreshes.Load() >= 3 })

	f.sup.Stop()
	if f.state.Polling() {
		t.Fatal("poll source still armed after Stop")
	}

	// Let anything already running on the loop finish.
	barrier := make(chan struct{})
	f.loop.Invoke(func() { close(barrier) })
	<-barrier
	settled := f.refreshes.Load()

	time.Sleep(30 * time.Millisecond)
	if n := f.refreshes.Load(); n != settled {
		t.Fatalf("refreshes grew from %d to %d after Stop", settled, n)
	}
}
