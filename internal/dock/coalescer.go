package dock

// Coalescer guarantees at most one refresh is queued on the loop no matter
// how many requests arrive before it runs.
type Coalescer struct {
	state   *State
	sched   Scheduler
	refresh func()
}

// NewCoalescer returns a coalescer that runs refresh on sched.
func NewCoalescer(state *State, sched Scheduler, refresh func()) *Coalescer {
	return &Coalescer{state: state, sched: sched, refresh: refresh}
}

// Request queues a refresh unless one is already queued or shutdown has
// begun. Safe to call from any goroutine.
func (c *Coalescer) Request() {
	if c.state.stopRequested.Load() {
		return
	}
	if !c.state.refreshPending.CompareAndSwap(false, true) {
		return
	}

	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	id := c.sched.Idle(c.run)
	if id == 0 {
		// Loop already closed.
		c.state.refreshPending.Store(false)
		return
	}
	c.state.idleID = id
}

// Cancel drops a queued refresh and clears the pending flag.
func (c *Coalescer) Cancel() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	if c.state.idleID != 0 {
		c.sched.Cancel(c.state.idleID)
		c.state.idleID = 0
	}
	c.state.refreshPending.Store(false)
}

func (c *Coalescer) run() {
	c.state.mu.Lock()
	c.state.idleID = 0
	c.state.mu.Unlock()
	c.state.refreshPending.Store(false)

	if c.state.stopRequested.Load() {
		return
	}
	c.refresh()
}
