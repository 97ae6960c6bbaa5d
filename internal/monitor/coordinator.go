package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CoordinatorState is the refresh state machine position.
type CoordinatorState int32

const (
	// Idle means no assembly is in flight.
	Idle CoordinatorState = iota
	// Assembling means a pass is running.
	Assembling
)

// String returns the state name.
func (s CoordinatorState) String() string {
	if s == Assembling {
		return "assembling"
	}
	return "idle"
}

// Coordinator runs an assembly pass on every refresh tick. A tick that
// arrives while a pass is still running is dropped, never queued.
type Coordinator struct {
	assemble func(filter string) Snapshot
	interval time.Duration
	sink     func(Snapshot)
	hooks    Hooks

	state   atomic.Int32
	skipped atomic.Uint64
	latest  atomic.Pointer[Snapshot]
	filter  atomic.Pointer[string]

	// mu orders wg.Add in Trigger against the wg.Wait at the end of Run.
	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewCoordinator creates a Coordinator. sink, if non-nil, receives every
// published snapshot from the assembling goroutine.
func NewCoordinator(assemble func(string) Snapshot, interval time.Duration, sink func(Snapshot), hooks Hooks) *Coordinator {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c := &Coordinator{
		assemble: assemble,
		interval: interval,
		sink:     sink,
		hooks:    hooks,
	}
	empty := ""
	c.filter.Store(&empty)
	return c
}

// SetFilter sets the filter text used by subsequent passes.
func (c *Coordinator) SetFilter(text string) {
	c.filter.Store(&text)
}

// Filter returns the current filter text.
func (c *Coordinator) Filter() string {
	return *c.filter.Load()
}

// State returns the current state.
func (c *Coordinator) State() CoordinatorState {
	return CoordinatorState(c.state.Load())
}

// Skipped returns how many ticks were coalesced.
func (c *Coordinator) Skipped() uint64 {
	return c.skipped.Load()
}

// Latest returns the most recently published snapshot.
func (c *Coordinator) Latest() (Snapshot, bool) {
	s := c.latest.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Run publishes one snapshot immediately, then one per tick, until ctx is
// cancelled. It waits for an in-flight pass before returning.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.wg.Wait()
	}()

	c.Trigger()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Trigger()
		}
	}
}

// Trigger starts a pass unless one is already in flight or Run is not
// active. It reports whether a pass was started.
func (c *Coordinator) Trigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false
	}
	if !c.state.CompareAndSwap(int32(Idle), int32(Assembling)) {
		c.skipped.Add(1)
		c.hooks.tickSkipped()
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.state.Store(int32(Idle))

		snap := c.assemble(c.Filter())
		c.latest.Store(&snap)
		if c.sink != nil {
			c.sink(snap)
		}
	}()
	return true
}
