package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Options are optional collaborators for a Monitor.
type Options struct {
	// Accounts resolves owner uids. Nil uses the host account database.
	Accounts AccountResolver
	// Hooks receive engine events.
	Hooks Hooks
	// Sink receives every snapshot the coordinator publishes.
	Sink func(Snapshot)
}

// Monitor owns the sampler and the refresh coordinator and exposes the pull
// and push boundary used by the rendering layer.
type Monitor struct {
	cfg         Config
	assembler   *Assembler
	sampler     *Sampler
	coordinator *Coordinator

	lastWindow atomic.Int64 // unix nanoseconds

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a Monitor. Nothing runs until Start.
func New(cfg Config, opts Options) *Monitor {
	cfg = cfg.withDefaults()
	m := &Monitor{cfg: cfg}

	hooks := opts.Hooks
	onWindow := hooks.OnWindow
	hooks.OnWindow = func(elapsed time.Duration, n int) {
		m.lastWindow.Store(time.Now().UnixNano())
		if onWindow != nil {
			onWindow(elapsed, n)
		}
	}

	accounts := opts.Accounts
	if accounts == nil {
		accounts = NewSystemAccounts()
	}

	m.assembler = NewAssembler(cfg, accounts, hooks)
	m.sampler = NewSampler(cfg, m.SubmitCPUSample, hooks)
	m.coordinator = NewCoordinator(m.assembler.Assemble, cfg.RefreshInterval, opts.Sink, hooks)
	return m
}

// Config returns the configuration the monitor was built with, defaults applied.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start launches the sampler and the coordinator. It returns an error if the
// monitor is already running. Both stop when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		_ = m.sampler.Run(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		_ = m.coordinator.Run(runCtx)
	}()
	return nil
}

// Stop cancels both activities and waits for them to return. An in-flight
// sampling wait is abandoned; an in-flight assembly is allowed to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.cancel = nil
	m.mu.Unlock()
}

// IsRunning reports whether the monitor has been started and not stopped.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetLatestSnapshot assembles a snapshot now with the given filter. It never
// waits on the sampler; CPU values come from the newest delivered window.
func (m *Monitor) GetLatestSnapshot(filter string) Snapshot {
	return m.assembler.Assemble(filter)
}

// SubmitCPUSample delivers a completed window. It never blocks.
func (m *Monitor) SubmitCPUSample(s CPUSample) {
	m.assembler.Deliver(s)
}

// Latest returns the snapshot most recently published by the coordinator.
func (m *Monitor) Latest() (Snapshot, bool) {
	return m.coordinator.Latest()
}

// SetFilter changes the filter used by the coordinator.
func (m *Monitor) SetFilter(text string) {
	m.coordinator.SetFilter(text)
}

// Filter returns the coordinator's filter text.
func (m *Monitor) Filter() string {
	return m.coordinator.Filter()
}

// SetSort changes the row order.
func (m *Monitor) SetSort(key SortKey, reverse bool) {
	m.assembler.SetSort(key, reverse)
}

// Sort returns the row order.
func (m *Monitor) Sort() (SortKey, bool) {
	return m.assembler.Sort()
}

// Refresh asks the coordinator for an immediate pass, subject to the same
// in-flight coalescing as a tick.
func (m *Monitor) Refresh() bool {
	return m.coordinator.Trigger()
}

// SkippedTicks returns how many refresh ticks were coalesced.
func (m *Monitor) SkippedTicks() uint64 {
	return m.coordinator.Skipped()
}

// CoordinatorState returns the refresh state machine position.
func (m *Monitor) CoordinatorState() CoordinatorState {
	return m.coordinator.State()
}

// LastWindowAt returns when the most recent sampling window was published,
// or the zero time if none has been.
func (m *Monitor) LastWindowAt() time.Time {
	ns := m.lastWindow.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
