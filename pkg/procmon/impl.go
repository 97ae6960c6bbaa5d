package procmon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CerberusV1/proc-monitor/internal/config"
	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// instance is the private implementation of the Instance interface.
type instance struct {
	// Configuration
	cfg          *config.Config
	opts         Options
	configSource string
	configLoader func() (*config.Config, error)
	watchPath    string

	// Components
	engine  atomic.Pointer[monitor.Monitor]
	metrics *Metrics
	logger  Logger
	sources *sourceTracker
	watcher *configWatcher

	// State
	running   atomic.Bool
	startTime time.Time
	refreshes atomic.Uint64
	lastError atomic.Value // stores error

	// Subscribers
	subMu  sync.RWMutex
	subs   map[uint64]func(Snapshot)
	nextID uint64

	// Handlers
	errorHandler ErrorHandler
	eventHandler EventHandler

	// Synchronization
	mu       sync.RWMutex
	reloadMu sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// Verify interface implementation at compile time.
var _ Instance = (*instance)(nil)

func newInstance(cfg *config.Config, opts Options, source string, loader func() (*config.Config, error)) *instance {
	i := &instance{
		cfg:          cfg,
		opts:         opts,
		configSource: source,
		configLoader: loader,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		sources:      newSourceTracker(),
		subs:         make(map[uint64]func(Snapshot)),
	}
	if i.metrics == nil {
		i.metrics = DefaultMetrics()
	}
	if i.logger == nil {
		i.logger = NopLogger()
	}
	// cfg was validated, so the sort key parses.
	eng, _ := i.buildEngine(cfg)
	i.engine.Store(eng)
	return i
}

// buildEngine creates an engine for cfg with the instance's hooks and sink.
func (i *instance) buildEngine(cfg *config.Config) (*monitor.Monitor, error) {
	mc, err := cfg.Monitor()
	if err != nil {
		return nil, err
	}
	eng := monitor.New(mc, monitor.Options{
		Accounts: i.opts.Accounts,
		Hooks:    i.hooks(),
		Sink:     i.publish,
	})
	eng.SetFilter(cfg.Filter)
	return eng, nil
}

// Start launches the engine.
func (i *instance) Start() error {
	i.mu.Lock()

	if i.running.Load() {
		i.mu.Unlock()
		return fmt.Errorf("proc-monitor instance already running")
	}

	i.ctx, i.cancel = context.WithCancel(context.Background())
	if err := i.engine.Load().Start(i.ctx); err != nil {
		i.cancel()
		i.mu.Unlock()
		return fmt.Errorf("failed to start engine: %w", err)
	}

	if i.opts.WatchConfig && i.watchPath != "" {
		w, err := newConfigWatcher(i.watchPath, i.opts.WatchDebounce, i.ReloadConfig, i.notifyError)
		if err != nil {
			i.logger.Warn("config watch disabled", "path", i.watchPath, "error", err)
		} else {
			i.watcher = w
			w.Start(i.ctx)
		}
	}

	i.running.Store(true)
	i.startTime = time.Now()
	i.refreshes.Store(0)
	i.sources.reset()
	i.metrics.IncrementStarts()
	i.metrics.SetRunning(true)
	cfg := i.cfg
	i.mu.Unlock()

	i.logger.Info("monitor started",
		"root", cfg.Root,
		"sample_interval", cfg.SampleInterval,
		"refresh_interval", cfg.RefreshInterval,
		"config", i.configSource)
	i.emitEvent(EventStarted, "Instance started")
	return nil
}

// Stop gracefully shuts down the instance.
func (i *instance) Stop() error {
	if !i.running.Load() {
		return nil
	}

	i.mu.Lock()
	cancel := i.cancel
	watcher := i.watcher
	i.watcher = nil
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		if watcher != nil {
			watcher.Stop()
		}
		i.engine.Load().Stop()
		close(done)
	}()

	timeout := i.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	select {
	case <-done:
		i.running.Store(false)
		i.metrics.SetRunning(false)
		i.metrics.IncrementStops()
		i.logger.Info("monitor stopped")
		i.emitEvent(EventStopped, "Instance stopped")
		return nil
	case <-time.After(timeout):
		err := fmt.Errorf("shutdown timeout after %v: some goroutines did not stop", timeout)
		i.notifyError(err)
		return err
	}
}

// Restart performs a stop, a reload and a start.
func (i *instance) Restart() error {
	if err := i.Stop(); err != nil {
		wrappedErr := fmt.Errorf("stop failed: %w", err)
		i.notifyError(wrappedErr)
		return wrappedErr
	}

	cfg, err := i.configLoader()
	if err != nil {
		wrappedErr := fmt.Errorf("config reload failed: %w", err)
		i.notifyError(wrappedErr)
		return wrappedErr
	}
	eng, err := i.buildEngine(cfg)
	if err != nil {
		wrappedErr := fmt.Errorf("config reload failed: %w", err)
		i.notifyError(wrappedErr)
		return wrappedErr
	}

	i.mu.Lock()
	i.cfg = cfg
	i.engine.Store(eng)
	i.mu.Unlock()
	i.metrics.IncrementConfigReloads()
	i.emitEvent(EventConfigReloaded, "Configuration reloaded")

	if err := i.Start(); err != nil {
		wrappedErr := fmt.Errorf("start failed: %w", err)
		i.notifyError(wrappedErr)
		return wrappedErr
	}

	i.metrics.IncrementRestarts()
	i.emitEvent(EventRestarted, "Instance restarted")
	return nil
}

// ReloadConfig reloads the configuration in place.
func (i *instance) ReloadConfig() error {
	i.reloadMu.Lock()
	defer i.reloadMu.Unlock()

	newCfg, err := i.configLoader()
	if err != nil {
		wrappedErr := fmt.Errorf("config reload failed: %w", err)
		i.notifyError(wrappedErr)
		return wrappedErr
	}

	i.mu.RLock()
	oldCfg := i.cfg
	i.mu.RUnlock()

	if engineChanged(oldCfg, newCfg) {
		if err := i.rebuildEngine(newCfg); err != nil {
			wrappedErr := fmt.Errorf("config reload failed: %w", err)
			i.notifyError(wrappedErr)
			return wrappedErr
		}
	} else {
		eng := i.engine.Load()
		mc, _ := newCfg.Monitor()
		eng.SetSort(mc.SortKey, mc.SortReverse)
		if newCfg.Filter != oldCfg.Filter {
			eng.SetFilter(newCfg.Filter)
		}
		eng.Refresh()
	}

	i.mu.Lock()
	i.cfg = newCfg
	i.mu.Unlock()

	i.metrics.IncrementConfigReloads()
	i.logger.Info("configuration reloaded", "config", i.configSource)
	i.emitEvent(EventConfigReloaded, "Configuration reloaded in-place")
	return nil
}

// rebuildEngine replaces the engine with one built from cfg, carrying over
// the live filter unless cfg changes it. A running engine is restarted. The
// old engine is stopped without holding mu, since its hooks read state
// guarded by mu.
func (i *instance) rebuildEngine(cfg *config.Config) error {
	eng, err := i.buildEngine(cfg)
	if err != nil {
		return err
	}

	i.mu.RLock()
	ctx := i.ctx
	prev := i.cfg
	i.mu.RUnlock()

	old := i.engine.Load()
	if cfg.Filter == prev.Filter {
		eng.SetFilter(old.Filter())
	}

	if i.running.Load() {
		old.Stop()
		i.sources.reset()
		if err := eng.Start(ctx); err != nil {
			// Fall back to the old engine so the instance keeps running.
			_ = old.Start(ctx)
			return err
		}
	}
	i.engine.Store(eng)

	i.metrics.IncrementEngineRebuilds()
	i.logger.Info("engine rebuilt", "root", cfg.Root)
	i.emitEvent(EventEngineRebuilt, "Engine rebuilt for new settings")
	return nil
}

// engineChanged reports whether moving from prev to next needs a new engine.
func engineChanged(prev, next *config.Config) bool {
	return prev.Root != next.Root ||
		prev.SampleInterval != next.SampleInterval ||
		prev.RefreshInterval != next.RefreshInterval ||
		prev.PageSize != next.PageSize ||
		prev.LegacyPIDMatch != next.LegacyPIDMatch
}

// IsRunning returns true if the instance is currently running.
func (i *instance) IsRunning() bool {
	return i.running.Load()
}

// Snapshot assembles a table now.
func (i *instance) Snapshot(filter string) Snapshot {
	return i.engine.Load().GetLatestSnapshot(filter)
}

// Latest returns the coordinator's most recent publication.
func (i *instance) Latest() (Snapshot, bool) {
	return i.engine.Load().Latest()
}

// Refresh requests an immediate coordinator pass.
func (i *instance) Refresh() bool {
	return i.engine.Load().Refresh()
}

// SetFilter changes the coordinator's filter.
func (i *instance) SetFilter(text string) {
	i.engine.Load().SetFilter(text)
}

// Filter returns the coordinator's filter.
func (i *instance) Filter() string {
	return i.engine.Load().Filter()
}

// SetSort changes the row order.
func (i *instance) SetSort(key SortKey, reverse bool) {
	i.engine.Load().SetSort(key, reverse)
}

// Sort returns the row order.
func (i *instance) Sort() (SortKey, bool) {
	return i.engine.Load().Sort()
}

// Subscribe registers fn for published snapshots.
func (i *instance) Subscribe(fn func(Snapshot)) func() {
	i.subMu.Lock()
	id := i.nextID
	i.nextID++
	i.subs[id] = fn
	i.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.subMu.Lock()
			delete(i.subs, id)
			i.subMu.Unlock()
		})
	}
}

// publish is the engine sink. It fans out to subscribers, recovering from
// subscriber panics so the coordinator keeps running.
func (i *instance) publish(s Snapshot) {
	i.refreshes.Add(1)

	i.subMu.RLock()
	fns := make([]func(Snapshot), 0, len(i.subs))
	for _, fn := range i.subs {
		fns = append(fns, fn)
	}
	i.subMu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					i.notifyError(fmt.Errorf("panic in subscriber: %v", r))
				}
			}()
			fn(s)
		}()
	}
}

// Config returns a copy of the active configuration.
func (i *instance) Config() config.Config {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return *i.cfg
}

// Status returns detailed status information about the instance.
func (i *instance) Status() Status {
	i.mu.RLock()
	startTime := i.startTime
	configSource := i.configSource
	i.mu.RUnlock()

	eng := i.engine.Load()
	st := Status{
		Running:      i.running.Load(),
		StartTime:    startTime,
		Refreshes:    i.refreshes.Load(),
		SkippedTicks: eng.SkippedTicks(),
		LastWindow:   eng.LastWindowAt(),
		LastError:    i.getError(),
		ConfigSource: configSource,
	}
	if snap, ok := eng.Latest(); ok {
		st.Rows = len(snap.Rows)
	}
	return st
}

// SetErrorHandler registers a callback for runtime errors.
func (i *instance) SetErrorHandler(handler ErrorHandler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errorHandler = handler
}

// SetEventHandler registers a callback for lifecycle events.
func (i *instance) SetEventHandler(handler EventHandler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.eventHandler = handler
}

// Metrics returns the metrics collector for this instance.
func (i *instance) Metrics() *Metrics {
	return i.metrics
}

// getError retrieves the last error.
func (i *instance) getError() error {
	if v := i.lastError.Load(); v != nil {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// notifyError stores an error and invokes the error handler if registered.
func (i *instance) notifyError(err error) {
	i.lastError.Store(err)
	i.metrics.IncrementErrors()

	i.mu.RLock()
	handler := i.errorHandler
	i.mu.RUnlock()

	if handler != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					i.logger.Error("error handler panicked", "panic", r, "original_error", err)
				}
			}()
			handler(err)
		}()
	}

	i.emitEvent(EventError, err.Error())
}

// emitEvent sends an event to the event handler if configured.
func (i *instance) emitEvent(eventType EventType, message string) {
	i.metrics.IncrementEventsEmitted()

	i.mu.RLock()
	handler := i.eventHandler
	i.mu.RUnlock()

	if handler == nil {
		return
	}
	event := Event{Type: eventType, Timestamp: time.Now(), Message: message}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("event handler panicked", "panic", r, "event", eventType.String())
			}
		}()
		handler(event)
	}()
}

// Health returns a health check result for the instance.
func (i *instance) Health() HealthCheck {
	now := time.Now()
	components := make(map[string]ComponentHealth)

	running := i.running.Load()
	i.mu.RLock()
	startTime := i.startTime
	interval := i.cfg.SampleInterval
	i.mu.RUnlock()

	var uptime time.Duration
	if running && !startTime.IsZero() {
		uptime = now.Sub(startTime)
	}

	if running {
		components[ComponentInstance] = ComponentHealth{Status: HealthOK, Message: "Instance is running", LastUpdated: now}
	} else {
		components[ComponentInstance] = ComponentHealth{Status: HealthUnhealthy, Message: "Instance is not running", LastUpdated: now}
	}

	lastWindow := i.engine.Load().LastWindowAt()
	components[ComponentSampler] = samplerHealth(running, uptime, lastWindow, interval, now)

	failing := i.sources.failing()
	components[ComponentScanner] = ComponentHealth{Status: HealthOK, Message: "Process directory readable", LastUpdated: now}
	if err, ok := failing[monitor.SourceScanner]; ok {
		components[ComponentScanner] = ComponentHealth{Status: HealthUnhealthy, Message: err.Error(), LastUpdated: now}
	}
	components[ComponentSystem] = ComponentHealth{Status: HealthOK, Message: "System totals readable", LastUpdated: now}
	for _, src := range []string{monitor.SourceCPU, monitor.SourceMemInfo} {
		if err, ok := failing[src]; ok {
			components[ComponentSystem] = ComponentHealth{Status: HealthDegraded, Message: err.Error(), LastUpdated: now}
		}
	}

	lastErr := i.getError()
	if lastErr != nil {
		components[ComponentErrors] = ComponentHealth{Status: HealthDegraded, Message: lastErr.Error(), LastUpdated: now}
	} else {
		components[ComponentErrors] = ComponentHealth{Status: HealthOK, Message: "No recent errors", LastUpdated: now}
	}

	status := worst(components)
	var message string
	switch {
	case !running:
		message = "Instance is not running"
	case status == HealthOK:
		message = "All components healthy"
	default:
		message = "Running with degraded components"
	}

	return HealthCheck{
		Status:     status,
		Timestamp:  now,
		Uptime:     uptime,
		Components: components,
		Message:    message,
	}
}

// samplerHealth is degraded when no window has completed within staleWindows
// sampling intervals, once the instance has been up that long.
func samplerHealth(running bool, uptime time.Duration, lastWindow time.Time, interval time.Duration, now time.Time) ComponentHealth {
	limit := staleWindows * interval
	switch {
	case !running:
		return ComponentHealth{Status: HealthDegraded, Message: "Sampler not active", LastUpdated: lastWindow}
	case lastWindow.IsZero() && uptime <= limit:
		return ComponentHealth{Status: HealthOK, Message: "Waiting for the first window", LastUpdated: lastWindow}
	case lastWindow.IsZero() || now.Sub(lastWindow) > limit:
		return ComponentHealth{Status: HealthDegraded, Message: fmt.Sprintf("No window completed in %v", limit), LastUpdated: lastWindow}
	default:
		return ComponentHealth{Status: HealthOK, Message: "Sampling", LastUpdated: lastWindow}
	}
}

// hooks connects engine events to metrics and logging. Per-row failures are
// counted and logged at debug level. Source failures are logged at warn level
// when a source starts failing and at info level when it recovers.
func (i *instance) hooks() monitor.Hooks {
	return monitor.Hooks{
		OnWindow: func(elapsed time.Duration, processes int) {
			i.metrics.RecordWindow(elapsed)
			if i.sources.recover(monitor.SourceCPU) {
				i.logger.Info("system CPU totals readable again")
			}
		},
		OnWindowSkipped: func(err error) {
			i.metrics.IncrementWindowsSkipped()
			if i.sources.fail(monitor.SourceCPU, err) {
				i.logger.Warn("sampling window skipped", "error", err)
				i.notifyError(err)
			}
		},
		OnSampleReplaced: func() {
			i.metrics.IncrementSamplesReplaced()
		},
		OnAssembly: func(elapsed time.Duration, rows, dropped int) {
			i.metrics.RecordAssembly(elapsed, rows, dropped)
			if dropped > 0 {
				i.logger.Debug("processes vanished during assembly", "dropped", dropped)
			}
			for _, src := range i.sources.endPass() {
				i.logger.Info("source readable again", "source", src)
			}
		},
		OnTickSkipped: func() {
			i.metrics.IncrementTicksCoalesced()
			i.logger.Debug("refresh tick coalesced")
		},
		OnReadError: func(err error) {
			source := "unknown"
			var re *monitor.ReadError
			if errors.As(err, &re) {
				source = re.Source
			}
			if i.sources.failInPass(source, err) {
				i.logger.Warn("read failed", "source", source, "error", err)
				i.notifyError(err)
			}
		},
	}
}
