package procmon

import (
	"expvar"
	"sync/atomic"
	"time"
)

// Metrics provides application-level metrics collection for proc-monitor.
// It uses Go's expvar package for exposition, which can be accessed via the
// /debug/vars HTTP endpoint when an HTTP server is running.
//
// Thread-safe for concurrent use.
type Metrics struct {
	// Lifecycle counters
	starts        atomic.Int64
	stops         atomic.Int64
	restarts      atomic.Int64
	configReloads atomic.Int64
	rebuilds      atomic.Int64
	errorsTotal   atomic.Int64
	eventsEmitted atomic.Int64

	// Engine counters
	windows         atomic.Int64
	windowsSkipped  atomic.Int64
	samplesReplaced atomic.Int64
	assemblies      atomic.Int64
	ticksCoalesced  atomic.Int64
	rowsDropped     atomic.Int64

	// Latency tracking (stored as nanoseconds)
	assemblyLatencyNs    atomic.Int64
	assemblyLatencyCount atomic.Int64
	windowLatencyNs      atomic.Int64
	windowLatencyCount   atomic.Int64

	// Current state gauges
	currentlyRunning atomic.Int32
	lastRows         atomic.Int64

	// Registration tracking to prevent duplicate expvar registration
	registered atomic.Bool
}

// NewMetrics creates a new Metrics instance.
// Call RegisterExpvar() to expose metrics via the /debug/vars endpoint.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RegisterExpvar registers all metrics with Go's expvar package under the
// procmon_ prefix. expvar names are process-global, so only one Metrics
// value per process should be registered. Safe to call multiple times.
func (m *Metrics) RegisterExpvar() {
	if m.registered.Swap(true) {
		return
	}

	counters := map[string]*atomic.Int64{
		"procmon_starts_total":           &m.starts,
		"procmon_stops_total":            &m.stops,
		"procmon_restarts_total":         &m.restarts,
		"procmon_config_reloads_total":   &m.configReloads,
		"procmon_engine_rebuilds_total":  &m.rebuilds,
		"procmon_errors_total":           &m.errorsTotal,
		"procmon_events_emitted_total":   &m.eventsEmitted,
		"procmon_windows_total":          &m.windows,
		"procmon_windows_skipped_total":  &m.windowsSkipped,
		"procmon_samples_replaced_total": &m.samplesReplaced,
		"procmon_assemblies_total":       &m.assemblies,
		"procmon_ticks_coalesced_total":  &m.ticksCoalesced,
		"procmon_rows_dropped_total":     &m.rowsDropped,
		"procmon_rows":                   &m.lastRows,
	}
	for name, v := range counters {
		expvar.Publish(name, expvar.Func(func() any { return v.Load() }))
	}

	expvar.Publish("procmon_running", expvar.Func(func() any { return m.currentlyRunning.Load() }))
	expvar.Publish("procmon_assembly_latency_avg_ms", expvar.Func(func() any {
		return averageMillis(m.assemblyLatencyNs.Load(), m.assemblyLatencyCount.Load())
	}))
	expvar.Publish("procmon_window_latency_avg_ms", expvar.Func(func() any {
		return averageMillis(m.windowLatencyNs.Load(), m.windowLatencyCount.Load())
	}))
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Starts:          m.starts.Load(),
		Stops:           m.stops.Load(),
		Restarts:        m.restarts.Load(),
		ConfigReloads:   m.configReloads.Load(),
		EngineRebuilds:  m.rebuilds.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		EventsEmitted:   m.eventsEmitted.Load(),
		Windows:         m.windows.Load(),
		WindowsSkipped:  m.windowsSkipped.Load(),
		SamplesReplaced: m.samplesReplaced.Load(),
		Assemblies:      m.assemblies.Load(),
		TicksCoalesced:  m.ticksCoalesced.Load(),
		RowsDropped:     m.rowsDropped.Load(),

		Running: m.currentlyRunning.Load() > 0,
		Rows:    m.lastRows.Load(),

		AssemblyLatencyAvg: safeDivide(m.assemblyLatencyNs.Load(), m.assemblyLatencyCount.Load()),
		WindowLatencyAvg:   safeDivide(m.windowLatencyNs.Load(), m.windowLatencyCount.Load()),
	}
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	// Lifecycle counters
	Starts         int64
	Stops          int64
	Restarts       int64
	ConfigReloads  int64
	EngineRebuilds int64
	ErrorsTotal    int64
	EventsEmitted  int64

	// Engine counters
	Windows         int64
	WindowsSkipped  int64
	SamplesReplaced int64
	Assemblies      int64
	TicksCoalesced  int64
	RowsDropped     int64

	// Gauges
	Running bool
	Rows    int64

	// Latency averages
	AssemblyLatencyAvg time.Duration
	WindowLatencyAvg   time.Duration
}

// IncrementStarts records a start operation.
func (m *Metrics) IncrementStarts() { m.starts.Add(1) }

// IncrementStops records a stop operation.
func (m *Metrics) IncrementStops() { m.stops.Add(1) }

// IncrementRestarts records a restart operation.
func (m *Metrics) IncrementRestarts() { m.restarts.Add(1) }

// IncrementConfigReloads records a configuration reload.
func (m *Metrics) IncrementConfigReloads() { m.configReloads.Add(1) }

// IncrementEngineRebuilds records a reload that replaced the engine.
func (m *Metrics) IncrementEngineRebuilds() { m.rebuilds.Add(1) }

// IncrementErrors records an error occurrence.
func (m *Metrics) IncrementErrors() { m.errorsTotal.Add(1) }

// IncrementEventsEmitted records an event emission.
func (m *Metrics) IncrementEventsEmitted() { m.eventsEmitted.Add(1) }

// IncrementWindowsSkipped records a sampling window that could not be computed.
func (m *Metrics) IncrementWindowsSkipped() { m.windowsSkipped.Add(1) }

// IncrementSamplesReplaced records a sample overwritten before it was consumed.
func (m *Metrics) IncrementSamplesReplaced() { m.samplesReplaced.Add(1) }

// IncrementTicksCoalesced records a refresh tick dropped because an assembly
// was in flight.
func (m *Metrics) IncrementTicksCoalesced() { m.ticksCoalesced.Add(1) }

// RecordWindow records a published sampling window and the time taken to
// compute it.
func (m *Metrics) RecordWindow(d time.Duration) {
	m.windows.Add(1)
	m.windowLatencyNs.Add(d.Nanoseconds())
	m.windowLatencyCount.Add(1)
}

// RecordAssembly records one assembly pass.
func (m *Metrics) RecordAssembly(d time.Duration, rows, dropped int) {
	m.assemblies.Add(1)
	m.rowsDropped.Add(int64(dropped))
	m.lastRows.Store(int64(rows))
	m.assemblyLatencyNs.Add(d.Nanoseconds())
	m.assemblyLatencyCount.Add(1)
}

// SetRunning updates the running state gauge.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.currentlyRunning.Store(1)
	} else {
		m.currentlyRunning.Store(0)
	}
}

// Reset clears all metrics. Useful for testing.
func (m *Metrics) Reset() {
	for _, v := range []*atomic.Int64{
		&m.starts, &m.stops, &m.restarts, &m.configReloads, &m.rebuilds,
		&m.errorsTotal, &m.eventsEmitted, &m.windows, &m.windowsSkipped,
		&m.samplesReplaced, &m.assemblies, &m.ticksCoalesced, &m.rowsDropped,
		&m.assemblyLatencyNs, &m.assemblyLatencyCount, &m.windowLatencyNs,
		&m.windowLatencyCount, &m.lastRows,
	} {
		v.Store(0)
	}
	m.currentlyRunning.Store(0)
}

// safeDivide performs safe division, returning 0 for divide by zero.
func safeDivide(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

func averageMillis(totalNs, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNs) / float64(count) / 1e6
}

// defaultMetrics is a global metrics instance for convenience.
var defaultMetrics = NewMetrics()

// DefaultMetrics returns the global default Metrics instance.
func DefaultMetrics() *Metrics {
	return defaultMetrics
}
