package procmon

import (
	"testing"
	"time"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementStarts()
	m.IncrementStops()
	m.IncrementRestarts()
	m.IncrementConfigReloads()
	m.IncrementEngineRebuilds()
	m.IncrementErrors()
	m.IncrementEventsEmitted()
	m.IncrementWindowsSkipped()
	m.IncrementSamplesReplaced()
	m.IncrementTicksCoalesced()
	m.IncrementTicksCoalesced()

	snap := m.Snapshot()
	for name, got := range map[string]int64{
		"Starts":          snap.Starts,
		"Stops":           snap.Stops,
		"Restarts":        snap.Restarts,
		"ConfigReloads":   snap.ConfigReloads,
		"EngineRebuilds":  snap.EngineRebuilds,
		"ErrorsTotal":     snap.ErrorsTotal,
		"EventsEmitted":   snap.EventsEmitted,
		"WindowsSkipped":  snap.WindowsSkipped,
		"SamplesReplaced": snap.SamplesReplaced,
	} {
		if got != 1 {
			t.Errorf("%s = %d, want 1", name, got)
		}
	}
	if snap.TicksCoalesced != 2 {
		t.Errorf("TicksCoalesced = %d, want 2", snap.TicksCoalesced)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	if got := m.Snapshot().AssemblyLatencyAvg; got != 0 {
		t.Errorf("empty AssemblyLatencyAvg = %v, want 0", got)
	}

	m.RecordAssembly(10*time.Millisecond, 50, 2)
	m.RecordAssembly(30*time.Millisecond, 40, 1)
	m.RecordWindow(4 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Assemblies != 2 {
		t.Errorf("Assemblies = %d, want 2", snap.Assemblies)
	}
	if snap.AssemblyLatencyAvg != 20*time.Millisecond {
		t.Errorf("AssemblyLatencyAvg = %v, want 20ms", snap.AssemblyLatencyAvg)
	}
	if snap.RowsDropped != 3 {
		t.Errorf("RowsDropped = %d, want 3", snap.RowsDropped)
	}
	if snap.Rows != 40 {
		t.Errorf("Rows = %d, want the last pass's 40", snap.Rows)
	}
	if snap.Windows != 1 || snap.WindowLatencyAvg != 4*time.Millisecond {
		t.Errorf("Windows = %d avg %v", snap.Windows, snap.WindowLatencyAvg)
	}
}

func TestMetricsRunningAndReset(t *testing.T) {
	m := NewMetrics()
	m.SetRunning(true)
	m.IncrementStarts()
	m.RecordAssembly(time.Millisecond, 1, 0)

	if !m.Snapshot().Running {
		t.Error("Running = false after SetRunning(true)")
	}

	m.Reset()
	if m.Snapshot() != (MetricsSnapshot{}) {
		t.Errorf("Reset left values: %+v", m.Snapshot())
	}
}

func TestAverageMillis(t *testing.T) {
	if got := averageMillis(0, 0); got != 0 {
		t.Errorf("averageMillis(0, 0) = %v", got)
	}
	if got := averageMillis(3_000_000, 2); got != 1.5 {
		t.Errorf("averageMillis = %v, want 1.5", got)
	}
}

func TestRegisterExpvarIdempotent(t *testing.T) {
	m := NewMetrics()
	m.RegisterExpvar()
	m.RegisterExpvar()
}
