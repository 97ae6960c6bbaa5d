// Package monitor samples per-process and system-wide accounting data from a
// procfs tree and derives CPU and memory utilization for a process table.
//
// The package has two periodic activities. The Sampler measures CPU ticks over
// fixed windows on its own goroutine. The Coordinator assembles display rows on
// a refresh tick. They share nothing except a single-slot hand-off carrying the
// most recent CPUSample.
package monitor

import (
	"strconv"
	"time"
)

// NotAvailable is rendered for any value that could not be read or derived.
const NotAvailable = "N/A"

// ProcessFacts holds identity facts extracted from /proc/<pid>/status.
type ProcessFacts struct {
	// PID is the process identifier the facts were read for.
	PID int
	// Name is the command name from the Name: line.
	Name string
	// PPID is the parent process identifier.
	PPID int
	// UID is the real user id from the first Uid: column, or -1 if unreadable.
	UID int
	// Owner is the account name for UID. Empty when OwnerResolved is false.
	Owner string
	// OwnerResolved reports whether UID mapped to an account.
	OwnerResolved bool
}

// CPUTicks is one reading of a process's accumulated CPU time.
type CPUTicks struct {
	PID        int
	User       uint64
	System     uint64
	ObservedAt time.Time
}

// Total returns user plus system ticks.
func (t CPUTicks) Total() uint64 {
	return t.User + t.System
}

// SystemCPUTotals is the sum of every CPU time category on the aggregate cpu line.
type SystemCPUTotals struct {
	Total      uint64
	ObservedAt time.Time
}

// SystemMemoryTotals holds the system-wide memory summary in kibibytes.
type SystemMemoryTotals struct {
	TotalKB     uint64
	AvailableKB uint64
}

// UsagePercent returns floor(used*100/total). ok is false when total is zero.
func (m SystemMemoryTotals) UsagePercent() (int, bool) {
	if m.TotalKB == 0 {
		return 0, false
	}
	used := safeSubtract(m.TotalKB, m.AvailableKB)
	return int(used * 100 / m.TotalKB), true
}

// CPUSample is the complete set of per-process CPU utilization values for one
// sampling window. A value is only meaningful for the window it was measured in.
type CPUSample struct {
	// Percent maps PID to utilization over the window, as a share of all CPU time.
	Percent map[int]float64
	// WindowStart is when the start frame was captured.
	WindowStart time.Time
	// WindowEnd is when the end frame was captured.
	WindowEnd time.Time
}

// Lookup returns the utilization for pid, if the window measured it.
func (s *CPUSample) Lookup(pid int) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Percent[pid]
	return v, ok
}

// DisplayRow is one process row as seen by the rendering layer.
type DisplayRow struct {
	PID   int
	PPID  int
	Name  string
	Owner string
	State string
	// Memory is the formatted resident memory, or NotAvailable.
	Memory string
	// CPU is the formatted utilization with two decimals, or NotAvailable.
	CPU string

	// Raw values backing the formatted columns, used for sorting and filters.
	StateCode   State
	CPUPercent  float64
	HasCPU      bool
	MemoryBytes uint64
	HasMemory   bool
}

// StateCounts tallies rows by run state.
type StateCounts struct {
	Total    int
	Running  int
	Sleeping int
	Zombie   int
	Stopped  int
}

// Snapshot is one fully assembled, immutable set of display rows.
type Snapshot struct {
	// Rows are ordered by the assembler's sort key.
	Rows []DisplayRow
	// AssembledAt is the wall-clock time the assembly pass finished.
	AssembledAt time.Time
	// MemoryUsage is the system memory-usage percentage; valid when MemoryKnown.
	MemoryUsage int
	MemoryKnown bool
	// CPUWindowEnd is the end of the CPU window used; valid when CPUKnown.
	CPUWindowEnd time.Time
	CPUKnown     bool
	// Counts tallies the rows that passed the filter, by state.
	Counts StateCounts
	// Filter is the filter text the snapshot was assembled with.
	Filter string
	// FilterErr is set when an expression filter failed to compile and
	// substring matching was used instead.
	FilterErr error
}

// Age returns how long ago the snapshot was assembled.
func (s Snapshot) Age() time.Duration {
	if s.AssembledAt.IsZero() {
		return 0
	}
	return time.Since(s.AssembledAt)
}

// MemoryUsageString renders the header memory percentage.
func (s Snapshot) MemoryUsageString() string {
	if !s.MemoryKnown {
		return NotAvailable
	}
	return strconv.Itoa(s.MemoryUsage) + "%"
}

// safeSubtract performs subtraction with underflow protection.
func safeSubtract(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return 0
}
