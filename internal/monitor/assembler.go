package monitor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/CerberusV1/proc-monitor/internal/filter"
)

// SortKey selects the column rows are ordered by.
type SortKey int

// Sort keys. Ties always break by ascending PID.
const (
	SortPID SortKey = iota
	SortName
	SortCPU
	SortMemory
)

var sortKeyNames = [...]string{
	SortPID:    "pid",
	SortName:   "name",
	SortCPU:    "cpu",
	SortMemory: "memory",
}

// String returns the configuration name of the key.
func (k SortKey) String() string {
	if k < 0 || int(k) >= len(sortKeyNames) {
		return "unknown"
	}
	return sortKeyNames[k]
}

// Next cycles to the following key, wrapping around.
func (k SortKey) Next() SortKey {
	return (k + 1) % SortKey(len(sortKeyNames))
}

// ParseSortKey parses a configuration name. The empty string is SortPID.
func ParseSortKey(s string) (SortKey, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return SortPID, nil
	}
	if name == "mem" {
		return SortMemory, nil
	}
	for i, n := range sortKeyNames {
		if n == name {
			return SortKey(i), nil
		}
	}
	return SortPID, fmt.Errorf("unknown sort key %q (want pid, name, cpu or memory)", s)
}

type sortOrder struct {
	key     SortKey
	reverse bool
}

// Assembler joins the process listing, per-process facts and the most recent
// CPU sample into a Snapshot.
type Assembler struct {
	scanner  *Scanner
	facts    *FactReader
	system   *SystemReader
	pageSize int
	inbox    *mailbox
	hooks    Hooks

	// last is the most recently delivered sample; it is kept until a newer
	// one arrives.
	last  atomic.Pointer[CPUSample]
	order atomic.Pointer[sortOrder]
}

// NewAssembler creates an Assembler reading from cfg.Root.
func NewAssembler(cfg Config, accounts AccountResolver, hooks Hooks) *Assembler {
	cfg = cfg.withDefaults()
	a := &Assembler{
		scanner:  NewScanner(cfg.Root, cfg.LegacyPIDMatch),
		facts:    NewFactReader(cfg.Root, cfg.PageSize, accounts),
		system:   NewSystemReader(cfg.Root),
		pageSize: cfg.PageSize,
		inbox:    newMailbox(),
		hooks:    hooks,
	}
	a.order.Store(&sortOrder{key: cfg.SortKey, reverse: cfg.SortReverse})
	return a
}

// Deliver hands a completed sample to the assembler, replacing any sample
// not yet picked up. It never blocks.
func (a *Assembler) Deliver(s CPUSample) {
	if a.inbox.put(s) {
		a.hooks.sampleReplaced()
	}
}

// SetSort changes the row order used by subsequent passes.
func (a *Assembler) SetSort(key SortKey, reverse bool) {
	a.order.Store(&sortOrder{key: key, reverse: reverse})
}

// Sort returns the current row order.
func (a *Assembler) Sort() (SortKey, bool) {
	o := a.order.Load()
	return o.key, o.reverse
}

// currentSample picks up a newly delivered sample if there is one, otherwise
// returns the previous one. It may return nil before the first delivery.
func (a *Assembler) currentSample() *CPUSample {
	if s, ok := a.inbox.take(); ok {
		return a.keepNewest(&s)
	}
	return a.last.Load()
}

// keepNewest stores s as the last sample unless a concurrent pass already
// stored one with a later window end, and returns whichever is kept.
func (a *Assembler) keepNewest(s *CPUSample) *CPUSample {
	for {
		cur := a.last.Load()
		if cur != nil && cur.WindowEnd.After(s.WindowEnd) {
			return cur
		}
		if a.last.CompareAndSwap(cur, s) {
			return s
		}
	}
}

// Assemble performs one pass: list, read, join, filter and order.
func (a *Assembler) Assemble(filterText string) Snapshot {
	began := time.Now()
	snap := Snapshot{Filter: filterText}

	matcher, err := filter.Compile(filterText)
	snap.FilterErr = err

	if mem, memErr := a.system.readMemInfo(); memErr == nil {
		snap.MemoryUsage, snap.MemoryKnown = mem.UsagePercent()
	} else {
		a.hooks.readError(memErr)
	}

	sample := a.currentSample()
	if sample != nil {
		snap.CPUWindowEnd, snap.CPUKnown = sample.WindowEnd, true
	}

	pids, err := a.scanner.List()
	if err != nil {
		a.hooks.readError(err)
	}

	rows := make([]DisplayRow, 0, len(pids))
	dropped := 0
	for _, pid := range pids {
		row, ok := a.buildRow(pid, sample)
		if !ok {
			dropped++
			continue
		}
		if !matcher.Match(filterRow(row)) {
			continue
		}
		rows = append(rows, row)
	}

	order := a.order.Load()
	sortRows(rows, order.key, order.reverse)

	snap.Rows = rows
	snap.Counts = countStates(rows)
	snap.AssembledAt = time.Now()
	a.hooks.assembly(snap.AssembledAt.Sub(began), len(rows), dropped)
	return snap
}

// buildRow reads everything for one PID. ok is false only when the identity
// facts are unavailable; state and memory degrade to NotAvailable.
func (a *Assembler) buildRow(pid int, sample *CPUSample) (DisplayRow, bool) {
	facts, ok := a.facts.ReadFacts(pid)
	if !ok {
		return DisplayRow{}, false
	}

	row := DisplayRow{
		PID:    pid,
		PPID:   facts.PPID,
		Name:   facts.Name,
		Owner:  ownerLabel(facts),
		State:  NotAvailable,
		Memory: NotAvailable,
	}

	if state, ok := a.facts.ReadState(pid); ok {
		row.StateCode = state
		row.State = state.String()
	}
	if mem, ok := a.facts.ReadMemory(pid); ok {
		row.MemoryBytes, row.HasMemory = mem, true
		row.Memory = FormatMemory(mem, a.pageSize)
	}
	row.CPUPercent, row.HasCPU = sample.Lookup(pid)
	row.CPU = FormatCPU(row.CPUPercent, row.HasCPU)
	return row, true
}

// ownerLabel renders the owning account, falling back to the numeric uid.
func ownerLabel(f ProcessFacts) string {
	switch {
	case f.OwnerResolved:
		return f.Owner
	case f.UID >= 0:
		return strconv.Itoa(f.UID)
	default:
		return NotAvailable
	}
}

func filterRow(r DisplayRow) filter.Row {
	return filter.Row{
		PID:    r.PID,
		PPID:   r.PPID,
		Name:   r.Name,
		User:   r.Owner,
		State:  r.State,
		CPU:    r.CPUPercent,
		HasCPU: r.HasCPU,
		Memory: r.MemoryBytes,
	}
}

// sortRows orders rows by key. Rows lacking the key's value sort as lowest.
func sortRows(rows []DisplayRow, key SortKey, reverse bool) {
	cmp := func(a, b DisplayRow) int {
		switch key {
		case SortName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortCPU:
			return compareFloat(cpuKey(a), cpuKey(b))
		case SortMemory:
			return compareUint(a.MemoryBytes, b.MemoryBytes, a.HasMemory, b.HasMemory)
		default:
			return 0
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if reverse {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if key == SortPID && reverse {
			return rows[i].PID > rows[j].PID
		}
		return rows[i].PID < rows[j].PID
	})
}

func cpuKey(r DisplayRow) float64 {
	if !r.HasCPU {
		return -1
	}
	return r.CPUPercent
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint(a, b uint64, hasA, hasB bool) int {
	switch {
	case hasA != hasB:
		if hasA {
			return 1
		}
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func countStates(rows []DisplayRow) StateCounts {
	counts := StateCounts{Total: len(rows)}
	for _, r := range rows {
		switch r.StateCode {
		case StateRunning:
			counts.Running++
		case StateSleeping, StateDiskSleep, StateIdle:
			counts.Sleeping++
		case StateZombie:
			counts.Zombie++
		case StateStopped, StateTracingStop:
			counts.Stopped++
		}
	}
	return counts
}
