package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler(fp *fakeProc, hooks Hooks) *Assembler {
	return NewAssembler(fp.config(), StaticAccounts{0: "root", 1000: "alice"}, hooks)
}

func rowPIDs(rows []DisplayRow) []int {
	pids := make([]int, len(rows))
	for i, r := range rows {
		pids[i] = r.PID
	}
	return pids
}

func TestAssembleJoinsRows(t *testing.T) {
	fp := newFakeProc(t)
	fp.meminfo(1000, 250)
	fp.process(1, "init", 0, 0, "S", 10, 10, 100)
	fp.process(200, "editor", 1, 1000, "R", 10, 10, 300000)

	a := newTestAssembler(fp, Hooks{})
	a.Deliver(CPUSample{Percent: map[int]float64{200: 12.5}, WindowEnd: time.Unix(100, 0)})

	snap := a.Assemble("")
	require.Len(t, snap.Rows, 2)

	assert.Equal(t, DisplayRow{
		PID: 1, PPID: 0, Name: "init", Owner: "root", State: "Sleeping",
		Memory: "400.00 Kb", CPU: NotAvailable,
		StateCode: StateSleeping, MemoryBytes: 100 * testPageSize, HasMemory: true,
	}, snap.Rows[0])

	editor := snap.Rows[1]
	assert.Equal(t, "alice", editor.Owner)
	assert.Equal(t, "Running", editor.State)
	assert.Equal(t, "1171.88 Mb", editor.Memory)
	assert.Equal(t, "12.50", editor.CPU)

	assert.True(t, snap.MemoryKnown)
	assert.Equal(t, 75, snap.MemoryUsage)
	assert.Equal(t, "75%", snap.MemoryUsageString())
	assert.True(t, snap.CPUKnown)
	assert.Equal(t, time.Unix(100, 0), snap.CPUWindowEnd)
	assert.Equal(t, StateCounts{Total: 2, Running: 1, Sleeping: 1}, snap.Counts)
	assert.False(t, snap.AssembledAt.IsZero())
}

func TestAssembleRowRequiresFacts(t *testing.T) {
	fp := newFakeProc(t)
	fp.meminfo(1000, 500)
	fp.process(1, "init", 0, 0, "S", 1, 1, 10)
	// Listed but status vanished.
	fp.write("2/stat", statLine(2, "gone", "S", 1, 1, 1))
	fp.write("2/statm", "10 10 0 0 0 0 0\n")
	// Facts only; state and memory unreadable.
	fp.status(3, "partial", 1, 0)

	var dropped int
	a := newTestAssembler(fp, Hooks{OnAssembly: func(_ time.Duration, _ int, d int) { dropped = d }})
	snap := a.Assemble("")

	assert.Equal(t, []int{1, 3}, rowPIDs(snap.Rows))
	assert.Equal(t, 1, dropped)

	partial := snap.Rows[1]
	assert.Equal(t, NotAvailable, partial.State)
	assert.Equal(t, NotAvailable, partial.Memory)
	assert.Equal(t, NotAvailable, partial.CPU)
}

func TestAssembleUnresolvedOwner(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(5, "svc", 1, 4242, "S", 1, 1, 1)

	snap := newTestAssembler(fp, Hooks{}).Assemble("")
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "4242", snap.Rows[0].Owner)
}

func TestAssembleFilter(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(7, "abcd", 1, 0, "S", 1, 1, 1)
	fp.process(123, "xyz", 1, 0, "S", 1, 1, 1)
	fp.process(456, "bash", 1, 0, "S", 1, 1, 1)
	a := newTestAssembler(fp, Hooks{})

	assert.Equal(t, []int{7}, rowPIDs(a.Assemble("ABC").Rows))
	assert.Equal(t, []int{123}, rowPIDs(a.Assemble("12").Rows))
	assert.Equal(t, []int{7, 123, 456}, rowPIDs(a.Assemble("").Rows))
	assert.Empty(t, a.Assemble("nomatch").Rows)

	snap := a.Assemble(`expr: name == "bash"`)
	require.NoError(t, snap.FilterErr)
	assert.Equal(t, []int{456}, rowPIDs(snap.Rows))

	snap = a.Assemble("expr: ((")
	assert.Error(t, snap.FilterErr)
	assert.Empty(t, snap.Rows)
}

func TestAssembleMemoryUnavailable(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(1, "init", 0, 0, "S", 1, 1, 1)

	var readErrs []error
	a := newTestAssembler(fp, Hooks{OnReadError: func(err error) { readErrs = append(readErrs, err) }})
	snap := a.Assemble("")

	assert.False(t, snap.MemoryKnown)
	assert.Equal(t, NotAvailable, snap.MemoryUsageString())
	assert.Len(t, snap.Rows, 1)
	require.NotEmpty(t, readErrs)
	assert.True(t, IsKind(readErrs[0], KindSystemUnavailable))
}

func TestAssembleDirectoryUnavailable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proc")
	require.NoError(t, os.Mkdir(root, 0o755))
	a := NewAssembler(Config{Root: root, PageSize: testPageSize}, StaticAccounts{}, Hooks{})
	require.NoError(t, os.Remove(root))

	snap := a.Assemble("")
	assert.Empty(t, snap.Rows)
	assert.False(t, snap.AssembledAt.IsZero())
}

func TestAssembleKeepsPreviousSample(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(1, "init", 0, 0, "S", 1, 1, 1)
	a := newTestAssembler(fp, Hooks{})

	assert.Equal(t, NotAvailable, a.Assemble("").Rows[0].CPU, "no sample yet")

	a.Deliver(CPUSample{Percent: map[int]float64{1: 3}})
	assert.Equal(t, "3.00", a.Assemble("").Rows[0].CPU)
	assert.Equal(t, "3.00", a.Assemble("").Rows[0].CPU, "reused without a new delivery")

	a.Deliver(CPUSample{Percent: map[int]float64{1: 4}})
	a.Deliver(CPUSample{Percent: map[int]float64{1: 5}})
	assert.Equal(t, "5.00", a.Assemble("").Rows[0].CPU, "newest delivery wins")
}

func TestAssembleNeverKeepsOlderWindow(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(1, "init", 0, 0, "S", 1, 1, 1)
	a := newTestAssembler(fp, Hooks{})
	base := time.Unix(1000, 0)

	a.Deliver(CPUSample{Percent: map[int]float64{1: 30}, WindowEnd: base.Add(3 * time.Second)})
	snap := a.Assemble("")
	assert.Equal(t, "30.00", snap.Rows[0].CPU)

	// A pass that took an older window loses to the one already stored.
	a.Deliver(CPUSample{Percent: map[int]float64{1: 20}, WindowEnd: base.Add(2 * time.Second)})
	snap = a.Assemble("")
	assert.Equal(t, "30.00", snap.Rows[0].CPU)
	assert.Equal(t, base.Add(3*time.Second), snap.CPUWindowEnd)

	a.Deliver(CPUSample{Percent: map[int]float64{1: 40}, WindowEnd: base.Add(4 * time.Second)})
	assert.Equal(t, "40.00", a.Assemble("").Rows[0].CPU)
}

func TestKeepNewestConcurrent(t *testing.T) {
	a := newTestAssembler(newFakeProc(t), Hooks{})
	base := time.Unix(1000, 0)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.keepNewest(&CPUSample{WindowEnd: base.Add(time.Duration(i) * time.Second)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, base.Add(50*time.Second), a.last.Load().WindowEnd)
}

func TestAssembleSort(t *testing.T) {
	fp := newFakeProc(t)
	fp.process(1, "Zeta", 0, 0, "S", 1, 1, 50)
	fp.process(2, "alpha", 1, 0, "S", 1, 1, 10)
	fp.process(3, "beta", 1, 0, "S", 1, 1, 50)
	fp.process(4, "gamma", 1, 0, "S", 1, 1, 20)
	a := newTestAssembler(fp, Hooks{})
	a.Deliver(CPUSample{Percent: map[int]float64{1: 5, 2: 50, 3: 5}})

	tests := []struct {
		key     SortKey
		reverse bool
		want    []int
	}{
		{SortPID, false, []int{1, 2, 3, 4}},
		{SortPID, true, []int{4, 3, 2, 1}},
		{SortName, false, []int{2, 3, 4, 1}},
		{SortCPU, false, []int{4, 1, 3, 2}},
		{SortCPU, true, []int{2, 1, 3, 4}},
		{SortMemory, false, []int{2, 4, 1, 3}},
		{SortMemory, true, []int{1, 3, 4, 2}},
	}
	for _, tt := range tests {
		a.SetSort(tt.key, tt.reverse)
		assert.Equal(t, tt.want, rowPIDs(a.Assemble("").Rows), "%s reverse=%v", tt.key, tt.reverse)
	}
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{"": SortPID, "PID": SortPID, "name": SortName, "cpu": SortCPU, "mem": SortMemory, "memory": SortMemory} {
		got, err := ParseSortKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSortKey("owner")
	assert.Error(t, err)

	assert.Equal(t, SortName, SortPID.Next())
	assert.Equal(t, SortPID, SortMemory.Next())
}
