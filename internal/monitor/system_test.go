package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSystemCPUTotals(t *testing.T) {
	fp := newFakeProc(t)
	fp.write("stat", "cpu  1000 200 300 4000 100 50 25 0 0 0\ncpu0 500 100 150 2000 50 25 12 0 0 0\nintr 1\n")

	totals, err := NewSystemReader(fp.root).ReadSystemCPUTotals()
	require.NoError(t, err)
	assert.Equal(t, uint64(5675), totals.Total)
	assert.False(t, totals.ObservedAt.IsZero())
}

func TestReadSystemCPUTotalsUnavailable(t *testing.T) {
	fp := newFakeProc(t)
	r := NewSystemReader(fp.root)

	_, err := r.ReadSystemCPUTotals()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSystemUnavailable))

	fp.write("stat", "cpu0 1 2 3\nintr 5\n")
	_, err = r.ReadSystemCPUTotals()
	assert.True(t, IsKind(err, KindSystemUnavailable))

	fp.write("stat", "cpu  x y z\n")
	_, err = r.ReadSystemCPUTotals()
	assert.True(t, IsKind(err, KindSystemUnavailable))
}

func TestReadSystemMemoryTotals(t *testing.T) {
	fp := newFakeProc(t)
	fp.meminfo(16000000, 10000000)

	totals, ok := NewSystemReader(fp.root).ReadSystemMemoryTotals()
	require.True(t, ok)
	assert.Equal(t, SystemMemoryTotals{TotalKB: 16000000, AvailableKB: 10000000}, totals)

	pct, ok := totals.UsagePercent()
	require.True(t, ok)
	assert.Equal(t, 37, pct)
}

func TestReadSystemMemoryTotalsUnavailable(t *testing.T) {
	fp := newFakeProc(t)
	r := NewSystemReader(fp.root)

	_, ok := r.ReadSystemMemoryTotals()
	assert.False(t, ok)

	fp.write("meminfo", "MemTotal:  100 kB\nMemFree:  10 kB\n")
	_, ok = r.ReadSystemMemoryTotals()
	assert.False(t, ok, "MemAvailable missing")
}

func TestUsagePercent(t *testing.T) {
	tests := []struct {
		total, avail uint64
		want         int
		ok           bool
	}{
		{1000, 1000, 0, true},
		{1000, 0, 100, true},
		{3, 1, 66, true},
		{0, 0, 0, false},
		{100, 200, 0, true},
	}
	for _, tt := range tests {
		got, ok := SystemMemoryTotals{TotalKB: tt.total, AvailableKB: tt.avail}.UsagePercent()
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}

func FuzzSumCPULine(f *testing.F) {
	f.Add("cpu  1 2 3 4")
	f.Add("cpu ")
	f.Fuzz(func(t *testing.T, line string) {
		_, _ = sumCPULine(line)
	})
}
