package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// benchProcs is roughly the process count of a busy desktop.
const benchProcs = 400

func writeBenchTree(b *testing.B) string {
	b.Helper()
	root := b.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	write("stat", "cpu  10132153 290696 3084719 46828483 16683 0 25195 0 0 0\n")
	write("meminfo", "MemTotal:       16318872 kB\nMemFree:         2137564 kB\nMemAvailable:    9412296 kB\n")
	for pid := 1; pid <= benchProcs; pid++ {
		name := fmt.Sprintf("proc-%d", pid)
		dir := fmt.Sprint(pid)
		write(filepath.Join(dir, "status"), fmt.Sprintf(
			"Name:\t%s\nUmask:\t0022\nState:\tS (sleeping)\nTgid:\t%d\nPid:\t%d\nPPid:\t1\nUid:\t1000\t1000\t1000\t1000\n",
			name, pid, pid))
		write(filepath.Join(dir, "stat"), statLine(pid, name, "S", 1, uint64(pid)*10, uint64(pid)))
		write(filepath.Join(dir, "statm"), "5000 2500 100 10 0 50 0\n")
	}
	return root
}

// BenchmarkAssemble benchmarks one full assembly pass over a procfs tree.
func BenchmarkAssemble(b *testing.B) {
	root := writeBenchTree(b)
	a := NewAssembler(Config{Root: root, PageSize: testPageSize}, StaticAccounts{1000: "user"}, Hooks{})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		snap := a.Assemble("")
		if len(snap.Rows) != benchProcs {
			b.Fatalf("rows = %d, want %d", len(snap.Rows), benchProcs)
		}
	}
}

// BenchmarkAssembleFiltered benchmarks assembly with an expression filter.
func BenchmarkAssembleFiltered(b *testing.B) {
	root := writeBenchTree(b)
	a := NewAssembler(Config{Root: root, PageSize: testPageSize, SortKey: SortName}, StaticAccounts{1000: "user"}, Hooks{})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		a.Assemble(`expr: pid > 200 && user == "user"`)
	}
}

// BenchmarkParseStatus benchmarks the status record scan.
func BenchmarkParseStatus(b *testing.B) {
	content := []byte("Name:\tsshd\nUmask:\t0022\nState:\tS (sleeping)\nTgid:\t812\nNgid:\t0\n" +
		"Pid:\t812\nPPid:\t1\nTracerPid:\t0\nUid:\t0\t0\t0\t0\nGid:\t0\t0\t0\t0\nFDSize:\t64\n" +
		"VmPeak:\t   15432 kB\nVmSize:\t   15432 kB\nVmRSS:\t    7840 kB\nThreads:\t1\n")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parseStatus(content); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkComputeUtilization benchmarks the per-window CPU calculation.
func BenchmarkComputeUtilization(b *testing.B) {
	now := time.Now()
	start := frame{system: SystemCPUTotals{Total: 1_000_000, ObservedAt: now}, ticks: make(map[int]CPUTicks, benchProcs)}
	end := frame{system: SystemCPUTotals{Total: 1_000_800, ObservedAt: now.Add(time.Second)}, ticks: make(map[int]CPUTicks, benchProcs)}
	for pid := 1; pid <= benchProcs; pid++ {
		start.ticks[pid] = CPUTicks{User: uint64(pid)}
		end.ticks[pid] = CPUTicks{User: uint64(pid) + 2}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		computeUtilization(start, end)
	}
}
