package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// testPageSize keeps memory expectations independent of the host.
const testPageSize = 4096

// fakeProc builds a procfs tree under a temporary directory.
type fakeProc struct {
	t    *testing.T
	root string
}

func newFakeProc(t *testing.T) *fakeProc {
	t.Helper()
	return &fakeProc{t: t, root: t.TempDir()}
}

func (f *fakeProc) write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("writing %s: %v", path, err)
	}
}

// systemCPU writes the aggregate cpu line with the given total in the user column.
func (f *fakeProc) systemCPU(total uint64) {
	f.write("stat", fmt.Sprintf("cpu  %d 0 0 0 0 0 0 0 0 0\ncpu0 %d 0 0 0 0 0 0 0 0 0\n", total, total))
}

func (f *fakeProc) meminfo(totalKB, availKB uint64) {
	f.write("meminfo", fmt.Sprintf("MemTotal:       %d kB\nMemFree:         1 kB\nMemAvailable:   %d kB\n", totalKB, availKB))
}

// process writes status, stat and statm records for one PID.
func (f *fakeProc) process(pid int, name string, ppid, uid int, state string, utime, stime, pages uint64) {
	dir := fmt.Sprint(pid)
	f.status(pid, name, ppid, uid)
	f.write(filepath.Join(dir, "stat"), statLine(pid, name, state, ppid, utime, stime))
	f.write(filepath.Join(dir, "statm"), fmt.Sprintf("%d %d 100 10 0 50 0\n", pages*2, pages))
}

func (f *fakeProc) status(pid int, name string, ppid, uid int) {
	f.write(filepath.Join(fmt.Sprint(pid), "status"), fmt.Sprintf(
		"Name:\t%s\nUmask:\t0022\nState:\tS (sleeping)\nTgid:\t%d\nPid:\t%d\nPPid:\t%d\nUid:\t%d\t%d\t%d\t%d\n",
		name, pid, pid, ppid, uid, uid, uid, uid))
}

func (f *fakeProc) ticks(pid int, name string, utime, stime uint64) {
	f.write(filepath.Join(fmt.Sprint(pid), "stat"), statLine(pid, name, "S", 1, utime, stime))
}

func (f *fakeProc) remove(pid int) {
	f.t.Helper()
	if err := os.RemoveAll(filepath.Join(f.root, fmt.Sprint(pid))); err != nil {
		f.t.Fatalf("removing pid %d: %v", pid, err)
	}
}

// statLine renders a /proc/[pid]/stat record with utime and stime in fields 14
// and 15.
func statLine(pid int, name, state string, ppid int, utime, stime uint64) string {
	return fmt.Sprintf("%d (%s) %s %d 1 1 0 -1 4194560 100 0 0 0 %d %d 0 0 20 0 1 0 100 1000000 250 18446744073709551615 1 1 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0\n",
		pid, name, state, ppid, utime, stime)
}

func (f *fakeProc) config() Config {
	return Config{Root: f.root, PageSize: testPageSize}
}
