package profiling

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Usage is the process's own memory and goroutine use at one moment.
type Usage struct {
	At          time.Time
	HeapAlloc   uint64
	HeapObjects uint64
	Goroutines  int
}

// CurrentUsage reads the runtime statistics.
func CurrentUsage() Usage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Usage{
		At:          time.Now(),
		HeapAlloc:   ms.HeapAlloc,
		HeapObjects: ms.HeapObjects,
		Goroutines:  runtime.NumGoroutine(),
	}
}

// Thresholds decide when growth is reported as a suspected leak.
type Thresholds struct {
	// HeapBytesPerSec is the sustained heap growth rate that is suspect.
	HeapBytesPerSec float64
	// Goroutines is the net goroutine increase that is suspect.
	Goroutines int
}

// DefaultThresholds returns 1 MiB/s of heap growth or 10 new goroutines.
func DefaultThresholds() Thresholds {
	return Thresholds{HeapBytesPerSec: 1 << 20, Goroutines: 10}
}

// Growth compares two Usage readings.
type Growth struct {
	Over            time.Duration
	HeapDelta       int64
	GoroutineDelta  int
	HeapBytesPerSec float64
	Suspect         bool
	Reason          string
}

// Compare returns the growth from first to last. ok is false when last is
// not after first.
func Compare(first, last Usage, th Thresholds) (g Growth, ok bool) {
	over := last.At.Sub(first.At)
	if over <= 0 {
		return Growth{}, false
	}

	g = Growth{
		Over:           over,
		HeapDelta:      int64(last.HeapAlloc) - int64(first.HeapAlloc),
		GoroutineDelta: last.Goroutines - first.Goroutines,
	}
	g.HeapBytesPerSec = float64(g.HeapDelta) / over.Seconds()

	switch {
	case g.HeapBytesPerSec > th.HeapBytesPerSec:
		g.Suspect = true
		g.Reason = fmt.Sprintf("heap growing %.1f KiB/s", g.HeapBytesPerSec/1024)
	case g.GoroutineDelta > th.Goroutines:
		g.Suspect = true
		g.Reason = fmt.Sprintf("%d more goroutines", g.GoroutineDelta)
	}
	return g, true
}

// WatchLeaks reads usage every interval and calls report with the growth
// since the first reading whenever it is suspect. It returns when ctx is done.
func WatchLeaks(ctx context.Context, interval time.Duration, th Thresholds, report func(Growth)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	baseline := CurrentUsage()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if g, ok := Compare(baseline, CurrentUsage(), th); ok && g.Suspect {
				report(g)
			}
		}
	}
}
