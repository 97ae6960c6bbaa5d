package monitor

import (
	"context"
	"time"
)

// frame is one capture of system and per-process CPU counters.
type frame struct {
	system SystemCPUTotals
	ticks  map[int]CPUTicks
}

// Sampler measures per-process CPU utilization over back-to-back windows of a
// fixed length and publishes each completed window through submit.
type Sampler struct {
	scanner  *Scanner
	facts    *FactReader
	system   *SystemReader
	interval time.Duration
	submit   func(CPUSample)
	hooks    Hooks
}

// NewSampler creates a Sampler. submit is called from the sampler goroutine
// once per completed window and must not block.
func NewSampler(cfg Config, submit func(CPUSample), hooks Hooks) *Sampler {
	cfg = cfg.withDefaults()
	return &Sampler{
		scanner:  NewScanner(cfg.Root, cfg.LegacyPIDMatch),
		facts:    NewFactReader(cfg.Root, cfg.PageSize, StaticAccounts(nil)),
		system:   NewSystemReader(cfg.Root),
		interval: cfg.SampleInterval,
		submit:   submit,
		hooks:    hooks,
	}
}

// Run samples until ctx is cancelled. The wait between frames is abandoned
// immediately on cancellation.
func (s *Sampler) Run(ctx context.Context) error {
	start, err := s.capture()
	if err != nil {
		s.hooks.windowSkipped(err)
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		end, endErr := s.capture()
		switch {
		case endErr != nil:
			s.hooks.windowSkipped(endErr)
		case err != nil:
			// No usable start frame; this window only seeds the next.
		default:
			began := time.Now()
			sample := computeUtilization(start, end)
			s.submit(sample)
			s.hooks.window(time.Since(began), len(sample.Percent))
		}
		start, err = end, endErr

		timer.Reset(s.interval)
	}
}

// capture reads the system totals and the ticks of every listed process. An
// unreadable system total makes the whole frame unusable.
func (s *Sampler) capture() (frame, error) {
	totals, err := s.system.ReadSystemCPUTotals()
	if err != nil {
		return frame{}, err
	}

	pids := s.scanner.ListProcesses()
	ticks := make(map[int]CPUTicks, len(pids))
	for _, pid := range pids {
		if t, ok := s.facts.ReadCPUTicks(pid); ok {
			ticks[pid] = t
		}
	}
	return frame{system: totals, ticks: ticks}, nil
}

// computeUtilization derives the share of all CPU time each process used
// between two frames. Only PIDs present in both frames are included. A zero
// system delta yields no values; a per-process total that went backwards
// (the PID was reused) omits that PID.
func computeUtilization(start, end frame) CPUSample {
	sample := CPUSample{
		Percent:     make(map[int]float64, len(end.ticks)),
		WindowStart: start.system.ObservedAt,
		WindowEnd:   end.system.ObservedAt,
	}
	if end.system.Total <= start.system.Total {
		return sample
	}
	systemDelta := float64(end.system.Total - start.system.Total)

	for pid, e := range end.ticks {
		b, ok := start.ticks[pid]
		if !ok {
			continue
		}
		if e.Total() < b.Total() {
			continue
		}
		sample.Percent[pid] = 100 * float64(e.Total()-b.Total()) / systemDelta
	}
	return sample
}
