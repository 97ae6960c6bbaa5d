package monitor

import "time"

// Hooks receive engine events for logging and metrics. Any field may be nil.
// Hooks are called synchronously from the sampler and coordinator goroutines
// and must return quickly.
type Hooks struct {
	// OnWindow is called after a sampling window is published.
	OnWindow func(elapsed time.Duration, processes int)
	// OnWindowSkipped is called when a window could not be computed because
	// the system CPU totals were unavailable.
	OnWindowSkipped func(err error)
	// OnSampleReplaced is called when a published sample replaced one the
	// assembler had not consumed yet.
	OnSampleReplaced func()
	// OnAssembly is called after each assembly pass. dropped counts listed
	// PIDs that yielded no row because their facts could not be read.
	OnAssembly func(elapsed time.Duration, rows, dropped int)
	// OnTickSkipped is called when a refresh tick is coalesced because an
	// assembly was still in flight.
	OnTickSkipped func()
	// OnReadError is called for process directory and system totals failures.
	OnReadError func(err error)
}

func (h Hooks) window(elapsed time.Duration, n int) {
	if h.OnWindow != nil {
		h.OnWindow(elapsed, n)
	}
}

func (h Hooks) windowSkipped(err error) {
	if h.OnWindowSkipped != nil {
		h.OnWindowSkipped(err)
	}
}

func (h Hooks) sampleReplaced() {
	if h.OnSampleReplaced != nil {
		h.OnSampleReplaced()
	}
}

func (h Hooks) assembly(elapsed time.Duration, rows, dropped int) {
	if h.OnAssembly != nil {
		h.OnAssembly(elapsed, rows, dropped)
	}
}

func (h Hooks) tickSkipped() {
	if h.OnTickSkipped != nil {
		h.OnTickSkipped()
	}
}

func (h Hooks) readError(err error) {
	if h.OnReadError != nil {
		h.OnReadError(err)
	}
}
