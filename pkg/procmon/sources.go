package procmon

import "sync"

// sourceTracker remembers which accounting sources are failing, so that a
// persistent failure is reported once instead of on every pass.
type sourceTracker struct {
	mu      sync.Mutex
	errs    map[string]error
	inPass  map[string]bool
	perPass map[string]bool // sources reported through failInPass
}

func newSourceTracker() *sourceTracker {
	return &sourceTracker{
		errs:    make(map[string]error),
		inPass:  make(map[string]bool),
		perPass: make(map[string]bool),
	}
}

// fail records err for source and reports whether the source was healthy before.
func (t *sourceTracker) fail(source string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, was := t.errs[source]
	t.errs[source] = err
	return !was
}

// failInPass is fail for sources read once per assembly pass. Such sources
// recover at the end of a pass that did not report them.
func (t *sourceTracker) failInPass(source string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, was := t.errs[source]
	t.errs[source] = err
	t.inPass[source] = true
	t.perPass[source] = true
	return !was
}

// recover clears source and reports whether it had been failing.
func (t *sourceTracker) recover(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, was := t.errs[source]
	delete(t.errs, source)
	return was
}

// endPass closes an assembly pass and returns the per-pass sources that
// recovered during it.
func (t *sourceTracker) endPass() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var recovered []string
	for source := range t.perPass {
		if t.inPass[source] {
			continue
		}
		delete(t.errs, source)
		delete(t.perPass, source)
		recovered = append(recovered, source)
	}
	clear(t.inPass)
	return recovered
}

// failing returns a copy of the failing sources and their last errors.
func (t *sourceTracker) failing() map[string]error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]error, len(t.errs))
	for k, v := range t.errs {
		out[k] = v
	}
	return out
}

func (t *sourceTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.errs)
	clear(t.inPass)
	clear(t.perPass)
}
