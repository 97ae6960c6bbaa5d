package monitor

// mailbox is a single-slot, latest-value-wins hand-off between one producer
// and one consumer. Neither side ever blocks.
type mailbox struct {
	slot chan CPUSample
}

func newMailbox() *mailbox {
	return &mailbox{slot: make(chan CPUSample, 1)}
}

// put stores s, discarding any unconsumed value. It reports whether a stale
// value was dropped.
func (m *mailbox) put(s CPUSample) (dropped bool) {
	for {
		select {
		case m.slot <- s:
			return dropped
		default:
		}
		// Full: drain the stale value and retry.
		select {
		case <-m.slot:
			dropped = true
		default:
		}
	}
}

// take returns the pending value, if any.
func (m *mailbox) take() (CPUSample, bool) {
	select {
	case s := <-m.slot:
		return s, true
	default:
		return CPUSample{}, false
	}
}
