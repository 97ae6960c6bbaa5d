package procmon

import "time"

// Status is a point-in-time report on an Instance.
type Status struct {
	Running   bool
	StartTime time.Time // zero if never started

	// Refreshes counts snapshots published since the last start. Rows is
	// the row count of the newest of them.
	Refreshes uint64
	Rows      int

	// SkippedTicks counts refresh ticks dropped because an assembly was
	// still in flight.
	SkippedTicks uint64

	// LastWindow is when the most recent CPU sampling window completed.
	LastWindow time.Time

	LastError    error
	ConfigSource string // file path, "defaults" or "reader"
}

// ErrorHandler receives runtime errors. It runs on the publishing
// goroutine and must not block.
type ErrorHandler func(err error)

// EventHandler receives lifecycle events under the same rules as ErrorHandler.
type EventHandler func(event Event)

// Event is a lifecycle notification.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Message   string
}

// EventType identifies an Event.
type EventType int

const (
	EventStarted EventType = iota
	EventStopped
	EventRestarted
	EventConfigReloaded
	// EventEngineRebuilt follows a reload that changed root, intervals,
	// page size or PID matching.
	EventEngineRebuilt
	EventError
)

var eventNames = [...]string{
	EventStarted:        "started",
	EventStopped:        "stopped",
	EventRestarted:      "restarted",
	EventConfigReloaded: "config_reloaded",
	EventEngineRebuilt:  "engine_rebuilt",
	EventError:          "error",
}

func (e EventType) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}
