package monitor

// State is a process run state as reported in /proc/<pid>/stat.
type State int

// Process run states. Codes follow proc(5).
const (
	StateUnknown State = iota
	StateRunning
	StateSleeping
	StateDiskSleep
	StateZombie
	StateStopped
	StateTracingStop
	StatePaging
	StateDead
	StateWakekill
	StateParked
	StateIdle
)

var stateCodes = map[string]State{
	"R": StateRunning,
	"S": StateSleeping,
	"D": StateDiskSleep,
	"Z": StateZombie,
	"T": StateStopped,
	"t": StateTracingStop,
	"W": StatePaging,
	"X": StateDead,
	"x": StateDead,
	"K": StateWakekill,
	"P": StateParked,
	"I": StateIdle,
}

var stateLabels = [...]string{
	StateUnknown:     "Unknown",
	StateRunning:     "Running",
	StateSleeping:    "Sleeping",
	StateDiskSleep:   "Disk Sleep",
	StateZombie:      "Zombie",
	StateStopped:     "Stopped",
	StateTracingStop: "Tracing Stop",
	StatePaging:      "Paging",
	StateDead:        "Dead",
	StateWakekill:    "Wakekill",
	StateParked:      "Parked",
	StateIdle:        "Idle",
}

// ParseState maps a kernel state code to a State. Unrecognized codes are Unknown.
func ParseState(code string) State {
	if s, ok := stateCodes[code]; ok {
		return s
	}
	return StateUnknown
}

// String returns the display label.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateLabels) {
		return stateLabels[StateUnknown]
	}
	return stateLabels[s]
}
