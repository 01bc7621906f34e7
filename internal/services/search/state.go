package search

// State is the controller lifecycle position for one run
type State int

const (
	StateIdle State = iota
	StateRunningPhase1
	StateRunningPhase2
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningPhase1:
		return "running_phase1"
	case StateRunningPhase2:
		return "running_phase2"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// next reports whether moving from s to to is a legal transition
func (s State) next(to State) bool {
	switch s {
	case StateIdle:
		return to == StateRunningPhase1
	case StateRunningPhase1:
		return to == StateRunningPhase2 || to == StateDone
	case StateRunningPhase2:
		return to == StateDone
	default:
		return false
	}
}
