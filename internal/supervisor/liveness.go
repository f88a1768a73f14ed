package supervisor

import "sync/atomic"

// Liveness is the supervised process state.
type Liveness int32

const (
	NotStarted Liveness = iota
	Launching
	Starting
	StableRunning
	ExitedUnexpectedly
	StoppedByOperator
)

func (l Liveness) String() string {
	switch l {
	case NotStarted:
		return "not-started"
	case Launching:
		return "launching"
	case Starting:
		return "starting"
	case StableRunning:
		return "stable-running"
	case ExitedUnexpectedly:
		return "exited-unexpectedly"
	case StoppedByOperator:
		return "stopped-by-operator"
	default:
		return "unknown"
	}
}

// Running reports whether a process may still be alive in this state.
func (l Liveness) Running() bool {
	return l == Starting || l == StableRunning
}

// Terminal reports whether no further transition is possible.
func (l Liveness) Terminal() bool {
	return l == ExitedUnexpectedly || l == StoppedByOperator
}

// state is written only through compare-and-swap so the poller and the
// stop path cannot overwrite each other's terminal transition.
type state struct {
	v atomic.Int32
}

func (s *state) load() Liveness {
	return Liveness(s.v.Load())
}

func (s *state) swap(from, to Liveness) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
