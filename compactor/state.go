package compactor

// State of a compaction run. Failed is reachable from any state.
type State int32

const (
	StateUninitialized State = iota
	StateSeeded
	StateAccumulating
	StateFlushing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSeeded:
		return "seeded"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}
