package reconcile

// flushState tracks where the local document sits in the flush cycle.
//
// Transitions:
//
//	Idle     --mutated-->           Dirty
//	Dirty    --interactionEnded-->  Flushing
//	Flushing --flushComplete-->     Idle (or Flushing again, once, when a
//	                                mutation or boundary arrived mid-flight)
type flushState int32

const (
	stateIdle flushState = iota
	stateDirty
	stateFlushing
)

func (s flushState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDirty:
		return "dirty"
	case stateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}
