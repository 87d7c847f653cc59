// Package call implements the call-phase state machine, the derived UI state
// it owns, and the join-recovery resolver.
package call

import "fmt"

// Phase represents the call's coarse lifecycle position. The enumeration is
// closed; there are no hidden states.
type Phase int

const (
	// PhaseIdle means no call attempt is active.
	PhaseIdle Phase = iota
	// PhaseCreatingRoom means a room id is being allocated.
	PhaseCreatingRoom
	// PhaseJoining means a join was sent, awaiting acknowledgment.
	PhaseJoining
	// PhaseWaiting means the join was acknowledged, no peer present yet.
	PhaseWaiting
	// PhaseInCall means a second participant is present.
	PhaseInCall
	// PhaseEnding means teardown is in progress after a hangup.
	PhaseEnding
	// PhaseError means an unrecoverable failure, dismissable back to idle.
	PhaseError
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCreatingRoom:
		return "creatingRoom"
	case PhaseJoining:
		return "joining"
	case PhaseWaiting:
		return "waiting"
	case PhaseInCall:
		return "inCall"
	case PhaseEnding:
		return "ending"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// validTransitions defines which phase transitions are allowed. Error is
// reachable from every non-terminal phase; a transport disconnect never
// appears here because it keeps the current phase.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseCreatingRoom, PhaseJoining, PhaseError},
	PhaseCreatingRoom: {PhaseJoining, PhaseWaiting, PhaseInCall, PhaseIdle, PhaseError},
	PhaseJoining:      {PhaseWaiting, PhaseInCall, PhaseEnding, PhaseIdle, PhaseError},
	PhaseWaiting:      {PhaseInCall, PhaseEnding, PhaseIdle, PhaseError},
	PhaseInCall:       {PhaseEnding, PhaseError},
	PhaseEnding:       {PhaseIdle, PhaseError},
	PhaseError:        {PhaseIdle},
}

// CanTransitionTo checks if a transition from the current phase to next is valid.
func (p Phase) CanTransitionTo(next Phase) bool {
	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}
	for _, phase := range allowed {
		if phase == next {
			return true
		}
	}
	return false
}

// InJoinWindow reports whether the phase is one where join recovery applies.
func (p Phase) InJoinWindow() bool {
	return p == PhaseCreatingRoom || p == PhaseJoining
}

// Active reports whether a call attempt is in progress.
func (p Phase) Active() bool {
	return p != PhaseIdle && p != PhaseError
}
