package call

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrInvalidTransition indicates a phase transition that the machine
	// does not allow; the state is left unchanged.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// StateTransitionError reports an invalid phase transition attempt.
type StateTransitionError struct {
	From   Phase
	To     Phase
	Action string // what triggered the attempt
}

// Error returns the error message.
func (e *StateTransitionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: cannot transition from %s to %s", e.Action, e.From, e.To)
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition.
func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
