// Package booking implements the reservation form: availability gating,
// price defaults and submission.
package booking

// State is the lifecycle state of a Form. StateValidating means an
// availability check is in flight; StateCheckFailed means the store could
// not be queried and submission stays blocked.
type State string

const (
	StatePristine    State = "pristine"
	StateValidating  State = "validating"
	StateAvailable   State = "available"
	StateUnavailable State = "unavailable"
	StateCheckFailed State = "check_failed"
	StateSubmitting  State = "submitting"
	StateSuccess     State = "success"
	StateFailed      State = "failed"
	StateClosed      State = "closed"
)

// Editable reports whether the form accepts field changes in s.
func (s State) Editable() bool {
	switch s {
	case StateSubmitting, StateSuccess, StateClosed:
		return false
	}
	return true
}

// FSM holds the allowed form transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the form transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StatePristine:    {StateValidating, StateClosed},
			StateValidating:  {StateValidating, StatePristine, StateAvailable, StateUnavailable, StateCheckFailed, StateClosed},
			StateAvailable:   {StateValidating, StatePristine, StateSubmitting, StateClosed},
			StateUnavailable: {StateValidating, StatePristine, StateClosed},
			StateCheckFailed: {StateValidating, StatePristine, StateClosed},
			StateSubmitting:  {StateSuccess, StateFailed, StateUnavailable, StateClosed},
			StateFailed:      {StateSubmitting, StateValidating, StatePristine, StateClosed},
			StateSuccess:     {StateClosed},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
