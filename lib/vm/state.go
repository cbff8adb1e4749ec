package vm

import "github.com/onkernel/glidex/lib/errs"

// ValidTransitions defines allowed single-hop state transitions.
var ValidTransitions = map[State][]State{
	StateCreated: {
		StateRunning, // start
	},
	StateRunning: {
		StatePaused,  // pause
		StateStopped, // stop
	},
	StatePaused: {
		StateRunning, // resume (start)
		StateStopped, // stop
	},
	StateStopped: {
		StateRunning, // start again
	},
}

// CanTransitionTo checks whether a transition from s to target is valid.
func (s State) CanTransitionTo(target State) error {
	allowed, ok := ValidTransitions[s]
	if !ok {
		return errs.InvalidState(string(s), "transition to "+string(target))
	}
	for _, v := range allowed {
		if v == target {
			return nil
		}
	}
	return errs.InvalidState(string(s), "transition to "+string(target))
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether this state has no outgoing transitions worth
// reconciling further (Stopped is the only resting terminal-ish state, but
// unlike the teacher's model it can still restart).
func (s State) IsTerminal() bool {
	return s == StateStopped
}

// RequiresProcess reports whether a runtime entry in this state is expected
// to own a live hypervisor process handle.
func (s State) RequiresProcess() bool {
	return s == StateRunning || s == StatePaused
}
