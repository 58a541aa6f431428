package popup

import "fmt"

// State is the lifecycle state of a controller.
//
//	         Open()              timer fires
//	Idle ─────────────► Pending ─────────────► Open
//	 ▲                    │                     │
//	 │      Close()       │                     │ Close()
//	 ├────────────────────┘                     ▼
//	 └──────────────────────────────────────── Closing
//	           close-complete (detach)
type State int

const (
	// StateIdle means the surface is detached and not open.
	StateIdle State = iota
	// StatePending means an open was requested and the delay timer is running.
	StatePending
	// StateOpen means the surface is attached to the document and visible.
	StateOpen
	// StateClosing means the close transition is running; the surface stays
	// attached until the surface reports completion.
	StateClosing
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Attached reports whether a surface in this state is part of the visible
// document.
func (s State) Attached() bool {
	return s == StateOpen || s == StateClosing
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for st := StateIdle; st <= StateClosing; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}
