package app

// State represents the current application state.
type State int

const (
	StateLoading    State = iota // First fetch of the active queue in flight
	StateBrowsing                // Moving through the queue window
	StateConfirming              // Approve/reject panel open
	StateDetail                  // Full item view
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateBrowsing:
		return "browsing"
	case StateConfirming:
		return "confirming"
	case StateDetail:
		return "detail"
	default:
		return "unknown"
	}
}
