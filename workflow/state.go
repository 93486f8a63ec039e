package workflow

//go:generate go run github.com/dmarkham/enumer -json -type State -trimprefix State

// State of a Session
type State int

const (
	StateCreated State = iota
	StateAuthenticated
	StateResolved
	StateSearched
	StateGranted
	StateDownloading
	StateCompleted
	StateLoggedOut
)

// CanTransition returns true if a session in state s can go to state next.
// States only move forward; LoggedOut is reachable from any state and is terminal.
func (s State) CanTransition(next State) bool {
	if s == StateLoggedOut {
		return false
	}
	if next == StateLoggedOut {
		return true
	}
	return next > s
}
