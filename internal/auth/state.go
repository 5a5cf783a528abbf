package auth

// State is a position in the authentication session lifecycle.
type State int

const (
	Anonymous State = iota
	LoginPending
	Authenticated
	// LoginFailed is terminal for one attempt; the browser remains free to
	// start another login.
	LoginFailed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case LoginPending:
		return "login_pending"
	case Authenticated:
		return "authenticated"
	case LoginFailed:
		return "login_failed"
	default:
		return "unknown"
	}
}

// StateOf returns the state implied by whether a valid session is present.
func StateOf(hasSession bool) State {
	if hasSession {
		return Authenticated
	}
	return Anonymous
}
