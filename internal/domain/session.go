package domain

// SessionState is the step of the unavailability-window configuration flow.
type SessionState int

const (
	StateAwaitingStart SessionState = iota + 1
	StateAwaitingEnd
	StateConfigured
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateAwaitingEnd:
		return "awaiting_end"
	case StateConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

// Session is a user's in-progress window configuration.
// Start is meaningful only in StateAwaitingEnd.
type Session struct {
	State SessionState `json:"state"`
	Start int          `json:"start"`
}
