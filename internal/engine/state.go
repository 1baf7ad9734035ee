package engine

// State is the loop controller's position within a round
type State int

const (
	StateSearching State = iota
	StateAttempting
	StateReporting
	StateCoolingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateAttempting:
		return "attempting"
	case StateReporting:
		return "reporting"
	case StateCoolingDown:
		return "cooling down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
