package transport

// State is the lifecycle state of a Channel.
type State int32

const (
	// StateConnecting means the handshake has not completed yet.
	StateConnecting State = iota

	// StateOpen means frames can be sent and received.
	StateOpen

	// StateClosed is terminal.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
