package engine

import "fmt"

// State is the lifecycle state of the synchronization engine
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateBackfilling
	StateLive
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateBackfilling:
		return "BACKFILLING"
	case StateLive:
		return "LIVE"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateChange is emitted on every transition
type StateChange struct {
	From      State
	To        State
	SessionID string
}
