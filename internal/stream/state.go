// Package stream implements the broker's streaming protocol: a websocket
// connection that logs in with credentials derived from the user principal,
// a builder for subscription requests, and a pipeline that queues
// subscriptions, flushes them once the socket is open, and hands back
// frames one at a time.
package stream

// State is a connection lifecycle position. Transitions only move forward:
// Idle → Connecting → AwaitingLoginAck → Open → Closing → Closed. Any state
// may jump to Closed on failure.
type State int32

const (
	Idle State = iota
	Connecting
	AwaitingLoginAck
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case AwaitingLoginAck:
		return "awaiting-login-ack"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
