// Package pairing discovers and establishes trust with a Bluetooth game
// controller within a bounded discovery window.
package pairing

// State describes where a pairing session is in its lifecycle.
type State uint8

const (
	StateScanning State = iota
	StateMatching
	StateFound
	StateConfirming
	StatePairing
	StateTrusting
	StateConnecting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateMatching:
		return "matching"
	case StateFound:
		return "found"
	case StateConfirming:
		return "confirming"
	case StatePairing:
		return "pairing"
	case StateTrusting:
		return "trusting"
	case StateConnecting:
		return "connecting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
