// Connection lifecycle state machine.
package finitestate

import (
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Connection state constants
const (
	StatusDisconnected = "disconnected" // Initial state; no resource held
	StatusConnecting   = "connecting"   // Dial in progress
	StatusConnected    = "connected"    // Client established and verified
)

// ConnectionTransitions defines the valid state transitions for a
// database connection handle.
var ConnectionTransitions = map[string][]string{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusDisconnected},
	StatusConnected:    {StatusDisconnected},
}

// Machine defines the interface for the finite state machine that tracks
// the connection handle's lifecycle. This abstraction allows for different
// FSM implementations and simplifies testing.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// GetState returns the current state of the state machine.
	GetState() string
}

// New creates a new finite state machine starting in the disconnected state.
func New(handler slog.Handler) (Machine, error) {
	return fsm.New(handler, StatusDisconnected, ConnectionTransitions)
}
