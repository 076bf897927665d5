package finitestate

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	machine, err := New(slog.Default().Handler())
	require.NoError(t, err)
	require.Equal(t, StatusDisconnected, machine.GetState())
}

func TestConnectionLifecycleTransitions(t *testing.T) {
	machine, err := New(slog.Default().Handler())
	require.NoError(t, err)

	require.NoError(t, machine.Transition(StatusConnecting))
	require.NoError(t, machine.Transition(StatusConnected))
	require.NoError(t, machine.Transition(StatusDisconnected))
	require.Equal(t, StatusDisconnected, machine.GetState())
}

func TestInvalidTransitionRejected(t *testing.T) {
	machine, err := New(slog.Default().Handler())
	require.NoError(t, err)

	// Disconnected handles cannot jump straight to connected.
	require.Error(t, machine.Transition(StatusConnected))
	require.Equal(t, StatusDisconnected, machine.GetState())
}

func TestFailedDialReturnsToDisconnected(t *testing.T) {
	machine, err := New(slog.Default().Handler())
	require.NoError(t, err)

	require.NoError(t, machine.Transition(StatusConnecting))
	require.NoError(t, machine.Transition(StatusDisconnected))
	require.Equal(t, StatusDisconnected, machine.GetState())
}
