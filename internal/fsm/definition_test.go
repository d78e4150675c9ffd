package fsm

import (
	"context"
	"testing"

	"github.com/librescoot/librefsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingActions struct {
	calls []string
}

func (a *recordingActions) EnterAttached(c *librefsm.Context) error {
	a.calls = append(a.calls, "enter-attached")
	return nil
}

func (a *recordingActions) EnterOpen(c *librefsm.Context) error {
	a.calls = append(a.calls, "enter-open")
	return nil
}

func (a *recordingActions) ExitOpen(c *librefsm.Context) error {
	a.calls = append(a.calls, "exit-open")
	return nil
}

func (a *recordingActions) EnterDetached(c *librefsm.Context) error {
	a.calls = append(a.calls, "enter-detached")
	return nil
}

func startMachine(t *testing.T, actions Actions) Machine {
	t.Helper()
	machine, err := NewDefinition(actions).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, machine.Start(ctx))
	return machine
}

func send(t *testing.T, m Machine, ev librefsm.EventID) {
	t.Helper()
	require.NoError(t, m.SendSync(librefsm.Event{ID: ev}))
}

func TestLifecycle(t *testing.T) {
	actions := &recordingActions{}
	m := startMachine(t, actions)
	assert.Equal(t, StateUninitialized, m.CurrentState())

	send(t, m, EvAttach)
	assert.Equal(t, StateAttached, m.CurrentState())

	send(t, m, EvOpen)
	assert.Equal(t, StateOpen, m.CurrentState())

	send(t, m, EvClose)
	assert.Equal(t, StateAttached, m.CurrentState())

	send(t, m, EvDetach)
	assert.Equal(t, StateDetached, m.CurrentState())

	assert.Equal(t, []string{
		"enter-attached",
		"enter-open",
		"exit-open",
		"enter-attached",
		"enter-detached",
	}, actions.calls)
}

func TestDetachWhileOpen(t *testing.T) {
	m := startMachine(t, &recordingActions{})

	send(t, m, EvAttach)
	send(t, m, EvOpen)
	send(t, m, EvDetach)
	assert.Equal(t, StateDetached, m.CurrentState())
}

func TestFailedInitEndsDetached(t *testing.T) {
	m := startMachine(t, &recordingActions{})

	send(t, m, EvDetach)
	assert.Equal(t, StateDetached, m.CurrentState())
}
