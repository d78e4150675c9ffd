package fsm

import "github.com/librescoot/librefsm"

// Machine is the part of a running librefsm machine the drivers use.
type Machine interface {
	SendSync(ev librefsm.Event) error
	CurrentState() librefsm.StateID
}

// NewDefinition creates the lifecycle definition shared by both drivers.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateUninitialized).
		State(StateAttached,
			librefsm.WithOnEnter(actions.EnterAttached),
		).
		State(StateOpen,
			librefsm.WithOnEnter(actions.EnterOpen),
			librefsm.WithOnExit(actions.ExitOpen),
		).
		State(StateDetached,
			librefsm.WithOnEnter(actions.EnterDetached),
		).

		// Init
		Transition(StateUninitialized, EvAttach, StateAttached).
		Transition(StateUninitialized, EvDetach, StateDetached).

		// Sessions
		Transition(StateAttached, EvOpen, StateOpen).
		Transition(StateOpen, EvClose, StateAttached).

		// Teardown, with or without open sessions
		Transition(StateAttached, EvDetach, StateDetached).
		Transition(StateOpen, EvDetach, StateDetached).
		Initial(StateUninitialized)
}
