package fsm

import "github.com/librescoot/librefsm"

// Driver lifecycle states
const (
	StateUninitialized librefsm.StateID = "uninitialized"
	StateAttached      librefsm.StateID = "attached"
	StateOpen          librefsm.StateID = "open"
	StateDetached      librefsm.StateID = "detached"
)

// Driver lifecycle events
const (
	// All resources configured
	EvAttach librefsm.EventID = "attach"

	// First session opened / last session closed
	EvOpen  librefsm.EventID = "open"
	EvClose librefsm.EventID = "close"

	// Teardown requested, or init failed and was unwound
	EvDetach librefsm.EventID = "detach"
)
