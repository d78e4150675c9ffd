package fsm

import "github.com/librescoot/librefsm"

// Actions defines the state entry and exit hooks of a driver lifecycle.
// Resource setup and teardown happen outside the machine; the hooks only
// observe the transitions.
type Actions interface {
	EnterAttached(c *librefsm.Context) error
	EnterOpen(c *librefsm.Context) error
	ExitOpen(c *librefsm.Context) error
	EnterDetached(c *librefsm.Context) error
}
