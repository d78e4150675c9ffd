package core

import (
	"fmt"

	"github.com/librescoot/librefsm"
	"go.uber.org/multierr"

	"greenhouse-service/internal/fsm"
	"greenhouse-service/internal/types"
)

// Lifecycle events, re-exported for the driver code in this package.
const (
	EvAttach = fsm.EvAttach
	EvOpen   = fsm.EvOpen
	EvClose  = fsm.EvClose
	EvDetach = fsm.EvDetach
)

// State returns the lifecycle state.
func (d *Driver) State() librefsm.StateID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentState()
}

func (d *Driver) currentState() librefsm.StateID {
	if d.machine == nil {
		return fsm.StateUninitialized
	}
	return d.machine.CurrentState()
}

// ready reports whether requests may be served.
func (d *Driver) ready() error {
	switch d.currentState() {
	case fsm.StateAttached, fsm.StateOpen:
		return nil
	case fsm.StateDetached:
		return fmt.Errorf("%w: %w", types.ErrNotAttached, types.ErrDetached)
	default:
		return types.ErrNotAttached
	}
}

// Open starts a session. Any number of sessions may be open at once.
func (d *Driver) Open() (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ready(); err != nil {
		return nil, err
	}

	d.openCount++
	if d.openCount == 1 {
		if err := d.sendEvent(EvOpen); err != nil {
			d.openCount--
			return nil, fmt.Errorf("failed to open %s: %w", d.name, err)
		}
	}
	d.logger.Debugf("Opened, %d session(s)", d.openCount)
	return &Session{driver: d}, nil
}

// release drops one session. Resources stay configured until Detach.
func (d *Driver) release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openCount == 0 {
		return nil
	}
	d.openCount--
	d.logger.Debugf("Closed, %d session(s)", d.openCount)

	if d.openCount == 0 && d.currentState() == fsm.StateOpen {
		return d.sendEvent(EvClose)
	}
	return nil
}

// Detach tears the driver down in reverse setup order. Open sessions fail
// with types.ErrDetached afterwards. Detaching twice is a no-op.
func (d *Driver) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.machine == nil || d.currentState() == fsm.StateDetached {
		return nil
	}
	if d.openCount > 0 {
		d.logger.Warnf("Detaching with %d open session(s)", d.openCount)
	}

	d.detached.Store(true)
	err := d.sendEvent(EvDetach)
	err = multierr.Append(err, d.unwind())
	d.stopFSM()
	return err
}
