package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"greenhouse-service/internal/fsm"
)

// Ensure Driver implements fsm.Actions
var _ fsm.Actions = (*Driver)(nil)

// initFSM builds and starts the lifecycle machine. The machine outlives the
// init call, so it does not inherit the caller's context.
func (d *Driver) initFSM() error {
	machine, err := fsm.NewDefinition(d).Build()
	if err != nil {
		return err
	}

	machine.OnStateChange(func(from, to librefsm.StateID) {
		d.logger.Infof("State transition: %s -> %s", from, to)
		if d.stateCallback != nil {
			d.stateCallback(d.name, to)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := machine.Start(ctx); err != nil {
		cancel()
		return err
	}

	d.machine = machine
	d.stopFSM = cancel
	return nil
}

// sendEvent sends an event to the FSM and waits for it to be handled
func (d *Driver) sendEvent(event librefsm.EventID) error {
	return d.machine.SendSync(librefsm.Event{ID: event})
}

func (d *Driver) EnterAttached(c *librefsm.Context) error {
	d.logger.Infof("Ready")
	return nil
}

func (d *Driver) EnterOpen(c *librefsm.Context) error {
	d.logger.Debugf("First session opened")
	return nil
}

func (d *Driver) ExitOpen(c *librefsm.Context) error {
	d.logger.Debugf("Leaving open state")
	return nil
}

func (d *Driver) EnterDetached(c *librefsm.Context) error {
	d.logger.Infof("Detached")
	return nil
}
