package types

import "errors"

var (
	// ErrRegistration is returned when a pseudo-file node or the bus
	// attachment cannot be registered. Fatal at init.
	ErrRegistration = errors.New("registration failed")

	// ErrLineConfig is returned when a GPIO line cannot be configured. Fatal
	// at init.
	ErrLineConfig = errors.New("line configuration failed")

	// ErrBus marks a failed bus transfer. Non-fatal for the request.
	ErrBus = errors.New("bus transfer failed")

	// ErrBusTimeout marks a bus transfer that did not complete in time.
	ErrBusTimeout = errors.New("bus transfer timed out")

	ErrInvalidCommand = errors.New("invalid command")

	// ErrNotAttached is returned by operations that need a device which has
	// not been attached yet.
	ErrNotAttached = errors.New("device not attached")

	ErrDetached = errors.New("device detached")
)
