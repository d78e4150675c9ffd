package sensor

import (
	"context"
	"fmt"

	"greenhouse-service/internal/types"
)

// Conn is a full-duplex bus endpoint. Tx clocks len(r) bytes, sending w and
// filling r. periph's spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// Bus serializes transactions on one attached device. Only one Tx is in
// flight at a time, including transfers whose caller already gave up.
type Bus struct {
	conn   Conn
	sem    chan struct{}
	closed chan struct{}
}

func NewBus(conn Conn) *Bus {
	return &Bus{
		conn:   conn,
		sem:    make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Drain waits for the transfer in flight, if any, and then takes the bus for
// good: later reads fail with types.ErrNotAttached. It must be called once.
func (b *Bus) Drain(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		close(b.closed)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: draining bus: %w", types.ErrBusTimeout, ctx.Err())
	}
}

// Read performs one pure read transaction of n bytes. Nothing meaningful is
// written; zeros are clocked out.
//
// On a transfer error the bytes received so far are returned along with an
// error wrapping types.ErrBus. If ctx ends first, a zeroed buffer and
// types.ErrBusTimeout are returned; the abandoned transfer keeps the bus
// until the hardware call returns.
func (b *Bus) Read(ctx context.Context, n int) ([]byte, error) {
	select {
	case b.sem <- struct{}{}:
	case <-b.closed:
		return make([]byte, n), types.ErrNotAttached
	case <-ctx.Done():
		return make([]byte, n), fmt.Errorf("%w: waiting for bus: %w", types.ErrBusTimeout, ctx.Err())
	}

	rx := make([]byte, n)
	done := make(chan error, 1)
	go func() {
		defer func() { <-b.sem }()
		done <- b.conn.Tx(make([]byte, n), rx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return rx, fmt.Errorf("%w: %w", types.ErrBus, err)
		}
		return rx, nil
	case <-ctx.Done():
		return make([]byte, n), fmt.Errorf("%w: %w", types.ErrBusTimeout, ctx.Err())
	}
}
