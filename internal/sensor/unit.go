package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

// LineReader is the light-status input line.
type LineReader interface {
	Value() (int, error)
}

// Unit is the sensor acquisition unit: one temperature ADC on a bus that is
// attached some time after construction, plus a digital light-status line.
type Unit struct {
	logger  *logger.Logger
	light   LineReader
	timeout time.Duration

	mu  sync.RWMutex
	bus *Bus
}

// NewUnit creates a unit without a bus. A zero timeout lets transfers block
// for as long as the bus does.
func NewUnit(light LineReader, timeout time.Duration, l *logger.Logger) *Unit {
	return &Unit{
		logger:  l,
		light:   light,
		timeout: timeout,
	}
}

// Attach installs the bus endpoint. It replaces any previous one.
func (u *Unit) Attach(conn Conn) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bus = NewBus(conn)
	u.logger.Infof("Bus attached")
}

// Detach removes the bus endpoint and reports whether one was attached.
// Samples taken afterwards fail with types.ErrNotAttached. It waits, bounded
// by ctx, for a transfer still in flight so the caller can close the device
// afterwards.
func (u *Unit) Detach(ctx context.Context) (bool, error) {
	u.mu.Lock()
	bus := u.bus
	u.bus = nil
	u.mu.Unlock()
	if bus == nil {
		return false, nil
	}

	if err := bus.Drain(ctx); err != nil {
		return true, err
	}
	u.logger.Infof("Bus detached")
	return true, nil
}

func (u *Unit) Attached() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.bus != nil
}

// Sample reads one frame from the ADC and the light-status line.
//
// Bus failures do not abort the sample: the record is returned with its
// Status set and the temperature decoded from whatever the transfer left in
// the frame, together with the bus error. A light-status failure is fatal
// for the request.
func (u *Unit) Sample(ctx context.Context) (types.Sample, error) {
	u.mu.RLock()
	bus := u.bus
	u.mu.RUnlock()
	if bus == nil {
		return types.Sample{}, types.ErrNotAttached
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	sample := types.Sample{Status: types.SampleOK}

	rx, busErr := bus.Read(ctx, FrameLen)
	if errors.Is(busErr, types.ErrNotAttached) {
		return types.Sample{}, busErr
	}
	if busErr != nil {
		u.logger.Errorf("Temperature transfer failed: %v", busErr)
		sample.Status = types.SampleBusError
		if errors.Is(busErr, types.ErrBusTimeout) {
			sample.Status = types.SampleBusTimeout
		}
	}

	var frame [FrameLen]byte
	copy(frame[:], rx)
	sample.Temperature = Decode(frame)

	v, err := u.light.Value()
	if err != nil {
		return types.Sample{}, multierr.Append(busErr, fmt.Errorf("failed to read light status: %w", err))
	}
	sample.Light = v != 0

	u.logger.Debugf("Sample: frame=% x temperature=%d light=%v status=%s",
		frame[:], sample.Temperature, sample.Light, sample.Status)
	return sample, busErr
}
