package core

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/librescoot/librefsm"
	"go.uber.org/multierr"

	"greenhouse-service/internal/fsm"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

// fileOps are the read and write handlers of a concrete driver.
type fileOps interface {
	read(ctx context.Context, p []byte) (int, error)
	write(ctx context.Context, p []byte) (int, error)
}

// setupStep configures one resource and returns how to release it. A nil
// release means there is nothing to undo.
type setupStep struct {
	name string
	run  func(ctx context.Context) (release func() error, err error)
}

type teardownStep struct {
	name    string
	release func() error
}

// Driver carries the lifecycle shared by the sensor and outputs drivers:
// ordered setup with unwinding, open-count bookkeeping and ordered teardown.
type Driver struct {
	name   string
	logger *logger.Logger
	ops    fileOps

	mu        sync.Mutex
	machine   fsm.Machine
	stopFSM   context.CancelFunc
	openCount int
	teardown  []teardownStep
	detached  atomic.Bool

	stateCallback func(driver string, state librefsm.StateID)
}

func newDriver(name string, ops fileOps, l *logger.Logger) *Driver {
	return &Driver{
		name:   name,
		logger: l,
		ops:    ops,
	}
}

func (d *Driver) Name() string {
	return d.name
}

// OnStateChange registers a callback for lifecycle transitions. It must be
// set before Init.
func (d *Driver) OnStateChange(cb func(driver string, state librefsm.StateID)) {
	d.stateCallback = cb
}

// OpenCount returns the number of open sessions.
func (d *Driver) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openCount
}

// init runs steps in order. If one fails, the completed ones are undone in
// reverse order and the driver ends up detached.
func (d *Driver) init(ctx context.Context, steps []setupStep) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.machine != nil {
		return fmt.Errorf("driver %s already initialized", d.name)
	}
	if err := d.initFSM(); err != nil {
		return fmt.Errorf("failed to start %s state machine: %w", d.name, err)
	}

	d.logger.Infof("Initializing")
	for _, step := range steps {
		release, err := d.runStep(ctx, step)
		if err != nil {
			d.logger.Errorf("Setup of %s failed: %v", step.name, err)
			if uerr := d.unwind(); uerr != nil {
				d.logger.Warnf("Unwinding partial setup: %v", uerr)
			}
			d.detached.Store(true)
			if serr := d.sendEvent(EvDetach); serr != nil {
				d.logger.Warnf("Failed to record detach: %v", serr)
			}
			d.stopFSM()
			return fmt.Errorf("failed to initialize %s: %w", d.name, err)
		}
		d.teardown = append(d.teardown, teardownStep{name: step.name, release: release})
		d.logger.Debugf("Setup of %s done", step.name)
	}

	return d.sendEvent(EvAttach)
}

// runStep runs one setup step unless ctx is already done.
func (d *Driver) runStep(ctx context.Context, step setupStep) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", step.name, err)
	}
	return step.run(ctx)
}

// unwind releases everything set up so far, last first.
func (d *Driver) unwind() error {
	var errs error
	for i := len(d.teardown) - 1; i >= 0; i-- {
		step := d.teardown[i]
		if step.release == nil {
			continue
		}
		if err := step.release(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		d.logger.Debugf("Released %s", step.name)
	}
	d.teardown = nil
	return errs
}

// Session is one open handle on a driver. Sessions may be used concurrently.
type Session struct {
	driver *Driver
	closed atomic.Bool
}

func (s *Session) check() error {
	if s.closed.Load() {
		return os.ErrClosed
	}
	if s.driver.detached.Load() {
		return types.ErrDetached
	}
	return nil
}

func (s *Session) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

func (s *Session) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.driver.ops.read(ctx, p)
}

func (s *Session) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

func (s *Session) WriteContext(ctx context.Context, p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.driver.ops.write(ctx, p)
}

// Ioctl accepts and ignores control requests.
func (s *Session) Ioctl(cmd, arg uintptr) error {
	if err := s.check(); err != nil {
		return err
	}
	s.driver.logger.Debugf("ioctl cmd=%#x arg=%#x ignored", cmd, arg)
	return nil
}

// Close releases the session. Closing twice is a no-op.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.driver.release()
}
