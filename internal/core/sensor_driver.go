package core

import (
	"context"
	"errors"
	"io"
	"time"

	"greenhouse-service/internal/hardware"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/sensor"
	"greenhouse-service/internal/types"
)

const (
	SensorNode = "temperature"

	defaultAttachRetry = time.Second

	// Upper bound on waiting for a stalled transfer before closing the bus.
	drainTimeout = 2 * time.Second
)

// SensorDriver serves temperature and light-status records.
type SensorDriver struct {
	*Driver

	lines    hardware.LineProvider
	attacher hardware.BusAttacher
	nodes    NodeRegistrar
	timeout  time.Duration
	retry    time.Duration

	unit   *sensor.Unit
	handle hardware.BusHandle
}

func NewSensorDriver(lines hardware.LineProvider, attacher hardware.BusAttacher, nodes NodeRegistrar, cfg Config, l *logger.Logger) *SensorDriver {
	s := &SensorDriver{
		lines:    lines,
		attacher: attacher,
		nodes:    nodes,
		timeout:  cfg.BusTimeout,
		retry:    cfg.AttachRetry,
	}
	if s.retry <= 0 {
		s.retry = defaultAttachRetry
	}
	s.Driver = newDriver("sensor", s, l.WithTag("sensor"))
	return s
}

// Init registers the node, configures the light-status line and starts
// attaching the bus. The driver is usable before the bus is attached;
// samples taken until then fail with types.ErrNotAttached.
func (s *SensorDriver) Init(ctx context.Context) error {
	return s.init(ctx, []setupStep{
		{name: "node", run: s.registerNode},
		{name: "light status line", run: s.configureLight},
		{name: "bus", run: s.startAttach},
	})
}

func (s *SensorDriver) registerNode(ctx context.Context) (func() error, error) {
	if err := s.nodes.Register(SensorNode); err != nil {
		return nil, err
	}
	return func() error { return s.nodes.Unregister(SensorNode) }, nil
}

func (s *SensorDriver) configureLight(ctx context.Context) (func() error, error) {
	line, err := s.lines.RequestLine(hardware.LightStatusLine)
	if err != nil {
		return nil, err
	}
	s.unit = sensor.NewUnit(line, s.timeout, s.logger.WithTag("unit"))
	return line.Close, nil
}

func (s *SensorDriver) startAttach(ctx context.Context) (func() error, error) {
	attachCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go s.attachLoop(attachCtx, done)

	return func() error {
		cancel()
		<-done

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if _, err := s.unit.Detach(drainCtx); err != nil {
			s.logger.Warnf("Closing bus with a transfer still in flight: %v", err)
		}
		if s.handle == nil {
			return nil
		}
		h := s.handle
		s.handle = nil
		return h.Close()
	}, nil
}

// attachLoop retries until the bus device shows up or ctx is cancelled.
func (s *SensorDriver) attachLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		h, err := s.attacher.Attach(ctx)
		if err == nil {
			s.handle = h
			s.unit.Attach(h)
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf("Bus attach failed, retrying in %s: %v", s.retry, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry):
		}
	}
}

// Sample takes one sample. A bus failure still yields a sample, marked by
// its Status, together with the error.
func (s *SensorDriver) Sample(ctx context.Context) (types.Sample, error) {
	s.mu.Lock()
	err := s.ready()
	s.mu.Unlock()
	if err != nil {
		return types.Sample{}, err
	}
	return s.unit.Sample(ctx)
}

func (s *SensorDriver) read(ctx context.Context, p []byte) (int, error) {
	sample, err := s.unit.Sample(ctx)
	if err != nil && sample.Status == "" {
		return 0, err
	}

	var buf [32]byte
	record := sensor.AppendSample(buf[:0], sample)
	if len(p) < len(record) {
		return 0, io.ErrShortBuffer
	}
	return copy(p, record), err
}

func (s *SensorDriver) write(ctx context.Context, p []byte) (int, error) {
	return 0, errors.ErrUnsupported
}
