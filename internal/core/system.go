package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/librescoot/librefsm"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"greenhouse-service/internal/hardware"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/messaging"
)

type Config struct {
	// Bound on one temperature transfer. Zero waits for the bus.
	BusTimeout time.Duration
	// Delay between bus attach attempts.
	AttachRetry time.Duration
	// Interval of the periodic sample publisher. Zero disables it.
	SampleInterval time.Duration
}

// GreenhouseSystem owns both drivers and connects them to the node
// directory and to Redis.
type GreenhouseSystem struct {
	logger *logger.Logger
	cfg    Config
	nodes  NodeServer
	redis  MessagingClient

	outputs *OutputsDriver
	sensor  *SensorDriver

	cancel       context.CancelFunc
	done         chan struct{}
	err          error
	shutdownOnce sync.Once
}

func NewGreenhouseSystem(cfg Config, lines hardware.LineProvider, attacher hardware.BusAttacher, nodes NodeServer, redis MessagingClient, l *logger.Logger) *GreenhouseSystem {
	g := &GreenhouseSystem{
		logger:  l,
		cfg:     cfg,
		nodes:   nodes,
		redis:   redis,
		outputs: NewOutputsDriver(lines, nodes, l),
		sensor:  NewSensorDriver(lines, attacher, nodes, cfg, l),
		done:    make(chan struct{}),
	}
	g.outputs.OnStateChange(g.publishDriverState)
	g.sensor.OnStateChange(g.publishDriverState)
	return g
}

func (g *GreenhouseSystem) Outputs() *OutputsDriver {
	return g.outputs
}

func (g *GreenhouseSystem) Sensor() *SensorDriver {
	return g.sensor
}

func (g *GreenhouseSystem) publishDriverState(driver string, state librefsm.StateID) {
	if err := g.redis.PublishDriverState(driver, string(state)); err != nil {
		g.logger.Warnf("Failed to publish %s driver state: %v", driver, err)
	}
}

// Start brings up messaging and both drivers, then serves the nodes and the
// Redis command lists until Shutdown.
func (g *GreenhouseSystem) Start(ctx context.Context) error {
	g.logger.Infof("Starting greenhouse system")

	g.redis.SetCallbacks(messaging.Callbacks{
		OutputsCallback: g.handleOutputsRequest,
		SampleCallback:  g.handleSampleRequest,
	})
	if err := g.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := g.outputs.Init(ctx); err != nil {
		g.closeRedis()
		return err
	}
	if err := g.sensor.Init(ctx); err != nil {
		if derr := g.outputs.Detach(); derr != nil {
			g.logger.Warnf("Failed to detach outputs driver: %v", derr)
		}
		g.closeRedis()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	group, gctx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return g.nodes.ServeSource(gctx, SensorNode, func() (io.ReadCloser, error) {
			sess, err := g.sensor.Open()
			if err != nil {
				return nil, err
			}
			return sess, nil
		})
	})
	group.Go(func() error {
		return g.nodes.ServeSink(gctx, OutputsNode, func() (io.WriteCloser, error) {
			sess, err := g.outputs.Open()
			if err != nil {
				return nil, err
			}
			return sess, nil
		})
	})
	if g.cfg.SampleInterval > 0 {
		group.Go(func() error {
			g.publishSamples(gctx, g.cfg.SampleInterval)
			return nil
		})
	}

	go func() {
		g.err = group.Wait()
		if g.err != nil {
			g.logger.Errorf("Background worker failed: %v", g.err)
		}
		close(g.done)
	}()

	if err := g.redis.StartListening(); err != nil {
		if serr := g.Shutdown(); serr != nil {
			g.logger.Warnf("Cleanup after failed start: %v", serr)
		}
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	g.logger.Infof("System started successfully")
	return nil
}

func (g *GreenhouseSystem) closeRedis() {
	if err := g.redis.Close(); err != nil {
		g.logger.Warnf("Failed to close Redis client: %v", err)
	}
}

// Done is closed when the background workers have stopped, either through
// Shutdown or because one of them failed.
func (g *GreenhouseSystem) Done() <-chan struct{} {
	return g.done
}

// Err returns the error that stopped the background workers. It is valid
// once Done is closed.
func (g *GreenhouseSystem) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

func (g *GreenhouseSystem) publishSamples(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.handleSampleRequest(); err != nil {
				g.logger.Warnf("Periodic sample failed: %v", err)
			}
		}
	}
}

// Shutdown stops the workers and detaches the drivers in reverse order of
// initialization. It is safe to call more than once.
func (g *GreenhouseSystem) Shutdown() error {
	var err error
	g.shutdownOnce.Do(func() {
		g.logger.Infof("Shutting down greenhouse system")

		if g.cancel != nil {
			g.cancel()
			<-g.done
		}

		err = multierr.Combine(
			g.sensor.Detach(),
			g.outputs.Detach(),
			g.redis.Close(),
		)
	})
	return err
}
