package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"

	"github.com/redis/go-redis/v9"
)

const (
	// Hash and notification channel carrying the latest sample and outputs
	StateHash    = "greenhouse"
	StateChannel = "greenhouse"

	DriversHash = "greenhouse:drivers"

	// Command lists, fed with LPUSH
	OutputsList = "greenhouse:outputs"
	SensorList  = "greenhouse:sensor"
)

type Callbacks struct {
	OutputsCallback func(string) error // raw command, e.g. "101"
	SampleCallback  func() error
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetCallbacks replaces the command handlers. It must be called before
// StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Errorf("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts the list command listeners
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(2)
	go r.listCommandListener(OutputsList, r.handleOutputsCommand)
	go r.listCommandListener(SensorList, r.handleSensorCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if r.ctx.Err() != nil {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Warnf("Error reading from %s list: %v", key, err)
				// Back off so a lost connection does not spin
				select {
				case <-r.ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleOutputsCommand(value string) error {
	if r.callbacks.OutputsCallback == nil {
		return nil
	}
	// Tolerate commands pushed with a line ending, e.g. from redis-cli scripts
	return r.callbacks.OutputsCallback(strings.TrimRight(value, "\r\n"))
}

func (r *RedisClient) handleSensorCommand(value string) error {
	if r.callbacks.SampleCallback == nil {
		return nil
	}
	switch value {
	case "read":
		return r.callbacks.SampleCallback()
	default:
		r.logger.Infof("Invalid sensor command value: %s", value)
		return fmt.Errorf("invalid sensor command: %s", value)
	}
}

// publishHashSet is a helper that atomically updates hash fields and publishes a notification
func (r *RedisClient) publishHashSet(hash string, values []interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, values...)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func sampleFields(s types.Sample, now time.Time) []interface{} {
	return []interface{}{
		"temperature", int(s.Temperature),
		"light", onOff(s.Light),
		"status", string(s.Status),
		"timestamp", now.Format(time.RFC3339),
	}
}

func outputFields(cmd types.Command) []interface{} {
	return []interface{}{
		"fan", onOff(cmd.Fan),
		"light-output", onOff(cmd.Light),
		"resistor", onOff(cmd.Resistor),
	}
}

func (r *RedisClient) PublishSample(s types.Sample) error {
	r.logger.Debugf("Publishing sample: temperature=%d light=%v status=%s", s.Temperature, s.Light, s.Status)
	if err := r.publishHashSet(StateHash, sampleFields(s, time.Now()), StateChannel, "sample"); err != nil {
		r.logger.Warnf("Failed to publish sample: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishOutputs(cmd types.Command) error {
	r.logger.Debugf("Publishing outputs: %s", cmd)
	if err := r.publishHashSet(StateHash, outputFields(cmd), StateChannel, "outputs"); err != nil {
		r.logger.Warnf("Failed to publish outputs: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishDriverState(driver string, state string) error {
	r.logger.Infof("Publishing %s driver state: %s", driver, state)
	if err := r.publishHashSet(DriversHash, []interface{}{driver, state}, StateChannel, "driver-state"); err != nil {
		r.logger.Warnf("Failed to publish driver state: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
