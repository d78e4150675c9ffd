package core

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"greenhouse-service/internal/types"
)

// handleOutputsRequest applies a command pushed to the outputs list and
// publishes the resulting line states.
func (g *GreenhouseSystem) handleOutputsRequest(cmd string) error {
	sess, err := g.outputs.Open()
	if err != nil {
		return err
	}
	defer sess.Close()

	_, err = sess.Write([]byte(cmd))
	if errors.Is(err, types.ErrInvalidCommand) {
		return err
	}
	return multierr.Append(err, g.redis.PublishOutputs(g.outputs.Outputs()))
}

// handleSampleRequest takes one sample and publishes it. A sample marked by
// a bus failure is still published.
func (g *GreenhouseSystem) handleSampleRequest() error {
	sess, err := g.sensor.Open()
	if err != nil {
		return err
	}
	defer sess.Close()

	sample, err := g.sensor.Sample(context.Background())
	if err != nil && sample.Status == "" {
		return err
	}
	return multierr.Append(err, g.redis.PublishSample(sample))
}
