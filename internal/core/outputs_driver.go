package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"greenhouse-service/internal/actuator"
	"greenhouse-service/internal/hardware"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

const OutputsNode = "outputs"

// OutputsDriver drives the fan, light and resistor lines.
type OutputsDriver struct {
	*Driver

	lines hardware.LineProvider
	nodes NodeRegistrar

	outputs    [3]hardware.Line
	controller *actuator.Controller
}

func NewOutputsDriver(lines hardware.LineProvider, nodes NodeRegistrar, l *logger.Logger) *OutputsDriver {
	o := &OutputsDriver{
		lines: lines,
		nodes: nodes,
	}
	o.Driver = newDriver("outputs", o, l.WithTag("outputs"))
	return o
}

// Init registers the node and configures the three output lines, all off.
func (o *OutputsDriver) Init(ctx context.Context) error {
	steps := []setupStep{{name: "node", run: o.registerNode}}
	for i, desc := range hardware.OutputLines {
		steps = append(steps, setupStep{
			name: strings.ToLower(desc.Label) + " line",
			run:  o.configureLine(i, desc),
		})
	}
	steps = append(steps, setupStep{name: "controller", run: o.newController})
	return o.init(ctx, steps)
}

func (o *OutputsDriver) registerNode(ctx context.Context) (func() error, error) {
	if err := o.nodes.Register(OutputsNode); err != nil {
		return nil, err
	}
	return func() error { return o.nodes.Unregister(OutputsNode) }, nil
}

func (o *OutputsDriver) configureLine(i int, desc types.LineDescriptor) func(context.Context) (func() error, error) {
	return func(ctx context.Context) (func() error, error) {
		line, err := o.lines.RequestLine(desc)
		if err != nil {
			return nil, err
		}
		o.outputs[i] = line
		return line.Close, nil
	}
}

func (o *OutputsDriver) newController(ctx context.Context) (func() error, error) {
	o.controller = actuator.NewController(o.outputs[0], o.outputs[1], o.outputs[2], o.logger)
	return nil, nil
}

// Outputs returns the last applied command.
func (o *OutputsDriver) Outputs() types.Command {
	return o.controller.State()
}

func (o *OutputsDriver) read(ctx context.Context, p []byte) (int, error) {
	return 0, io.EOF
}

// write applies one command per call. Trailing bytes are consumed with it.
func (o *OutputsDriver) write(ctx context.Context, p []byte) (int, error) {
	if _, err := o.controller.Apply(p); err != nil {
		if errors.Is(err, types.ErrInvalidCommand) {
			return 0, err
		}
		return len(p), fmt.Errorf("command %q applied partially: %w", p, err)
	}
	return len(p), nil
}
