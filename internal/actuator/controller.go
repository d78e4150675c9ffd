package actuator

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

// LineWriter is one actuator output line.
type LineWriter interface {
	SetValue(value int) error
}

var lineNames = [CommandLen]string{"fan", "light", "resistor"}

// Controller drives the fan, light and resistor lines from 3-byte commands.
// Concurrent Apply calls are not serialized against each other; the last
// write to a line wins.
type Controller struct {
	logger *logger.Logger
	lines  [CommandLen]LineWriter

	mu   sync.Mutex
	last types.Command
}

func NewController(fan, light, resistor LineWriter, l *logger.Logger) *Controller {
	return &Controller{
		logger: l,
		lines:  [CommandLen]LineWriter{fan, light, resistor},
	}
}

// Apply parses buf and writes all three lines, whether or not their state
// changes. A short buffer is rejected before any line is touched. A failing
// line does not stop the others; the failures are returned together.
//
// The result is the number of bytes interpreted, always CommandLen on
// success.
func (c *Controller) Apply(buf []byte) (int, error) {
	cmd, err := ParseCommand(buf)
	if err != nil {
		c.logger.Warnf("Rejected command %q: %v", buf, err)
		return 0, err
	}

	var errs error
	for i, on := range cmd.States() {
		val := 0
		if on {
			val = 1
		}
		if err := c.lines[i].SetValue(val); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to set %s=%v: %w", lineNames[i], on, err))
			continue
		}
		c.logger.Debugf("Set %s=%v", lineNames[i], on)
	}

	c.mu.Lock()
	c.last = cmd
	c.mu.Unlock()

	c.logger.Infof("Applied outputs %s", cmd)
	return CommandLen, errs
}

// State returns the last command applied.
func (c *Controller) State() types.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
