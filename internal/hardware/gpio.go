package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

// Line is one requested GPIO line. *gpiocdev.Line satisfies it.
type Line interface {
	Value() (int, error)
	SetValue(value int) error
	Close() error
}

type LineProvider interface {
	RequestLine(desc types.LineDescriptor) (Line, error)
}

// Chip hands out lines from one GPIO character device. The chip is opened
// on first use.
type Chip struct {
	logger *logger.Logger
	name   string

	mu   sync.Mutex
	chip *gpiocdev.Chip
}

func NewChip(name string, l *logger.Logger) *Chip {
	return &Chip{
		logger: l,
		name:   name,
	}
}

func (c *Chip) open() (*gpiocdev.Chip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chip != nil {
		return c.chip, nil
	}
	chip, err := gpiocdev.NewChip(c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", c.name, err)
	}
	c.chip = chip
	return chip, nil
}

// RequestLine configures desc on the chip. The label doubles as the line's
// consumer name. Failures wrap types.ErrLineConfig.
func (c *Chip) RequestLine(desc types.LineDescriptor) (Line, error) {
	chip, err := c.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrLineConfig, desc.Label, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(desc.Label)}
	if desc.Dir == types.DirectionOutput {
		val := 0
		if desc.Initial {
			val = 1
		}
		opts = append(opts, gpiocdev.AsOutput(val))
	} else {
		opts = append(opts, gpiocdev.AsInput)
	}

	line, err := chip.RequestLine(desc.Offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (line %d): %w", types.ErrLineConfig, desc.Label, desc.Offset, err)
	}

	c.logger.Infof("Configured %s %s: chip=%s, line=%d", desc.Dir, desc.Label, c.name, desc.Offset)
	return line, nil
}

func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chip == nil {
		return nil
	}
	err := c.chip.Close()
	c.chip = nil
	c.logger.Infof("Closed GPIO chip %s", c.name)
	return err
}
