package actuator

import (
	"fmt"

	"greenhouse-service/internal/types"
)

// CommandLen is the number of bytes of a write that carry line states.
// Anything after them is ignored.
const CommandLen = 3

// ParseCommand decodes the positional fan, light, resistor bytes. Only an
// ASCII '1' switches a line on; every other byte, including malformed input,
// switches it off.
func ParseCommand(buf []byte) (types.Command, error) {
	if len(buf) < CommandLen {
		return types.Command{}, fmt.Errorf("%w: need %d bytes, got %d", types.ErrInvalidCommand, CommandLen, len(buf))
	}
	return types.Command{
		Fan:      buf[0] == '1',
		Light:    buf[1] == '1',
		Resistor: buf[2] == '1',
	}, nil
}
