package types

// Command holds the requested state of the three actuator lines.
type Command struct {
	Fan      bool
	Light    bool
	Resistor bool
}

// States returns the line states in wire order: fan, light, resistor.
func (c Command) States() [3]bool {
	return [3]bool{c.Fan, c.Light, c.Resistor}
}

// String renders the command in its 3-byte wire form.
func (c Command) String() string {
	b := make([]byte, 0, 3)
	for _, on := range c.States() {
		if on {
			b = append(b, '1')
		} else {
			b = append(b, '0')
		}
	}
	return string(b)
}
