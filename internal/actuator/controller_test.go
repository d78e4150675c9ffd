package actuator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

type fakeLine struct {
	value  int
	writes int
	err    error
}

func (l *fakeLine) SetValue(v int) error {
	l.writes++
	if l.err != nil {
		return l.err
	}
	l.value = v
	return nil
}

func newTestController() (*Controller, [3]*fakeLine) {
	lines := [3]*fakeLine{{}, {}, {}}
	c := NewController(lines[0], lines[1], lines[2], logger.NewLogger(nil, logger.LogLevelError))
	return c, lines
}

func values(lines [3]*fakeLine) [3]int {
	return [3]int{lines[0].value, lines[1].value, lines[2].value}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want types.Command
	}{
		{"101", types.Command{Fan: true, Resistor: true}},
		{"abc", types.Command{}},
		{"111", types.Command{Fan: true, Light: true, Resistor: true}},
		{"000", types.Command{}},
		{" 1\x00", types.Command{Light: true}},
		{"011\n", types.Command{Light: true, Resistor: true}},
		{"0001111", types.Command{}},
	}

	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.in))
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseCommandShort(t *testing.T) {
	for _, in := range []string{"", "1", "11"} {
		_, err := ParseCommand([]byte(in))
		assert.ErrorIs(t, err, types.ErrInvalidCommand, "input %q", in)
	}
}

func TestApplySetsLines(t *testing.T) {
	c, lines := newTestController()

	n, err := c.Apply([]byte("101"))
	require.NoError(t, err)
	assert.Equal(t, CommandLen, n)
	assert.Equal(t, [3]int{1, 0, 1}, values(lines))
	assert.Equal(t, types.Command{Fan: true, Resistor: true}, c.State())
}

func TestApplyShortLeavesLinesUntouched(t *testing.T) {
	c, lines := newTestController()
	_, err := c.Apply([]byte("111"))
	require.NoError(t, err)

	n, err := c.Apply([]byte("00"))
	assert.ErrorIs(t, err, types.ErrInvalidCommand)
	assert.Zero(t, n)
	assert.Equal(t, [3]int{1, 1, 1}, values(lines))
	for _, l := range lines {
		assert.Equal(t, 1, l.writes)
	}
	assert.Equal(t, types.Command{Fan: true, Light: true, Resistor: true}, c.State())
}

func TestApplyIsIdempotent(t *testing.T) {
	for _, prior := range []string{"000", "111", "010", "101"} {
		c, lines := newTestController()
		_, err := c.Apply([]byte(prior))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := c.Apply([]byte("110"))
			require.NoError(t, err)
			assert.Equal(t, [3]int{1, 1, 0}, values(lines), "prior %s", prior)
		}
	}
}

func TestApplyWritesUnconditionally(t *testing.T) {
	c, lines := newTestController()
	for i := 0; i < 4; i++ {
		_, err := c.Apply([]byte("000"))
		require.NoError(t, err)
	}
	for _, l := range lines {
		assert.Equal(t, 4, l.writes)
	}
}

func TestApplyContinuesPastFailedLine(t *testing.T) {
	c, lines := newTestController()
	lines[1].err = errors.New("line busy")

	n, err := c.Apply([]byte("111"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "light")
	assert.Equal(t, CommandLen, n)
	assert.Equal(t, 1, lines[0].value)
	assert.Equal(t, 1, lines[2].value)
}
