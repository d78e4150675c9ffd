package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"greenhouse-service/internal/types"
)

func TestDecodeExamples(t *testing.T) {
	tests := []struct {
		name  string
		frame [FrameLen]byte
		want  uint16
	}{
		{"msb only below window", [FrameLen]byte{0x01, 0x00, 0x00, 0x00}, 0},
		{"middle bytes", [FrameLen]byte{0x00, 0xFF, 0xFF, 0x00}, 127},
		{"all ones", [FrameLen]byte{0xFF, 0xFF, 0xFF, 0xFF}, 4095},
		{"all zeros", [FrameLen]byte{}, 0},
		{"lowest data bit", [FrameLen]byte{0x00, 0x02, 0x00, 0x00}, 1},
		{"below lowest data bit", [FrameLen]byte{0x00, 0x01, 0xFF, 0xFF}, 0},
		{"highest data bit", [FrameLen]byte{0x10, 0x00, 0x00, 0x00}, 2048},
		{"above window", [FrameLen]byte{0xE0, 0x00, 0x00, 0x00}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.frame))
		})
	}
}

func TestDecodeMatchesReferenceFormula(t *testing.T) {
	for b0 := 0; b0 < 256; b0++ {
		for b1 := 0; b1 < 256; b1++ {
			for _, tail := range [][2]byte{{0x00, 0x00}, {0xA5, 0x5A}, {0xFF, 0xFF}} {
				frame := [FrameLen]byte{byte(b0), byte(b1), tail[0], tail[1]}
				acc := uint32(b0)<<24 | uint32(b1)<<16 | uint32(tail[0])<<8 | uint32(tail[1])
				want := uint16((acc & 0x1FFE0000) >> 17)

				got := Decode(frame)
				if got != want {
					t.Fatalf("Decode(% x) = %d, want %d", frame[:], got, want)
				}
				if uint32(got) > MaxTemperature {
					t.Fatalf("Decode(% x) = %d out of range", frame[:], got)
				}
			}
		}
	}
}

func TestFormatSample(t *testing.T) {
	assert.Equal(t, "127 \t 1\n", FormatSample(types.Sample{Temperature: 127, Light: true}))
	assert.Equal(t, "0 \t 0\n", FormatSample(types.Sample{}))
	assert.Equal(t, "4095 \t 0\n", FormatSample(types.Sample{Temperature: 4095}))

	dst := AppendSample([]byte("> "), types.Sample{Temperature: 42})
	assert.Equal(t, "> 42 \t 0\n", string(dst))
}
