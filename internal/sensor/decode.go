package sensor

// FrameLen is the size of one ADC conversion frame clocked out of the bus.
const FrameLen = 4

// The converter's 12 data bits sit at bits 17..28 of the 32-bit frame.
// dataMask and dataShift describe the same window and change together.
const (
	dataMask  uint32 = 0x1FFE0000
	dataShift        = 17
)

// MaxTemperature is the largest raw value Decode can return.
const MaxTemperature = dataMask >> dataShift

// Decode assembles a frame most significant byte first and extracts the
// right-aligned 12-bit conversion result.
func Decode(frame [FrameLen]byte) uint16 {
	var acc uint32
	for i := 0; i < FrameLen-1; i++ {
		acc += uint32(frame[i])
		acc <<= 8
	}
	acc += uint32(frame[FrameLen-1])

	return uint16((acc & dataMask) >> dataShift)
}
