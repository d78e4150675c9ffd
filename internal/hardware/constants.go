package hardware

import (
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"greenhouse-service/internal/types"
)

const (
	DefaultGpioChip = "gpiochip0"

	// The temperature ADC sits on the second SPI controller, chip select 0.
	DefaultSPIPort  = "SPI1.0"
	DefaultSPISpeed = physic.MegaHertz
	DefaultSPIMode  = spi.Mode0
	SPIBitsPerWord  = 8

	DefaultNodeDir = "/run/greenhouse"
)

// Output lines in command order: fan, light, resistor.
var OutputLines = [3]types.LineDescriptor{
	{Offset: 2, Dir: types.DirectionOutput, Initial: false, Label: "FAN"},
	{Offset: 4, Dir: types.DirectionOutput, Initial: false, Label: "LIGHT"},
	{Offset: 5, Dir: types.DirectionOutput, Initial: false, Label: "RESISTOR"},
}

var LightStatusLine = types.LineDescriptor{
	Offset: 1,
	Dir:    types.DirectionInput,
	Label:  "LIGHT_STATUS",
}
