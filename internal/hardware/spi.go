package hardware

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"greenhouse-service/internal/logger"
)

// BusHandle is an attached bus device.
type BusHandle interface {
	Tx(w, r []byte) error
	Close() error
}

type BusAttacher interface {
	Attach(ctx context.Context) (BusHandle, error)
}

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// SPIAttacher opens an spidev port through periph's registry.
type SPIAttacher struct {
	logger *logger.Logger
	port   string
	speed  physic.Frequency
	mode   spi.Mode
}

func NewSPIAttacher(port string, speed physic.Frequency, l *logger.Logger) *SPIAttacher {
	return &SPIAttacher{
		logger: l,
		port:   port,
		speed:  speed,
		mode:   DefaultSPIMode,
	}
}

// Attach fails while the port is not registered yet; callers retry.
func (a *SPIAttacher) Attach(ctx context.Context) (BusHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}

	port, err := spireg.Open(a.port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", a.port, err)
	}
	conn, err := port.Connect(a.speed, a.mode, SPIBitsPerWord)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect SPI port %s: %w", a.port, err)
	}

	a.logger.Infof("Attached SPI port %s at %s", a.port, a.speed)
	return &spiHandle{port: port, conn: conn}, nil
}

type spiHandle struct {
	port spi.PortCloser
	conn spi.Conn
}

func (h *spiHandle) Tx(w, r []byte) error {
	return h.conn.Tx(w, r)
}

func (h *spiHandle) Close() error {
	return h.port.Close()
}
