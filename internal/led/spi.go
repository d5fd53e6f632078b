package led

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// WS2812B NRZ timing: 800kHz refresh, expanded 3x over SPI plus margin.
const refreshRate physic.Frequency = 800

// SPI drives a WS2812B chain over spidev using the nrzled encoder.
type SPI struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	port   spi.PortCloser
	pixels int
}

// OpenSPI initializes the host, opens the named SPI port (empty string
// selects the first available) and wraps it for pixels LEDs.
func OpenSPI(dev string, pixels int) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi port: %w", err)
	}
	s, err := NewSPI(port, pixels)
	if err != nil {
		port.Close()
		return nil, err
	}
	s.port = port
	return s, nil
}

// NewSPI wraps an already-open SPI port. The port is not closed by
// Close unless the sink was built through OpenSPI.
func NewSPI(port spi.Port, pixels int) (*SPI, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", pixels)
	}
	opts := nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      ((refreshRate * 3) + 100) * physic.KiloHertz,
	}
	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &SPI{dev: dev, pixels: pixels}, nil
}

func (s *SPI) Write(rgb []byte, brightness uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return fmt.Errorf("spi sink closed")
	}
	if len(rgb) != s.pixels*3 {
		return fmt.Errorf("rgb length %d does not match %d pixels", len(rgb), s.pixels)
	}
	if _, err := s.dev.Write(scaled(rgb, brightness)); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	if s.port != nil {
		if cerr := s.port.Close(); err == nil {
			err = cerr
		}
		s.port = nil
	}
	return err
}
