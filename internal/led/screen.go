package led

import (
	"fmt"

	"periph.io/x/extra/devices/screen"
)

// Screen renders the LED chain as ANSI color blocks in the terminal,
// for bring-up on machines without SPI hardware.
type Screen struct {
	dev    *screen.Dev
	pixels int
}

// NewScreen returns a terminal sink for pixels LEDs.
func NewScreen(pixels int) *Screen {
	return &Screen{dev: screen.New(pixels), pixels: pixels}
}

func (s *Screen) Write(rgb []byte, brightness uint8) error {
	if len(rgb) != s.pixels*3 {
		return fmt.Errorf("rgb length %d does not match %d pixels", len(rgb), s.pixels)
	}
	if _, err := s.dev.Write(scaled(rgb, brightness)); err != nil {
		return fmt.Errorf("screen write: %w", err)
	}
	return nil
}

func (s *Screen) Close() error {
	return s.dev.Halt()
}
