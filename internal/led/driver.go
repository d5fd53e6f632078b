// Package led contains the driver sinks that push a composed frame to
// physical LEDs (or a stand-in). A sink failure never stops the
// pipeline; the consumer logs it and moves to the next frame.
package led

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes a flat RGB frame at a global brightness (0-255).
	// len(rgb) must be 3*N for a sink driving N LEDs.
	Write(rgb []byte, brightness uint8) error
	// Close releases resources.
	Close() error
}

// scaled returns rgb with the global brightness applied per byte.
// Brightness 255 returns the input unchanged.
func scaled(rgb []byte, brightness uint8) []byte {
	if brightness == 255 {
		return rgb
	}
	out := make([]byte, len(rgb))
	for i, v := range rgb {
		out[i] = byte(uint16(v) * uint16(brightness) / 255)
	}
	return out
}
