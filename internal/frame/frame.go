package frame

import (
	"encoding/binary"
	"fmt"
)

// Wire format of one datagram frame:
//
//	offset 0..4   magic "LEDF"
//	offset 4..6   width, uint16 big-endian
//	offset 6..8   height, uint16 big-endian
//	offset 8..    width*height*3 RGB bytes, row-major
const (
	Magic      = "LEDF"
	HeaderSize = 8
)

// Frame is one complete RGB image matching the canonical display
// dimensions. Pix is row-major, 3 bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New returns a zeroed frame of the given dimensions.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Solid returns a frame filled with one color.
func Solid(width, height int, r, g, b byte) *Frame {
	f := New(width, height)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
	return f
}

// Size returns the payload length in bytes.
func (f *Frame) Size() int { return f.Width * f.Height * 3 }

// At returns the color at (x, y). Out-of-range coordinates read black.
func (f *Frame) At(x, y int) (r, g, b byte) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return 0, 0, 0
	}
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// EncodeDatagram serializes the frame into one wire datagram.
func EncodeDatagram(f *Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Pix))
	copy(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(f.Width))
	binary.BigEndian.PutUint16(buf[6:8], uint16(f.Height))
	copy(buf[HeaderSize:], f.Pix)
	return buf
}

// DecodeDatagram parses one datagram into a frame. The decoded
// dimensions must match the expected canonical dimensions; any framing
// violation rejects the whole packet. One datagram is exactly one
// frame, there is no reassembly.
func DecodeDatagram(data []byte, expectWidth, expectHeight int) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too small: %d bytes", len(data))
	}
	if string(data[0:4]) != Magic {
		return nil, fmt.Errorf("invalid magic: %x", data[0:4])
	}
	width := int(binary.BigEndian.Uint16(data[4:6]))
	height := int(binary.BigEndian.Uint16(data[6:8]))
	if width != expectWidth || height != expectHeight {
		return nil, fmt.Errorf("invalid dimensions: %dx%d, expected %dx%d",
			width, height, expectWidth, expectHeight)
	}
	if len(data) != HeaderSize+width*height*3 {
		return nil, fmt.Errorf("invalid data size: %d bytes, expected %d",
			len(data)-HeaderSize, width*height*3)
	}
	f := &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
	copy(f.Pix, data[HeaderSize:])
	return f, nil
}

// FromBytes wraps a raw RGB payload of exactly width*height*3 bytes.
func FromBytes(data []byte, width, height int) (*Frame, error) {
	if len(data) != width*height*3 {
		return nil, fmt.Errorf("invalid data size: %d bytes, expected %d",
			len(data), width*height*3)
	}
	f := New(width, height)
	copy(f.Pix, data)
	return f, nil
}
