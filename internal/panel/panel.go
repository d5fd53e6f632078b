// Package panel owns the per-panel pixel buffers and presents them as
// one addressable canvas. It is a pure geometric transform layer: no
// I/O, no locking, touched only by the pipeline consumer goroutine.
package panel

import "github.com/example/panelgrid/internal/layout"

// Panel is a single addressable matrix module. The buffer is stored in
// effective orientation: width and height swap when the panel is
// installed rotated 90 or 270 degrees.
type Panel struct {
	ID       int
	Rotation int

	// nominal, unrotated dimensions
	nomWidth  int
	nomHeight int

	// effective dimensions and canvas placement
	Width   int
	Height  int
	XOffset int
	YOffset int

	buf []byte
}

// NewPanel builds a panel from its spec and pixel dimensions. Offsets
// are in canvas pixels.
func NewPanel(spec layout.PanelSpec, width, height, xOffset, yOffset int) *Panel {
	p := &Panel{
		ID:        spec.ID,
		Rotation:  spec.Rotation,
		nomWidth:  width,
		nomHeight: height,
		Width:     width,
		Height:    height,
		XOffset:   xOffset,
		YOffset:   yOffset,
	}
	if p.Rotation == 90 || p.Rotation == 270 {
		p.Width, p.Height = height, width
	}
	p.buf = make([]byte, p.Width*p.Height*3)
	return p
}

// rotate maps a nominal panel-local coordinate to its buffer cell.
// Origin is the panel's unrotated top-left.
func (p *Panel) rotate(x, y int) (int, int) {
	switch p.Rotation {
	case 90:
		return y, p.nomWidth - 1 - x
	case 180:
		return p.nomWidth - 1 - x, p.nomHeight - 1 - y
	case 270:
		return p.nomHeight - 1 - y, x
	default:
		return x, y
	}
}

// SetPixel writes a panel-local pixel through the rotation transform.
// Transformed coordinates outside the effective bounds are ignored.
func (p *Panel) SetPixel(x, y int, r, g, b byte) {
	rx, ry := p.rotate(x, y)
	if rx < 0 || rx >= p.Width || ry < 0 || ry >= p.Height {
		return
	}
	i := (ry*p.Width + rx) * 3
	p.buf[i], p.buf[i+1], p.buf[i+2] = r, g, b
}

// PixelAt reads a panel-local pixel through the same transform as
// SetPixel. Out-of-bounds reads return black.
func (p *Panel) PixelAt(x, y int) (r, g, b byte) {
	rx, ry := p.rotate(x, y)
	if rx < 0 || rx >= p.Width || ry < 0 || ry >= p.Height {
		return 0, 0, 0
	}
	i := (ry*p.Width + rx) * 3
	return p.buf[i], p.buf[i+1], p.buf[i+2]
}

// Fill sets every pixel of the panel to one color.
func (p *Panel) Fill(r, g, b byte) {
	for i := 0; i < len(p.buf); i += 3 {
		p.buf[i], p.buf[i+1], p.buf[i+2] = r, g, b
	}
}

// Clear zeroes the panel buffer.
func (p *Panel) Clear() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// contains reports whether the canvas coordinate falls inside the
// panel's placement rectangle.
func (p *Panel) contains(x, y int) bool {
	return x >= p.XOffset && x < p.XOffset+p.Width &&
		y >= p.YOffset && y < p.YOffset+p.Height
}
