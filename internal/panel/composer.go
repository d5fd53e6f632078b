package panel

import (
	"fmt"

	"github.com/example/panelgrid/internal/frame"
	"github.com/example/panelgrid/internal/layout"
)

// Composer owns the set of panels for a validated layout and routes
// canvas coordinates to the owning panel. Placement rectangles are
// disjoint by construction (the layout validator rejects overlapping
// grid positions).
type Composer struct {
	panels []*Panel
	width  int
	height int
}

// NewComposer builds panels at their grid offsets. The layout must
// already be validated.
func NewComposer(l *layout.Layout) *Composer {
	c := &Composer{}
	c.width, c.height = l.Dimensions()
	for _, spec := range l.Panels {
		c.panels = append(c.panels, NewPanel(
			spec,
			l.Grid.PanelWidth,
			l.Grid.PanelHeight,
			spec.Position[0]*l.Grid.PanelWidth,
			spec.Position[1]*l.Grid.PanelHeight,
		))
	}
	return c
}

// Dimensions returns the canvas size in pixels.
func (c *Composer) Dimensions() (width, height int) { return c.width, c.height }

// LEDCount returns the number of physical LEDs across all panels.
func (c *Composer) LEDCount() int {
	n := 0
	for _, p := range c.panels {
		n += p.Width * p.Height
	}
	return n
}

// Panels returns the panels in iteration order.
func (c *Composer) Panels() []*Panel { return c.panels }

// SetPixel writes a canvas pixel to the owning panel. Writes outside
// every panel rectangle are ignored, the same as drawing off-canvas.
func (c *Composer) SetPixel(x, y int, r, g, b byte) {
	for _, p := range c.panels {
		if p.contains(x, y) {
			p.SetPixel(x-p.XOffset, y-p.YOffset, r, g, b)
			return
		}
	}
}

// PixelAt reads a canvas pixel through the owning panel's transform.
func (c *Composer) PixelAt(x, y int) (r, g, b byte) {
	for _, p := range c.panels {
		if p.contains(x, y) {
			return p.PixelAt(x-p.XOffset, y-p.YOffset)
		}
	}
	return 0, 0, 0
}

// ApplyFrame routes a canvas-sized frame into the panel buffers. The
// frame dimensions must match the canvas.
func (c *Composer) ApplyFrame(f *frame.Frame) error {
	if f.Width != c.width || f.Height != c.height {
		return fmt.Errorf("frame is %dx%d, canvas is %dx%d",
			f.Width, f.Height, c.width, c.height)
	}
	for _, p := range c.panels {
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				r, g, b := f.At(p.XOffset+x, p.YOffset+y)
				p.SetPixel(x, y, r, g, b)
			}
		}
	}
	return nil
}

// CombinedBuffer assembles the panel buffers back into one canvas-sized
// frame, copying each panel into its placement rectangle in iteration
// order.
func (c *Composer) CombinedBuffer() *frame.Frame {
	out := frame.New(c.width, c.height)
	for _, p := range c.panels {
		for y := 0; y < p.Height; y++ {
			src := p.buf[y*p.Width*3 : (y+1)*p.Width*3]
			di := ((p.YOffset+y)*c.width + p.XOffset) * 3
			copy(out.Pix[di:di+len(src)], src)
		}
	}
	return out
}

// LEDBuffer returns the flat panel-order RGB buffer handed to the
// driver sink: each panel's buffer concatenated in iteration order,
// led_count*3 bytes total.
func (c *Composer) LEDBuffer() []byte {
	out := make([]byte, 0, c.LEDCount()*3)
	for _, p := range c.panels {
		out = append(out, p.buf...)
	}
	return out
}

// ClearAll zeroes every panel buffer.
func (c *Composer) ClearAll() {
	for _, p := range c.panels {
		p.Clear()
	}
}
