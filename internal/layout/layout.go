// Package layout describes the physical arrangement of LED matrix
// panels: a grid of equally sized panels, each installed at a grid cell
// with a right-angle rotation. A validated layout is immutable for the
// lifetime of a running pipeline.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rotations accepted for an installed panel, in degrees clockwise.
var ValidRotations = [4]int{0, 90, 180, 270}

type Grid struct {
	GridWidth   int `json:"grid_width"`
	GridHeight  int `json:"grid_height"`
	PanelWidth  int `json:"panel_width"`
	PanelHeight int `json:"panel_height"`
}

// PanelSpec places one panel at a grid cell. Position is [column, row].
type PanelSpec struct {
	ID       int    `json:"id"`
	Position [2]int `json:"position"`
	Rotation int    `json:"rotation"`
}

type Layout struct {
	Grid   Grid        `json:"grid"`
	Panels []PanelSpec `json:"panels"`
}

// Load reads and validates a layout JSON file. An invalid layout is
// fatal to pipeline startup; callers must not attempt partial recovery.
func Load(path string) (*Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes and validates a layout JSON document.
func Parse(b []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks the layout invariants and returns the first violated
// rule. Checks run in a fixed order so error text is deterministic.
func (l *Layout) Validate() error {
	for _, d := range []struct {
		name string
		v    int
	}{
		{"grid_width", l.Grid.GridWidth},
		{"grid_height", l.Grid.GridHeight},
		{"panel_width", l.Grid.PanelWidth},
		{"panel_height", l.Grid.PanelHeight},
	} {
		if d.v <= 0 {
			return fmt.Errorf("grid %q must be a positive integer", d.name)
		}
	}

	if len(l.Panels) == 0 {
		return fmt.Errorf("layout must have at least one panel")
	}

	ids := make(map[int]bool, len(l.Panels))
	for _, p := range l.Panels {
		if ids[p.ID] {
			return fmt.Errorf("duplicate panel id %d", p.ID)
		}
		ids[p.ID] = true
	}

	for i, p := range l.Panels {
		if p.ID < 0 {
			return fmt.Errorf("panel %d: id must be a non-negative integer", i)
		}
		x, y := p.Position[0], p.Position[1]
		if x < 0 || y < 0 {
			return fmt.Errorf("panel %d: position coordinates must be non-negative", i)
		}
		if x >= l.Grid.GridWidth || y >= l.Grid.GridHeight {
			return fmt.Errorf("panel %d: position [%d,%d] exceeds grid dimensions", i, x, y)
		}
		if !validRotation(p.Rotation) {
			return fmt.Errorf("panel %d: rotation must be one of %v", i, ValidRotations)
		}
	}

	seen := make(map[[2]int]bool, len(l.Panels))
	for _, p := range l.Panels {
		if seen[p.Position] {
			return fmt.Errorf("panels have overlapping positions at [%d,%d]",
				p.Position[0], p.Position[1])
		}
		seen[p.Position] = true
	}

	return nil
}

func validRotation(r int) bool {
	for _, v := range ValidRotations {
		if r == v {
			return true
		}
	}
	return false
}

// Dimensions returns the total canvas size in pixels.
func (l *Layout) Dimensions() (width, height int) {
	return l.Grid.GridWidth * l.Grid.PanelWidth,
		l.Grid.GridHeight * l.Grid.PanelHeight
}

// LEDCount returns the total number of physical LEDs.
func (l *Layout) LEDCount() int {
	return len(l.Panels) * l.Grid.PanelWidth * l.Grid.PanelHeight
}
