package renderer

import (
	"image/color"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

// Cell is one grid cell of a text rendering.
type Cell struct {
	Glyph string
	Color color.RGBA
	// Blank cells are drawn as a space.
	Blank bool
}

// TextStyle reports whether st renders as glyphs, so a terminal can show the
// grid directly instead of a raster.
func TextStyle(st *effects.Style) bool {
	if st == nil {
		return false
	}
	switch st.Kind {
	case effects.ASCII, effects.Matrix, effects.Emoji:
		return true
	}
	return false
}

// Cells returns the glyph Draw would place in every grid cell, row-major.
// It returns nil for styles that are not glyph based.
func (r *Renderer) Cells(grid *frame.Buffer, st *effects.Style, tick int) []Cell {
	if grid.Empty() || !TextStyle(st) {
		return nil
	}
	out := make([]Cell, 0, grid.Width*grid.Height)

	if st.Kind == effects.Emoji {
		p := r.Palettes.Request(st.Palette)
		if p.Ready() {
			r.lastPalette = p
		} else if r.lastPalette != nil {
			p = r.lastPalette
		}
		for i := 0; i+3 < len(grid.Pix); i += 4 {
			c := color.RGBA{grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2], 255}
			out = append(out, Cell{Glyph: p.Nearest(c.R, c.G, c.B), Color: c})
		}
		return out
	}

	pick := textPicker(st, tick)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Offset(x, y)
			ch, col, ok := pick(x, y, color.RGBA{grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2], 255})
			out = append(out, Cell{Glyph: string(ch), Color: col, Blank: !ok})
		}
	}
	return out
}
