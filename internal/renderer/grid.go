// Package renderer draws the glyph-grid output of style effects and fits
// raster frames onto the output canvas.
package renderer

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

const (
	// EmojiCharAspect keeps emoji cells square.
	EmojiCharAspect = 1.0
	// TextCharAspect compensates for glyphs being taller than they are wide.
	TextCharAspect = 0.6

	meshSegmentsPerDensity = 50
)

// Grid returns the cell grid a style renders at for a w×h source. ok is false
// when either dimension would be below one cell, in which case the caller
// falls back to raster output.
func Grid(st *effects.Style, w, h int) (cols, rows int, ok bool) {
	if st == nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	if st.Kind == effects.Mesh3D {
		// One texel per plane vertex.
		n := max(1, st.MeshDensity)*meshSegmentsPerDensity + 1
		return n, n, true
	}
	charAspect := TextCharAspect
	if st.Kind == effects.Emoji {
		charAspect = EmojiCharAspect
	}
	cols = st.Density
	rows = int(float64(cols) * (float64(h) / float64(w)) * charAspect)
	return cols, rows, cols >= 1 && rows >= 1
}

// FontSize is the glyph height for a cols×rows grid on a w×h canvas.
func FontSize(cols, rows, w, h int) int {
	if cols <= 0 || rows <= 0 {
		return 0
	}
	return int(min(float64(w)/float64(cols), float64(h)/float64(rows)))
}

// Resample scales src into a new cols×rows buffer with an area-style filter.
func Resample(src *frame.Buffer, cols, rows int) *frame.Buffer {
	dst := frame.New(cols, rows)
	if dst.Empty() || src.Empty() {
		return dst
	}
	xdraw.ApproxBiLinear.Scale(dst.Image(), dst.Image().Rect, src.Image(), src.Image().Rect, xdraw.Src, nil)
	return dst
}

// Fit letterboxes src onto dst: black background, aspect-preserving scale,
// centered. Same-sized buffers are copied directly.
func Fit(dst, src *frame.Buffer) {
	if dst.Empty() {
		return
	}
	if dst.CopyFrom(src) {
		return
	}
	dst.Fill(0, 0, 0, 255)
	if src.Empty() {
		return
	}
	scale := min(float64(dst.Width)/float64(src.Width), float64(dst.Height)/float64(src.Height))
	dw, dh := int(float64(src.Width)*scale), int(float64(src.Height)*scale)
	x, y := (dst.Width-dw)/2, (dst.Height-dh)/2
	r := image.Rect(x, y, x+dw, y+dh)
	if r.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(dst.Image(), r, src.Image(), src.Image().Rect, draw.Src, nil)
}
