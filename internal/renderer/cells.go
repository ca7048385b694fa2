package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

// ASCIIRamp orders characters from dark to bright.
const ASCIIRamp = " .:-=+*#%@"

const (
	matrixThreshold = 20
	// kappa places cubic control points for a quarter circle.
	kappa = 0.5522847498
)

// Renderer draws style cells onto the output canvas. It caches scaled glyph
// masks and mesh geometry between frames; a Renderer must not be used from
// more than one goroutine at a time.
type Renderer struct {
	Palettes *PaletteCache

	glyphs map[glyphKey]*image.Alpha
	raster *vector.Rasterizer
	mesh   meshCache
	// lastPalette is the most recent ready emoji palette, used while a
	// newly selected one is still generating.
	lastPalette *Palette
}

type glyphKey struct {
	ch   rune
	size int
}

// New returns a renderer drawing emoji from palettes.
func New(palettes *PaletteCache) *Renderer {
	if palettes == nil {
		palettes = NewPaletteCache(nil)
	}
	return &Renderer{
		Palettes: palettes,
		glyphs:   make(map[glyphKey]*image.Alpha),
		raster:   vector.NewRasterizer(1, 1),
	}
}

// Draw renders the cols×rows grid buffer onto canvas in the given style.
// tick seeds the matrix glyph choice so repeated renders of one frame match.
func (r *Renderer) Draw(canvas, grid *frame.Buffer, st *effects.Style, tick int) {
	if canvas.Empty() || grid.Empty() || st == nil {
		return
	}
	canvas.Fill(0, 0, 0, 255)
	switch st.Kind {
	case effects.Pixelate:
		drawStandard(canvas, grid)
	case effects.Halftone:
		r.drawHalftone(canvas, grid, st.DotScale)
	case effects.Mesh3D:
		r.drawMesh(canvas, grid, st)
	case effects.Emoji:
		r.drawEmoji(canvas, grid, st.Palette)
	case effects.ASCII, effects.Matrix:
		r.drawText(canvas, grid, textPicker(st, tick))
	}
}

// textPicker returns the glyph choice for the text styles. Matrix randomness
// is seeded from tick and consumed once per cell in row-major order.
func textPicker(st *effects.Style, tick int) glyphFunc {
	if st.Kind == effects.Matrix {
		rng := rand.New(rand.NewSource(int64(tick)))
		return func(_, _ int, c color.RGBA) (rune, color.RGBA, bool) {
			ch := '0'
			if rng.Float64() > 0.5 {
				ch = '1'
			}
			b := (int(c.R) + int(c.G) + int(c.B)) / 3
			return ch, color.RGBA{0, uint8(b), 0, 255}, b > matrixThreshold
		}
	}
	return func(_, _ int, c color.RGBA) (rune, color.RGBA, bool) {
		b := (int(c.R) + int(c.G) + int(c.B)) / 3
		ch := rune(ASCIIRamp[int(float64(b)/255*float64(len(ASCIIRamp)-1))])
		if !st.Colored {
			c = color.RGBA{255, 255, 255, 255}
		}
		return ch, c, ch != ' '
	}
}

// cellRect returns the canvas rectangle of cell (x, y), floored at the
// origin and ceiled in size so neighbouring cells leave no seams.
func cellRect(x, y int, cw, ch float64) image.Rectangle {
	x0, y0 := int(float64(x)*cw), int(float64(y)*ch)
	return image.Rect(x0, y0, x0+int(math.Ceil(cw)), y0+int(math.Ceil(ch)))
}

func drawStandard(canvas, grid *frame.Buffer) {
	cw := float64(canvas.Width) / float64(grid.Width)
	ch := float64(canvas.Height) / float64(grid.Height)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Offset(x, y)
			fillCell(canvas, cellRect(x, y, cw, ch), grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2])
		}
	}
}

func fillCell(canvas *frame.Buffer, r image.Rectangle, cr, cg, cb uint8) {
	r = r.Intersect(image.Rect(0, 0, canvas.Width, canvas.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := canvas.Offset(x, y)
			canvas.Pix[i], canvas.Pix[i+1], canvas.Pix[i+2], canvas.Pix[i+3] = cr, cg, cb, 255
		}
	}
}

// glyphFunc chooses the character and colour for one cell; draw=false skips it.
type glyphFunc func(x, y int, c color.RGBA) (ch rune, col color.RGBA, draw bool)

func (r *Renderer) drawText(canvas, grid *frame.Buffer, pick glyphFunc) {
	size := FontSize(grid.Width, grid.Height, canvas.Width, canvas.Height)
	if size < 1 {
		return
	}
	cw := float64(canvas.Width) / float64(grid.Width)
	ch := float64(canvas.Height) / float64(grid.Height)
	dst := canvas.Image()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Offset(x, y)
			c := color.RGBA{grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2], 255}
			glyph, col, ok := pick(x, y, c)
			if !ok {
				continue
			}
			mask := r.glyph(glyph, size)
			cx := int(float64(x)*cw + cw/2)
			cy := int(float64(y)*ch + ch/2)
			b := mask.Bounds()
			at := image.Rect(cx-b.Dx()/2, cy-b.Dy()/2, cx-b.Dx()/2+b.Dx(), cy-b.Dy()/2+b.Dy())
			draw.DrawMask(dst, at, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
		}
	}
}

var (
	baseGlyphsMu sync.Mutex
	baseGlyphs   = map[rune]*image.Alpha{}
)

// baseGlyph rasterizes ch once at the bitmap font's native size.
func baseGlyph(ch rune) *image.Alpha {
	baseGlyphsMu.Lock()
	defer baseGlyphsMu.Unlock()
	if m, ok := baseGlyphs[ch]; ok {
		return m
	}
	face := basicfont.Face7x13
	met := face.Metrics()
	adv, ok := face.GlyphAdvance(ch)
	if !ok {
		adv, _ = face.GlyphAdvance('?')
	}
	m := image.NewAlpha(image.Rect(0, 0, max(1, adv.Ceil()), (met.Ascent + met.Descent).Ceil()))
	d := font.Drawer{Dst: m, Src: image.Opaque, Face: face, Dot: fixed.Point26_6{Y: met.Ascent}}
	d.DrawString(string(ch))
	baseGlyphs[ch] = m
	return m
}

// glyph returns ch scaled to size pixels tall.
func (r *Renderer) glyph(ch rune, size int) *image.Alpha {
	key := glyphKey{ch, size}
	if m, ok := r.glyphs[key]; ok {
		return m
	}
	src := baseGlyph(ch)
	sb := src.Bounds()
	w := max(1, int(math.Round(float64(sb.Dx())*float64(size)/float64(sb.Dy()))))
	m := image.NewAlpha(image.Rect(0, 0, w, size))
	xdraw.NearestNeighbor.Scale(m, m.Bounds(), src, sb, xdraw.Src, nil)
	r.glyphs[key] = m
	return m
}

func (r *Renderer) drawHalftone(canvas, grid *frame.Buffer, dotScale float64) {
	cw := float64(canvas.Width) / float64(grid.Width)
	ch := float64(canvas.Height) / float64(grid.Height)
	maxRadius := min(cw, ch) / 2 * dotScale
	dst := canvas.Image()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Offset(x, y)
			cr, cg, cb := grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2]
			radius := float64(int(cr)+int(cg)+int(cb)) / 3 / 255 * maxRadius
			if radius <= 0.5 {
				continue
			}
			r.fillCircle(dst, float64(x)*cw+cw/2, float64(y)*ch+ch/2, radius, color.RGBA{cr, cg, cb, 255})
		}
	}
}

// fillCircle rasterizes an anti-aliased disc in a bounding box around (cx, cy).
func (r *Renderer) fillCircle(dst draw.Image, cx, cy, radius float64, c color.RGBA) {
	box := image.Rect(
		int(math.Floor(cx-radius)), int(math.Floor(cy-radius)),
		int(math.Ceil(cx+radius))+1, int(math.Ceil(cy+radius))+1,
	)
	clip := box.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	r.raster.Reset(box.Dx(), box.Dy())
	ox, oy := float32(cx)-float32(box.Min.X), float32(cy)-float32(box.Min.Y)
	rad, k := float32(radius), float32(radius*kappa)
	r.raster.MoveTo(ox+rad, oy)
	r.raster.CubeTo(ox+rad, oy+k, ox+k, oy+rad, ox, oy+rad)
	r.raster.CubeTo(ox-k, oy+rad, ox-rad, oy+k, ox-rad, oy)
	r.raster.CubeTo(ox-rad, oy-k, ox-k, oy-rad, ox, oy-rad)
	r.raster.CubeTo(ox+k, oy-rad, ox+rad, oy-k, ox+rad, oy)
	r.raster.ClosePath()
	r.drawRaster(dst, box, clip, c)
}

// drawRaster composites the rasterizer's coverage for box onto dst, clipped.
func (r *Renderer) drawRaster(dst draw.Image, box, clip image.Rectangle, c color.RGBA) {
	if clip == box {
		r.raster.Draw(dst, box, image.NewUniform(c), image.Point{})
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	r.raster.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, clip, image.NewUniform(c), image.Point{}, mask, clip.Min.Sub(box.Min), draw.Over)
}
