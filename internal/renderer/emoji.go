package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/framefx/internal/frame"
)

// TileSize is the edge of the square each glyph is analysed on.
const TileSize = 32

// alphaCutoff excludes near-transparent antialiasing from colour averages.
const alphaCutoff = 10

// GlyphRasterizer paints one palette glyph onto a transparent square tile.
type GlyphRasterizer interface {
	Rasterize(s Swatch, size int) *image.RGBA
}

// SwatchRasterizer paints each glyph as a disc of its nominal colour.
type SwatchRasterizer struct{}

// Rasterize implements GlyphRasterizer.
func (SwatchRasterizer) Rasterize(s Swatch, size int) *image.RGBA {
	tile := image.NewRGBA(image.Rect(0, 0, size, size))
	z := vector.NewRasterizer(size, size)
	c, rad := float32(size)/2, float32(size)*0.4
	k := rad * kappa
	z.MoveTo(c+rad, c)
	z.CubeTo(c+rad, c+k, c+k, c+rad, c, c+rad)
	z.CubeTo(c-k, c+rad, c-rad, c+k, c-rad, c)
	z.CubeTo(c-rad, c-k, c-k, c-rad, c, c-rad)
	z.CubeTo(c+k, c-rad, c+rad, c-k, c+rad, c)
	z.ClosePath()
	z.Draw(tile, tile.Bounds(), image.NewUniform(s.Color), image.Point{})
	return tile
}

// FontRasterizer draws real glyph outlines from an OpenType font, filled with
// the swatch colour. Glyphs the font lacks fall back to the swatch disc.
type FontRasterizer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[int]font.Face
}

// LoadFontRasterizer parses a TTF or OTF file.
func LoadFontRasterizer(path string) (*FontRasterizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emoji font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse emoji font %s: %w", path, err)
	}
	return &FontRasterizer{font: f, faces: make(map[int]font.Face)}, nil
}

func (r *FontRasterizer) face(size int) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: float64(size) * 0.8, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	r.faces[size] = f
	return f, nil
}

// Rasterize implements GlyphRasterizer.
func (r *FontRasterizer) Rasterize(s Swatch, size int) *image.RGBA {
	face, err := r.face(size)
	if err != nil {
		return SwatchRasterizer{}.Rasterize(s, size)
	}
	bounds, adv := font.BoundString(face, s.Glyph)
	if adv == 0 || (bounds.Max.X-bounds.Min.X) <= 0 {
		return SwatchRasterizer{}.Rasterize(s, size)
	}
	tile := image.NewRGBA(image.Rect(0, 0, size, size))
	// Center the ink box on the tile.
	w, h := bounds.Max.X-bounds.Min.X, bounds.Max.Y-bounds.Min.Y
	dot := fixed.Point26_6{
		X: fixed.I(size)/2 - w/2 - bounds.Min.X,
		Y: fixed.I(size)/2 - h/2 - bounds.Min.Y,
	}
	d := font.Drawer{Dst: tile, Src: image.NewUniform(s.Color), Face: face, Dot: dot}
	d.DrawString(s.Glyph)
	return tile
}

type paletteEntry struct {
	glyph   string
	r, g, b float64
	tile    *image.RGBA
}

// Palette is a generated nearest-colour table for one emoji set.
type Palette struct {
	Name string

	ready   atomic.Bool
	done    chan struct{}
	entries []paletteEntry
	scaled  map[int][]*image.RGBA
}

// Ready reports whether generation has finished.
func (p *Palette) Ready() bool { return p != nil && p.ready.Load() }

// Len returns the number of usable glyphs.
func (p *Palette) Len() int {
	if !p.Ready() {
		return 0
	}
	return len(p.entries)
}

func (p *Palette) nearest(r, g, b float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, e := range p.entries {
		dr, dg, db := e.r-r, e.g-g, e.b-b
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Nearest returns the glyph whose average colour is closest to (r, g, b), or
// Placeholder when the palette is not ready or empty.
func (p *Palette) Nearest(r, g, b uint8) string {
	if !p.Ready() || len(p.entries) == 0 {
		return Placeholder
	}
	return p.entries[p.nearest(float64(r), float64(g), float64(b))].glyph
}

// Average returns the analysed colour of glyph.
func (p *Palette) Average(glyph string) (color.RGBA, bool) {
	if !p.Ready() {
		return color.RGBA{}, false
	}
	for _, e := range p.entries {
		if e.glyph == glyph {
			return color.RGBA{uint8(e.r + 0.5), uint8(e.g + 0.5), uint8(e.b + 0.5), 255}, true
		}
	}
	return color.RGBA{}, false
}

// tiles returns every glyph tile scaled to size. Only the render goroutine
// calls this after Ready, so the cache needs no lock.
func (p *Palette) tiles(size int) []*image.RGBA {
	if t, ok := p.scaled[size]; ok {
		return t
	}
	out := make([]*image.RGBA, len(p.entries))
	for i, e := range p.entries {
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), e.tile, e.tile.Bounds(), xdraw.Src, nil)
		out[i] = dst
	}
	p.scaled[size] = out
	return out
}

// averageTile averages the straight-alpha colour of pixels above the cutoff.
func averageTile(tile *image.RGBA) (r, g, b float64, ok bool) {
	var n int
	for i := 0; i+3 < len(tile.Pix); i += 4 {
		a := tile.Pix[i+3]
		if a <= alphaCutoff {
			continue
		}
		// image.RGBA is premultiplied.
		k := 255 / float64(a)
		r += float64(tile.Pix[i]) * k
		g += float64(tile.Pix[i+1]) * k
		b += float64(tile.Pix[i+2]) * k
		n++
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return r / float64(n), g / float64(n), b / float64(n), true
}

// PaletteCache generates palettes on background goroutines and hands out
// ready ones to the render loop.
type PaletteCache struct {
	raster GlyphRasterizer

	mu       sync.Mutex
	palettes map[string]*Palette
}

// NewPaletteCache returns a cache using raster, or the swatch rasterizer when nil.
func NewPaletteCache(raster GlyphRasterizer) *PaletteCache {
	if raster == nil {
		raster = SwatchRasterizer{}
	}
	return &PaletteCache{raster: raster, palettes: make(map[string]*Palette)}
}

// Request returns the palette for name, starting generation if needed.
// Unknown names resolve to DefaultPalette.
func (c *PaletteCache) Request(name string) *Palette {
	if _, ok := PaletteSets[name]; !ok {
		if name != "" {
			logrus.WithFields(logrus.Fields{
				"function": "Request",
				"palette":  name,
			}).Warn("unknown emoji palette, using default")
		}
		name = DefaultPalette
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.palettes[name]; ok {
		return p
	}
	p := &Palette{Name: name, done: make(chan struct{}), scaled: make(map[int][]*image.RGBA)}
	c.palettes[name] = p
	go c.generate(p, PaletteSets[name])
	return p
}

func (c *PaletteCache) generate(p *Palette, set []Swatch) {
	defer close(p.done)
	entries := make([]paletteEntry, 0, len(set))
	for _, s := range set {
		tile := c.raster.Rasterize(s, TileSize)
		r, g, b, ok := averageTile(tile)
		if !ok {
			continue
		}
		entries = append(entries, paletteEntry{glyph: s.Glyph, r: r, g: g, b: b, tile: tile})
	}
	p.entries = entries
	p.ready.Store(true)

	logrus.WithFields(logrus.Fields{
		"function": "generate",
		"palette":  p.Name,
		"glyphs":   len(entries),
	}).Debug("emoji palette generated")
}

// Await blocks until the named palette is generated or ctx is done.
func (c *PaletteCache) Await(ctx context.Context, name string) (*Palette, error) {
	p := c.Request(name)
	select {
	case <-p.done:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drawEmoji paints the nearest glyph tile into every cell. While the selected
// palette is still generating the last ready palette is used; with none ready
// each cell shows the placeholder.
func (r *Renderer) drawEmoji(canvas, grid *frame.Buffer, name string) {
	p := r.Palettes.Request(name)
	if p.Ready() {
		r.lastPalette = p
	} else if r.lastPalette != nil {
		p = r.lastPalette
	}

	size := FontSize(grid.Width, grid.Height, canvas.Width, canvas.Height)
	if size < 1 {
		return
	}
	if p.Len() == 0 {
		r.drawText(canvas, grid, func(_, _ int, _ color.RGBA) (rune, color.RGBA, bool) {
			return '?', color.RGBA{255, 255, 255, 255}, true
		})
		return
	}

	tiles := p.tiles(size)
	cw := float64(canvas.Width) / float64(grid.Width)
	ch := float64(canvas.Height) / float64(grid.Height)
	dst := canvas.Image()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := grid.Offset(x, y)
			idx := p.nearest(float64(grid.Pix[i]), float64(grid.Pix[i+1]), float64(grid.Pix[i+2]))
			cx := int(float64(x)*cw+cw/2) - size/2
			cy := int(float64(y)*ch+ch/2) - size/2
			draw.Draw(dst, image.Rect(cx, cy, cx+size, cy+size), tiles[idx], image.Point{}, draw.Over)
		}
	}
}
