package renderer

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

func compileStyle(t *testing.T, typ effects.Type, p effects.Params) *effects.Style {
	t.Helper()
	e, err := effects.Default.Compile(typ, p)
	require.NoError(t, err)
	st, ok := effects.AsStyle(e)
	require.True(t, ok)
	return st
}

func solid(w, h int, r, g, b uint8) *frame.Buffer {
	buf := frame.New(w, h)
	buf.Fill(r, g, b, 255)
	return buf
}

func TestGrid(t *testing.T) {
	tests := []struct {
		name       string
		typ        effects.Type
		density    float64
		w, h       int
		cols, rows int
		ok         bool
	}{
		{"ascii 16:9", effects.ASCII, 80, 1280, 720, 80, 27, true},
		{"emoji square cells", effects.Emoji, 48, 1280, 720, 48, 27, true},
		{"pixelate", effects.Pixelate, 64, 640, 480, 64, 28, true},
		{"degenerate rows", effects.Matrix, 1, 1920, 100, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := compileStyle(t, tt.typ, effects.Params{"density": tt.density})
			cols, rows, ok := Grid(st, tt.w, tt.h)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestGridMesh(t *testing.T) {
	st := compileStyle(t, effects.Mesh3D, effects.Params{"density": 1.0})
	cols, rows, ok := Grid(st, 640, 360)
	require.True(t, ok)
	assert.Equal(t, 51, cols)
	assert.Equal(t, 51, rows)
}

func TestFontSize(t *testing.T) {
	assert.Equal(t, 16, FontSize(80, 27, 1280, 720))
	assert.Zero(t, FontSize(0, 10, 100, 100))
}

func TestResample(t *testing.T) {
	src := solid(64, 48, 10, 200, 30)
	out := Resample(src, 8, 6)
	require.Equal(t, 8, out.Width)
	require.Equal(t, 6, out.Height)
	r, g, b, a := out.At(3, 3)
	assert.Equal(t, [4]uint8{10, 200, 30, 255}, [4]uint8{r, g, b, a})
}

func TestFitLetterboxes(t *testing.T) {
	src := solid(100, 100, 255, 255, 255)
	dst := frame.New(200, 100)
	Fit(dst, src)

	r, _, _, a := dst.At(10, 50)
	assert.Equal(t, uint8(0), r, "left bar is black")
	assert.Equal(t, uint8(255), a)
	r, _, _, _ = dst.At(100, 50)
	assert.Equal(t, uint8(255), r, "image is centered")
}

func TestFitSameSizeCopies(t *testing.T) {
	src := solid(4, 4, 1, 2, 3)
	dst := frame.New(4, 4)
	Fit(dst, src)
	assert.True(t, dst.Equal(src))
}

func TestDrawStandardFillsCells(t *testing.T) {
	grid := frame.New(2, 1)
	grid.Set(0, 0, 255, 0, 0, 255)
	grid.Set(1, 0, 0, 0, 255, 255)
	canvas := frame.New(10, 5)

	st := compileStyle(t, effects.Pixelate, nil)
	New(nil).Draw(canvas, grid, st, 0)

	r, _, b, _ := canvas.At(2, 2)
	assert.Equal(t, [2]uint8{255, 0}, [2]uint8{r, b})
	r, _, b, _ = canvas.At(7, 2)
	assert.Equal(t, [2]uint8{0, 255}, [2]uint8{r, b})
}

func TestDrawASCIIDarkCellsStayBlack(t *testing.T) {
	grid := solid(4, 2, 0, 0, 0)
	canvas := solid(40, 40, 9, 9, 9)
	st := compileStyle(t, effects.ASCII, nil)
	New(nil).Draw(canvas, grid, st, 0)
	assert.True(t, canvas.Equal(solid(40, 40, 0, 0, 0)), "space glyph draws nothing on the black background")
}

func TestDrawASCIIBrightCellsDrawGlyphs(t *testing.T) {
	grid := solid(2, 1, 255, 255, 255)
	canvas := frame.New(52, 26)
	st := compileStyle(t, effects.ASCII, nil)
	New(nil).Draw(canvas, grid, st, 0)
	assert.False(t, canvas.Equal(solid(52, 26, 0, 0, 0)))
}

func TestDrawMatrixIsGreenAndSeeded(t *testing.T) {
	grid := solid(8, 4, 200, 200, 200)
	st := compileStyle(t, effects.Matrix, nil)

	a := frame.New(160, 80)
	b := frame.New(160, 80)
	New(nil).Draw(a, grid, st, 7)
	New(nil).Draw(b, grid, st, 7)
	assert.True(t, a.Equal(b))

	lit := 0
	for i := 0; i < len(a.Pix); i += 4 {
		assert.Zero(t, a.Pix[i], "red channel")
		assert.Zero(t, a.Pix[i+2], "blue channel")
		if a.Pix[i+1] > 0 {
			lit++
		}
	}
	assert.Positive(t, lit)
}

func TestDrawMatrixSkipsDarkCells(t *testing.T) {
	grid := solid(8, 4, 15, 15, 15)
	st := compileStyle(t, effects.Matrix, nil)
	canvas := frame.New(160, 80)
	New(nil).Draw(canvas, grid, st, 1)
	assert.True(t, canvas.Equal(solid(160, 80, 0, 0, 0)))
}

func TestDrawHalftone(t *testing.T) {
	grid := frame.New(2, 1)
	grid.Set(0, 0, 255, 255, 255, 255)
	grid.Set(1, 0, 1, 1, 1, 255)
	canvas := frame.New(40, 20)

	st := compileStyle(t, effects.Halftone, nil)
	New(nil).Draw(canvas, grid, st, 0)

	r, _, _, _ := canvas.At(10, 10)
	assert.Greater(t, r, uint8(200), "bright cell draws a full dot")
	r, _, _, _ = canvas.At(30, 10)
	assert.Zero(t, r, "dark cell radius is under half a pixel")
	r, _, _, _ = canvas.At(0, 0)
	assert.Zero(t, r, "corners stay black")
}

func TestPaletteGeneration(t *testing.T) {
	cache := NewPaletteCache(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := cache.Await(ctx, "standard")
	require.NoError(t, err)
	require.True(t, p.Ready())
	assert.Equal(t, len(PaletteSets["standard"]), p.Len())

	assert.Equal(t, "⬛", p.Nearest(0, 0, 0))
	assert.Equal(t, "⬜", p.Nearest(255, 255, 255))

	avg, ok := p.Average("🟥")
	require.True(t, ok)
	assert.InDelta(t, 0xDD, int(avg.R), 2)
}

func TestPaletteUnknownFallsBack(t *testing.T) {
	cache := NewPaletteCache(nil)
	assert.Same(t, cache.Request(DefaultPalette), cache.Request("does-not-exist"))
}

func TestPalettePlaceholderWhenNotReady(t *testing.T) {
	var p *Palette
	assert.Equal(t, Placeholder, p.Nearest(1, 2, 3))
	assert.Equal(t, Placeholder, (&Palette{}).Nearest(1, 2, 3))
}

func TestAwaitHonoursContext(t *testing.T) {
	cache := NewPaletteCache(blockingRasterizer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Await(ctx, "nature")
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingRasterizer struct{}

func (blockingRasterizer) Rasterize(Swatch, int) *image.RGBA {
	select {}
}

func TestAverageTileIgnoresTransparent(t *testing.T) {
	tile := image.NewRGBA(image.Rect(0, 0, 2, 1))
	tile.SetRGBA(0, 0, color.RGBA{100, 50, 0, 255})
	tile.SetRGBA(1, 0, color.RGBA{5, 5, 5, 5})
	r, g, _, ok := averageTile(tile)
	require.True(t, ok)
	assert.InDelta(t, 100, r, 0.01)
	assert.InDelta(t, 50, g, 0.01)

	_, _, _, ok = averageTile(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.False(t, ok)
}

func TestDrawEmojiUsesTiles(t *testing.T) {
	cache := NewPaletteCache(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := cache.Await(ctx, "standard")
	require.NoError(t, err)

	grid := solid(2, 2, 0xDD, 0x2E, 0x44)
	canvas := frame.New(64, 64)
	st := compileStyle(t, effects.Emoji, nil)
	New(cache).Draw(canvas, grid, st, 0)

	r, g, _, _ := canvas.At(16, 16)
	assert.InDelta(t, 0xDD, int(r), 3)
	assert.InDelta(t, 0x2E, int(g), 3)
}

func TestDrawMeshModes(t *testing.T) {
	for _, mode := range []string{"mesh", "points", "solid"} {
		t.Run(mode, func(t *testing.T) {
			st := compileStyle(t, effects.Mesh3D, effects.Params{"mode": mode, "density": 1.0, "displacementScale": 0.0})
			cols, rows, ok := Grid(st, 320, 240)
			require.True(t, ok)
			grid := Resample(solid(320, 240, 180, 90, 40), cols, rows)

			canvas := frame.New(320, 240)
			New(nil).Draw(canvas, grid, st, 0)

			r, g, _, _ := canvas.At(160, 120)
			assert.Greater(t, r, uint8(100))
			assert.Greater(t, g, uint8(40))
			r, _, _, _ = canvas.At(0, 0)
			assert.Zero(t, r, "plane does not reach the corners")
		})
	}
}

func TestCellsASCII(t *testing.T) {
	grid := frame.New(2, 1)
	grid.Set(1, 0, 255, 255, 255, 255)
	st := compileStyle(t, effects.ASCII, nil)

	cells := New(nil).Cells(grid, st, 0)
	require.Len(t, cells, 2)
	assert.True(t, cells[0].Blank)
	assert.False(t, cells[1].Blank)
	assert.Equal(t, string(ASCIIRamp[len(ASCIIRamp)-1]), cells[1].Glyph)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, cells[1].Color)
}

func TestCellsMatrixSeeded(t *testing.T) {
	grid := solid(6, 3, 200, 200, 200)
	st := compileStyle(t, effects.Matrix, nil)
	a := New(nil).Cells(grid, st, 3)
	b := New(nil).Cells(grid, st, 3)
	assert.Equal(t, a, b)
	for _, c := range a {
		assert.Contains(t, []string{"0", "1"}, c.Glyph)
		assert.Zero(t, c.Color.R)
	}
}

func TestCellsOnlyForTextStyles(t *testing.T) {
	assert.False(t, TextStyle(nil))
	assert.False(t, TextStyle(compileStyle(t, effects.Pixelate, nil)))
	assert.True(t, TextStyle(compileStyle(t, effects.Emoji, nil)))
	assert.Nil(t, New(nil).Cells(solid(2, 2, 1, 1, 1), compileStyle(t, effects.Halftone, nil), 0))
}
