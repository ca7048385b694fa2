package engine

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/analyzer"
	"github.com/ivlev/framefx/internal/chain"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/source"
	"github.com/ivlev/framefx/internal/video"
)

const (
	setRed effects.Type = "test-set-red"
	halve  effects.Type = "test-halve"
	boom   effects.Type = "test-boom"
)

type effectFunc func(buf *frame.Buffer)

func (f effectFunc) Apply(buf *frame.Buffer, _ *frame.Context, _ *effects.State) { f(buf) }

// testRegistry carries the built-ins used here plus deterministic test effects.
func testRegistry() *effects.Registry {
	reg := effects.NewRegistry()
	for _, t := range []effects.Type{effects.Invert, effects.Pixelate, effects.Emoji} {
		e, _ := effects.Default.Lookup(t)
		reg.Register(e.Type, e.Label, e.Category, e.New)
	}
	reg.Register(setRed, "Set Red", effects.CategoryColor, func(effects.Params) effects.Effect {
		return effectFunc(func(buf *frame.Buffer) {
			for i := 0; i < len(buf.Pix); i += 4 {
				buf.Pix[i] = 200
			}
		})
	})
	reg.Register(halve, "Halve", effects.CategoryColor, func(effects.Params) effects.Effect {
		return effectFunc(func(buf *frame.Buffer) {
			for i := 0; i < len(buf.Pix); i += 4 {
				buf.Pix[i] /= 2
				buf.Pix[i+1] /= 2
				buf.Pix[i+2] /= 2
			}
		})
	})
	reg.Register(boom, "Boom", effects.CategoryGlitch, func(effects.Params) effects.Effect {
		return effectFunc(func(buf *frame.Buffer) {
			buf.Fill(7, 7, 7, 7)
			panic("boom")
		})
	})
	return reg
}

func solid(w, h int, r, g, b uint8) *frame.Buffer {
	buf := frame.New(w, h)
	buf.Fill(r, g, b, 255)
	return buf
}

func render(t *testing.T, e *Engine, src *frame.Buffer, tick int) *frame.Buffer {
	t.Helper()
	out, err := e.RenderFrame(context.Background(), src, tick)
	require.NoError(t, err)
	return out
}

func pixel(buf *frame.Buffer, x, y int) [4]uint8 {
	r, g, b, a := buf.At(x, y)
	return [4]uint8{r, g, b, a}
}

func TestInvertRed(t *testing.T) {
	c := chain.New(testRegistry())
	_, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)

	src := solid(4, 4, 255, 0, 0)
	out := render(t, New(c, Options{}), src, 0)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, [4]uint8{0, 255, 255, 255}, pixel(out, x, y))
		}
	}
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(src, 0, 0), "source is not modified")
}

func TestEmptyChainIsIdentity(t *testing.T) {
	src := frame.New(5, 3)
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	src.Opaque()

	out := render(t, New(chain.New(testRegistry()), Options{}), src, 3)
	assert.True(t, out.Equal(src))
}

func TestOutputIsOpaque(t *testing.T) {
	src := frame.New(2, 2)
	src.Fill(10, 20, 30, 40)
	out := render(t, New(chain.New(testRegistry()), Options{}), src, 0)
	assert.Equal(t, [4]uint8{10, 20, 30, 255}, pixel(out, 1, 1))
}

func TestInactiveEffectSkipped(t *testing.T) {
	c := chain.New(testRegistry())
	in, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	off := false
	require.NoError(t, c.UpdateEffect(in.ID, chain.Patch{Active: &off}))

	src := solid(2, 2, 255, 0, 0)
	assert.True(t, render(t, New(c, Options{}), src, 0).Equal(src))
}

func TestRegionIsolation(t *testing.T) {
	c := chain.New(testRegistry())
	left, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 1})
	require.NoError(t, err)
	right, err := c.AddRegion(frame.Rect{X: 0.5, Y: 0, Width: 0.5, Height: 1})
	require.NoError(t, err)
	_, err = c.AddEffect(effects.Invert, left.ID)
	require.NoError(t, err)
	_, err = c.AddEffect(halve, right.ID)
	require.NoError(t, err)
	_, err = c.AddEffect(setRed, "")
	require.NoError(t, err)

	out := render(t, New(c, Options{Workers: 2}), solid(10, 4, 0, 100, 0), 0)

	// Global pass first (red 200), then each region on its own copy.
	assert.Equal(t, [4]uint8{55, 155, 255, 255}, pixel(out, 1, 1))
	assert.Equal(t, [4]uint8{100, 50, 0, 255}, pixel(out, 8, 1))
}

func TestRegionFloorsRect(t *testing.T) {
	c := chain.New(testRegistry())
	reg, err := c.AddRegion(frame.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5})
	require.NoError(t, err)
	_, err = c.AddEffect(effects.Invert, reg.ID)
	require.NoError(t, err)

	out := render(t, New(c, Options{}), solid(10, 10, 255, 255, 255), 0)
	// 0.25*10 floors to 2; width 0.5*10 is 5, so x in [2,7).
	assert.Equal(t, uint8(255), pixel(out, 1, 5)[0])
	assert.Equal(t, uint8(0), pixel(out, 2, 5)[0])
	assert.Equal(t, uint8(0), pixel(out, 6, 5)[0])
	assert.Equal(t, uint8(255), pixel(out, 7, 5)[0])
}

func TestReorderChangesOutput(t *testing.T) {
	c := chain.New(testRegistry())
	red, err := c.AddEffect(setRed, "")
	require.NoError(t, err)
	_, err = c.AddEffect(halve, "")
	require.NoError(t, err)
	e := New(c, Options{})
	src := solid(2, 2, 0, 0, 0)

	assert.Equal(t, uint8(100), pixel(render(t, e, src, 0), 0, 0)[0])

	require.NoError(t, c.ReorderEffect(red.ID, 5))
	assert.Equal(t, uint8(200), pixel(render(t, e, src, 0), 0, 0)[0])
}

func TestStyleReplacesRasterAndSkipsRegions(t *testing.T) {
	c := chain.New(testRegistry())
	style, err := c.AddEffect(effects.Pixelate, "")
	require.NoError(t, err)
	require.NoError(t, c.UpdateEffect(style.ID, chain.Patch{Params: effects.Params{"density": 2.0}}))
	reg, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = c.AddEffect(effects.Invert, reg.ID)
	require.NoError(t, err)

	// Left half white, right half black.
	src := frame.New(20, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(0)
			if x < 10 {
				v = 255
			}
			src.Set(x, y, v, v, v, 255)
		}
	}
	e := New(c, Options{})
	out := render(t, e, src, 0)
	assert.Greater(t, pixel(out, 2, 10)[0], uint8(128), "region invert is not applied in style mode")
	assert.Less(t, pixel(out, 17, 10)[0], uint8(128))

	// An effect after the style runs on the rendered canvas.
	post, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	out = render(t, e, src, 0)
	assert.Less(t, pixel(out, 2, 10)[0], uint8(128))

	// Moving it before the style runs it on the grid instead.
	require.NoError(t, c.ReorderEffect(post.ID, 0))
	out = render(t, e, src, 0)
	assert.Less(t, pixel(out, 2, 10)[0], uint8(128))
	assert.Greater(t, pixel(out, 17, 10)[0], uint8(128))
}

func TestLastActiveStyleWins(t *testing.T) {
	c := chain.New(testRegistry())
	first, err := c.AddEffect(effects.Pixelate, "")
	require.NoError(t, err)
	second, err := c.AddEffect(effects.Pixelate, "")
	require.NoError(t, err)

	got, idx := chain.ActiveStyle(c.Effects())
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 1, idx)

	off := false
	require.NoError(t, c.UpdateEffect(second.ID, chain.Patch{Active: &off}))
	got, _ = chain.ActiveStyle(c.Effects())
	assert.Equal(t, first.ID, got.ID)
}

func TestDegenerateGridFallsBackToRaster(t *testing.T) {
	c := chain.New(testRegistry())
	style, err := c.AddEffect(effects.Pixelate, "")
	require.NoError(t, err)
	require.NoError(t, c.UpdateEffect(style.ID, chain.Patch{Params: effects.Params{"density": 1.0}}))
	_, err = c.AddEffect(effects.Invert, "")
	require.NoError(t, err)

	// rows = floor(1 * 2/100 * 0.6) = 0
	out := render(t, New(c, Options{}), solid(100, 2, 255, 0, 0), 0)
	assert.Equal(t, [4]uint8{0, 255, 255, 255}, pixel(out, 50, 1))
}

func TestPanicRollsBackStage(t *testing.T) {
	c := chain.New(testRegistry())
	_, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	_, err = c.AddEffect(boom, "")
	require.NoError(t, err)
	_, err = c.AddEffect(halve, "")
	require.NoError(t, err)

	e := New(c, Options{})
	out := render(t, e, solid(3, 3, 255, 0, 0), 0)
	assert.Equal(t, [4]uint8{0, 127, 127, 255}, pixel(out, 1, 1))
	assert.Equal(t, 1, e.Recovered())
}

func TestPanicInRegionRollsBack(t *testing.T) {
	c := chain.New(testRegistry())
	reg, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = c.AddEffect(boom, reg.ID)
	require.NoError(t, err)

	e := New(c, Options{})
	src := solid(4, 4, 9, 9, 9)
	assert.True(t, render(t, e, src, 0).Equal(src))
	assert.Equal(t, 1, e.Recovered())
}

type countingDetector struct {
	mu    sync.Mutex
	ticks []int
	fail  map[int]bool
}

func (d *countingDetector) Detect(_ context.Context, _ image.Image, tick int) (frame.Detections, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks = append(d.ticks, tick)
	if d.fail[tick] {
		return frame.Detections{}, errors.New("detector offline")
	}
	return frame.Detections{Faces: []frame.Face{{Rect: frame.Rect{X: float64(tick) / 100, Width: 0.1, Height: 0.1}}}}, nil
}

func TestDetectionThrottle(t *testing.T) {
	det := &countingDetector{fail: map[int]bool{20: true}}
	e := New(chain.New(testRegistry()), Options{Detector: det})
	src := solid(4, 4, 0, 0, 0)

	for tick := 0; tick < 26; tick++ {
		render(t, e, src, tick)
		if tick == 15 {
			require.Len(t, e.Detections().Faces, 1)
			assert.InDelta(t, 0.1, e.Detections().Faces[0].X, 1e-9)
		}
	}
	assert.Equal(t, []int{0, 10, 20}, det.ticks)
	assert.Equal(t, 1, e.Warnings())
	assert.InDelta(t, 0.1, e.Detections().Faces[0].X, 1e-9, "failed detection keeps stale result")
}

func TestFirstFrameOffIntervalAcquiresDetections(t *testing.T) {
	c := chain.New(effects.Default)
	_, err := c.AddEffect(effects.FaceColorReplace, "")
	require.NoError(t, err)

	det := &countingDetector{}
	e := New(c, Options{Detector: det})
	src := solid(100, 100, 10, 10, 10)

	out := render(t, e, src, 7)
	assert.Equal(t, []int{7}, det.ticks)
	// countingDetector places the face at x = tick/100.
	assert.Equal(t, [4]uint8{255, 0, 255, 255}, pixel(out, 12, 5))

	for tick := 8; tick <= 20; tick++ {
		render(t, e, src, tick)
	}
	assert.Equal(t, []int{7, 10, 20}, det.ticks, "throttled once acquired")
}

func TestEditWhileRendering(t *testing.T) {
	c := chain.New(testRegistry())
	inv, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	style, err := c.AddEffect(effects.Pixelate, "")
	require.NoError(t, err)
	e := New(c, Options{})
	src := solid(16, 16, 40, 80, 120)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			active := i%2 == 0
			assert.NoError(t, c.UpdateEffect(style.ID, chain.Patch{Active: &active}))
			assert.NoError(t, c.UpdateEffect(inv.ID, chain.Patch{Params: effects.Params{}}))
		}
	}()
	for tick := 0; tick < 100; tick++ {
		out := render(t, e, src, tick)
		assert.Equal(t, src.Width, out.Width)
	}
	wg.Wait()
}

func TestRegionSeesRemappedDetections(t *testing.T) {
	var seen frame.Detections
	reg := testRegistry()
	const capture effects.Type = "test-capture"
	reg.Register(capture, "Capture", effects.CategoryFace, func(effects.Params) effects.Effect {
		return captureEffect{seen: &seen}
	})
	c := chain.New(reg)
	region, err := c.AddRegion(frame.Rect{X: 0.5, Y: 0, Width: 0.5, Height: 1})
	require.NoError(t, err)
	_, err = c.AddEffect(capture, region.ID)
	require.NoError(t, err)

	det := analyzer.DetectorFunc(func(context.Context, image.Image, int) (frame.Detections, error) {
		return frame.Detections{Faces: []frame.Face{
			{Rect: frame.Rect{X: 0.75, Y: 0.5, Width: 0.1, Height: 0.1}},
			{Rect: frame.Rect{X: 0.1, Y: 0.5, Width: 0.1, Height: 0.1}},
		}}, nil
	})
	render(t, New(c, Options{Detector: det}), solid(10, 10, 0, 0, 0), 0)

	require.Len(t, seen.Faces, 1)
	assert.InDelta(t, 0.5, seen.Faces[0].X, 1e-9)
	assert.InDelta(t, 0.2, seen.Faces[0].Width, 1e-9)
}

type captureEffect struct{ seen *frame.Detections }

func (p captureEffect) Apply(_ *frame.Buffer, fc *frame.Context, _ *effects.State) {
	*p.seen = fc.Detections
}

func TestRenderFrameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(chain.New(testRegistry()), Options{}).RenderFrame(ctx, solid(2, 2, 0, 0, 0), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type memorySink struct {
	frames []*frame.Buffer
	closed bool
	failAt int
}

func (s *memorySink) WriteFrame(buf *frame.Buffer) error {
	if s.failAt > 0 && len(s.frames) == s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, buf)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func TestExportSequence(t *testing.T) {
	c := chain.New(testRegistry())
	_, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	e := New(c, Options{})

	sink := &memorySink{}
	var progress [][2]int
	res := e.Export(context.Background(), source.NewQRCardSource("x", 3, 64), ExportOptions{
		Path:   "out.gif",
		Width:  32,
		Height: 18,
		FPS:    10,
		Frames: 25,
		NewSink: func(path, format string, opts video.Options) (video.Sink, error) {
			assert.Equal(t, video.FormatGIF, format)
			assert.Equal(t, 32, opts.Width)
			return sink, nil
		},
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 25, res.Frames)
	assert.Len(t, sink.frames, 25)
	assert.True(t, sink.closed)
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, progress)
	require.NotNil(t, res.Report)
	assert.Equal(t, 25, res.Report.Frames)

	// Frames 0 and 3 show the same source page.
	assert.True(t, sink.frames[0].Equal(sink.frames[3]))
	assert.False(t, sink.frames[0].Equal(sink.frames[1]))
}

func TestExportFailures(t *testing.T) {
	e := New(chain.New(testRegistry()), Options{})
	src := source.NewQRCardSource("x", 3, 64)

	res := e.Export(context.Background(), src, ExportOptions{Path: "out.png", Frames: 3})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = e.Export(context.Background(), src, ExportOptions{Path: "out.gif", Frames: 0})
	assert.False(t, res.Success)

	sink := &memorySink{failAt: 2}
	res = e.Export(context.Background(), src, ExportOptions{
		Path: "out.mp4", Width: 32, Height: 18, Frames: 10,
		NewSink: func(string, string, video.Options) (video.Sink, error) { return sink, nil },
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disk full")
	assert.Equal(t, 2, res.Frames)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = e.Export(ctx, src, ExportOptions{
		Path: "out.gif", Width: 32, Height: 18, Frames: 10,
		NewSink: func(string, string, video.Options) (video.Sink, error) { return &memorySink{}, nil },
	})
	assert.False(t, res.Success)
}

func TestExportAwaitsEmojiPalette(t *testing.T) {
	c := chain.New(testRegistry())
	_, err := c.AddEffect(effects.Emoji, "")
	require.NoError(t, err)
	e := New(c, Options{})

	res := e.Export(context.Background(), source.NewQRCardSource("x", 1, 64), ExportOptions{
		Path: "out.gif", Width: 32, Height: 18, Frames: 2,
		NewSink: func(string, string, video.Options) (video.Sink, error) { return &memorySink{}, nil },
	})
	require.True(t, res.Success, res.Error)
	assert.True(t, e.Renderer().Palettes.Request("standard").Ready())
}

func TestSaveStill(t *testing.T) {
	c := chain.New(testRegistry())
	_, err := c.AddEffect(effects.Invert, "")
	require.NoError(t, err)
	e := New(c, Options{})

	path := filepath.Join(t.TempDir(), "frame.png")
	res := e.SaveStill(context.Background(), source.NewQRCardSource("x", 5, 64), ExportOptions{Path: path, Tick: 2, Width: 32, Height: 18})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Frames)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	res = e.SaveStill(context.Background(), source.NewQRCardSource("x", 5, 64), ExportOptions{Path: filepath.Join(t.TempDir(), "a.mp4")})
	assert.False(t, res.Success)
}

type panicSink struct{ memorySink }

func (s *panicSink) WriteFrame(*frame.Buffer) error { panic("encoder exploded") }

// stubSource serves one fixed image and panics when asked for page panicAt.
type stubSource struct {
	img     image.Image
	pages   int
	panicAt int
}

func (s stubSource) PageCount() int { return s.pages }
func (s stubSource) GetPageDimensions(int) (float64, float64, error) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}
func (s stubSource) RenderPage(index, _ int) (image.Image, error) {
	if s.panicAt > 0 && index == s.panicAt {
		panic("decoder exploded")
	}
	return s.img, nil
}
func (s stubSource) Close() error { return nil }

func TestExportStagePanicsBecomeFailures(t *testing.T) {
	e := New(chain.New(testRegistry()), Options{})
	src := source.NewQRCardSource("x", 3, 64)

	var res ExportResult
	require.NotPanics(t, func() {
		res = e.Export(context.Background(), src, ExportOptions{
			Path: "out.gif", Width: 32, Height: 18, Frames: 5,
			NewSink: func(string, string, video.Options) (video.Sink, error) { return &panicSink{}, nil },
		})
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "encode stage panicked")

	bad := stubSource{img: image.NewRGBA(image.Rect(0, 0, 8, 8)), pages: 5, panicAt: 2}
	require.NotPanics(t, func() {
		res = e.Export(context.Background(), bad, ExportOptions{
			Path: "out.gif", Width: 8, Height: 8, Frames: 5,
			NewSink: func(string, string, video.Options) (video.Sink, error) { return &memorySink{}, nil },
		})
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "render stage panicked")
}

func TestOutputSize(t *testing.T) {
	thin := stubSource{img: image.NewRGBA(image.Rect(0, 0, 1, 7)), pages: 1}

	w, h, err := outputSize(thin, ExportOptions{}, true)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 6}, [2]int{w, h}, "even, never below 2")

	w, h, err = outputSize(thin, ExportOptions{}, false)
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 7}, [2]int{w, h}, "stills keep the native size")

	w, h, err = outputSize(thin, ExportOptions{Width: 33, Height: 19}, true)
	require.NoError(t, err)
	assert.Equal(t, [2]int{33, 19}, [2]int{w, h})

	_, _, err = outputSize(stubSource{img: thin.img}, ExportOptions{}, true)
	assert.ErrorIs(t, err, source.ErrEmptySource)
}
