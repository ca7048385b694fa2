package video

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"

	"github.com/soniakeys/quant/median"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/framefx/internal/frame"
)

// GIFSink collects frames and writes an animated GIF on Close. The palette is
// derived from the first frame and reused so colours do not flicker.
type GIFSink struct {
	path    string
	delay   int
	palette color.Palette
	anim    gif.GIF
}

func NewGIFSink(path string, opts Options) *GIFSink {
	fps := max(1, opts.FPS)
	return &GIFSink{
		path:  path,
		delay: max(2, (100+fps/2)/fps),
	}
}

// Palette returns the palette in use; nil before the first frame.
func (s *GIFSink) Palette() color.Palette {
	return s.palette
}

func (s *GIFSink) WriteFrame(buf *frame.Buffer) error {
	if buf.Empty() {
		return fmt.Errorf("empty frame")
	}
	if s.palette == nil {
		s.palette = Quantize(buf, 256)
	}
	img := buf.Image()
	p := image.NewPaletted(img.Rect, s.palette)
	xdraw.FloydSteinberg.Draw(p, p.Rect, img, image.Point{})
	s.anim.Image = append(s.anim.Image, p)
	s.anim.Delay = append(s.anim.Delay, s.delay)
	return nil
}

func (s *GIFSink) Close() error {
	if len(s.anim.Image) == 0 {
		return fmt.Errorf("gif %s: no frames written", s.path)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &s.anim); err != nil {
		f.Close()
		return fmt.Errorf("encode gif: %w", err)
	}
	return f.Close()
}

// Quantize builds a palette of at most n colours from buf by median cut.
func Quantize(buf *frame.Buffer, n int) color.Palette {
	return median.Quantizer(n).Quantize(make(color.Palette, 0, n), buf.Image())
}
