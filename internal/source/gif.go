package source

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
)

// GIFSource serves the composited frames of an animated GIF. Frames are
// flattened once at open so random access honours disposal modes.
type GIFSource struct {
	frames []*image.RGBA
	delays []int
}

func NewGIFSource(path string) (*GIFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode gif %s: %w", path, err)
	}
	return &GIFSource{frames: flattenGIF(g), delays: g.Delay}, nil
}

func flattenGIF(g *gif.GIF) []*image.RGBA {
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		for _, p := range g.Image {
			w, h = max(w, p.Bounds().Max.X), max(h, p.Bounds().Max.Y)
		}
	}
	bounds := image.Rect(0, 0, w, h)
	canvas := image.NewRGBA(bounds)
	out := make([]*image.RGBA, 0, len(g.Image))

	for i, p := range g.Image {
		var restore *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			restore = cloneRGBA(canvas)
		}

		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		out = append(out, cloneRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

func (s *GIFSource) PageCount() int {
	return len(s.frames)
}

func (s *GIFSource) GetPageDimensions(index int) (float64, float64, error) {
	b := s.frames[index].Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}

func (s *GIFSource) RenderPage(index int, _ int) (image.Image, error) {
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("gif frame %d out of range", index)
	}
	return s.frames[index], nil
}

// Delay returns frame index's display time in hundredths of a second.
func (s *GIFSource) Delay(index int) int {
	if index < 0 || index >= len(s.delays) {
		return 0
	}
	return s.delays[index]
}

func (s *GIFSource) Close() error {
	return nil
}
