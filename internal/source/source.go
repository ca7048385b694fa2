// Package source opens the media a pipeline draws its frames from. Every
// source is addressed by a page index; sequence sources wrap around at
// PageCount.
package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/system"
)

var (
	// ErrUnsupportedFormat is returned by Open for paths no source can read.
	ErrUnsupportedFormat = system.ErrUnsupportedFormat
	// ErrEmptySource is returned when a source has no frames.
	ErrEmptySource = errors.New("source has no frames")
)

// QRPrefix selects the QR test card in Open: "qr:<label>".
const QRPrefix = "qr:"

type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source by path: a directory of stills, a PDF, an animated
// GIF, a video file, a single image, or a QR test card.
func Open(path string) (Source, error) {
	if label, ok := strings.CutPrefix(path, QRPrefix); ok {
		return NewQRCardSource(label, DefaultQRFrames, DefaultQRSize), nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var src Source
	switch {
	case fi.IsDir():
		src, err = NewStillSource(path)
	case system.HasExtension(path, system.PDFExtensions):
		src, err = NewFitzPDFSource(path)
	case system.HasExtension(path, system.GIFExtensions):
		src, err = NewGIFSource(path)
	case system.HasExtension(path, system.VideoExtensions):
		src, err = NewVideoSource(path)
	case system.HasExtension(path, system.ImageExtensions):
		src, err = NewStillSource(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if src.PageCount() == 0 {
		src.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	return src, nil
}

// Frame renders page index into a w×h buffer, scaling to fit and centring on
// black. Non-positive w or h keeps the page's native size.
func Frame(src Source, index, dpi, w, h int) (*frame.Buffer, error) {
	n := src.PageCount()
	if n == 0 {
		return nil, ErrEmptySource
	}
	img, err := src.RenderPage(index%n, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index%n, err)
	}
	return FitImage(img, w, h), nil
}

// FitImage scales img into a w×h buffer preserving aspect ratio.
func FitImage(img image.Image, w, h int) *frame.Buffer {
	b := img.Bounds()
	if w <= 0 || h <= 0 || (b.Dx() == w && b.Dy() == h) {
		buf := frame.FromImage(img)
		buf.Opaque()
		return buf
	}

	buf := frame.New(w, h)
	buf.Fill(0, 0, 0, 255)
	if b.Empty() {
		return buf
	}
	scale := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	dw, dh := max(1, int(float64(b.Dx())*scale)), max(1, int(float64(b.Dy())*scale))
	dst := image.Rect((w-dw)/2, (h-dh)/2, (w-dw)/2+dw, (h-dh)/2+dh)
	xdraw.ApproxBiLinear.Scale(buf.Image(), dst, img, b, xdraw.Over, nil)
	buf.Opaque()
	return buf
}
