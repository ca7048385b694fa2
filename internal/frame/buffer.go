// Package frame holds the pixel buffer every effect operates on and the
// per-frame context handed to processors.
package frame

import (
	"bytes"
	"image"
	"image/draw"
)

// Buffer is one RGBA8 frame, row-major, 4 bytes per pixel.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed buffer. Non-positive dimensions yield an empty buffer.
func New(width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		return &Buffer{}
	}
	return &Buffer{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// FromImage copies img into a new buffer with its origin at (0, 0).
func FromImage(img image.Image) *Buffer {
	b := img.Bounds()
	buf := New(b.Dx(), b.Dy())
	if buf.Empty() {
		return buf
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 {
		copy(buf.Pix, rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y):])
		return buf
	}
	draw.Draw(buf.Image(), buf.Image().Rect, img, b.Min, draw.Src)
	return buf
}

// Image wraps the buffer's pixels as an *image.RGBA without copying.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Empty reports whether the buffer has no pixels.
func (b *Buffer) Empty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0 || len(b.Pix) < b.Width*b.Height*4
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]byte, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// CopyFrom overwrites b with src when both share dimensions.
func (b *Buffer) CopyFrom(src *Buffer) bool {
	if !b.SameSize(src) {
		return false
	}
	copy(b.Pix, src.Pix)
	return true
}

// SameSize reports whether both buffers have identical dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return o != nil && b.Width == o.Width && b.Height == o.Height && len(b.Pix) == len(o.Pix)
}

// Equal compares dimensions and pixel bytes.
func (b *Buffer) Equal(o *Buffer) bool {
	return b.SameSize(o) && bytes.Equal(b.Pix, o.Pix)
}

// Offset returns the byte index of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// At returns the RGBA components of pixel (x, y) with coordinates clamped.
func (b *Buffer) At(x, y int) (r, g, bl, a uint8) {
	x = ClampInt(x, 0, b.Width-1)
	y = ClampInt(y, 0, b.Height-1)
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Set writes pixel (x, y); out-of-range writes are dropped.
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}

// Fill paints every pixel with one colour.
func (b *Buffer) Fill(r, g, bl, a uint8) {
	for i := 0; i+3 < len(b.Pix); i += 4 {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
	}
}

// Opaque forces alpha to 255 on every pixel.
func (b *Buffer) Opaque() {
	for i := 3; i < len(b.Pix); i += 4 {
		b.Pix[i] = 255
	}
}

// Extract copies the rectangle r (clipped to the buffer) into a new buffer.
func (b *Buffer) Extract(r image.Rectangle) *Buffer {
	r = r.Intersect(image.Rect(0, 0, b.Width, b.Height))
	sub := New(r.Dx(), r.Dy())
	b.ExtractInto(sub, r)
	return sub
}

// ExtractInto copies r into dst, which must already have r's dimensions.
// It reports false and leaves dst untouched when r is clipped or sizes differ.
func (b *Buffer) ExtractInto(dst *Buffer, r image.Rectangle) bool {
	if dst.Empty() || !r.In(image.Rect(0, 0, b.Width, b.Height)) || dst.Width != r.Dx() || dst.Height != r.Dy() {
		return false
	}
	rowLen := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		src := b.Offset(r.Min.X, r.Min.Y+y)
		copy(dst.Pix[y*rowLen:(y+1)*rowLen], b.Pix[src:src+rowLen])
	}
	return true
}

// Paste writes src back at offset (x, y), clipping anything outside b.
func (b *Buffer) Paste(src *Buffer, x, y int) {
	if src.Empty() {
		return
	}
	dst := image.Rect(x, y, x+src.Width, y+src.Height).Intersect(image.Rect(0, 0, b.Width, b.Height))
	if dst.Empty() {
		return
	}
	rowLen := dst.Dx() * 4
	for row := dst.Min.Y; row < dst.Max.Y; row++ {
		s := src.Offset(dst.Min.X-x, row-y)
		d := b.Offset(dst.Min.X, row)
		copy(b.Pix[d:d+rowLen], src.Pix[s:s+rowLen])
	}
}

// Luma returns the Rec.601 brightness of the pixel at byte offset i.
func (b *Buffer) Luma(i int) float64 {
	return 0.299*float64(b.Pix[i]) + 0.587*float64(b.Pix[i+1]) + 0.114*float64(b.Pix[i+2])
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampByte rounds and saturates v into a byte.
func ClampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
