package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/skip2/go-qrcode"
)

// QR test card defaults.
const (
	DefaultQRFrames = 300
	DefaultQRSize   = 512
)

// barColors are the SMPTE-style bars painted behind the code.
var barColors = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// QRCardSource synthesizes a test card per frame: colour bars with a QR code
// encoding the label and frame index, so exported output can be checked frame
// by frame.
type QRCardSource struct {
	Label  string
	Frames int
	Size   int
}

func NewQRCardSource(label string, frames, size int) *QRCardSource {
	if label == "" {
		label = "framefx"
	}
	return &QRCardSource{Label: label, Frames: max(1, frames), Size: max(64, size)}
}

// Payload returns the text encoded on frame index.
func (s *QRCardSource) Payload(index int) string {
	return fmt.Sprintf("%s:frame=%d", s.Label, index)
}

func (s *QRCardSource) PageCount() int {
	return s.Frames
}

func (s *QRCardSource) GetPageDimensions(int) (float64, float64, error) {
	w, h := s.dimensions()
	return float64(w), float64(h), nil
}

func (s *QRCardSource) dimensions() (int, int) {
	return s.Size * 16 / 9, s.Size
}

func (s *QRCardSource) RenderPage(index int, _ int) (image.Image, error) {
	w, h := s.dimensions()
	card := image.NewRGBA(image.Rect(0, 0, w, h))

	barW := w / len(barColors)
	for i, c := range barColors {
		r := image.Rect(i*barW, 0, (i+1)*barW, h)
		if i == len(barColors)-1 {
			r.Max.X = w
		}
		draw.Draw(card, r, image.NewUniform(c), image.Point{}, draw.Src)
	}

	q, err := qrcode.New(s.Payload(index), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode frame %d: %w", index, err)
	}
	side := h * 3 / 4
	code := q.Image(side)
	at := image.Pt((w-side)/2, (h-side)/2)
	draw.Draw(card, image.Rectangle{Min: at, Max: at.Add(code.Bounds().Size())}, code, code.Bounds().Min, draw.Src)
	return card, nil
}

func (s *QRCardSource) Close() error {
	return nil
}
