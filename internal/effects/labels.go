package effects

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/framefx/internal/frame"
)

var (
	faceLabelColor      = RGB{0xFF, 0x6B, 0x6B}
	leftHandLabelColor  = RGB{0x4E, 0xCD, 0xC4}
	rightHandLabelColor = RGB{0x45, 0xB7, 0xD1}
	poseLabelColor      = RGB{0x96, 0xCE, 0xB4}
)

type detectionLabels struct {
	faces, hands, poses bool
	confidence          bool
	labelSize           int
	thickness           int
}

func newDetectionLabels(p Params) Effect {
	d := newDecoder(DetectionLabels, p)
	return detectionLabels{
		faces:      d.bool("showFaces"),
		hands:      d.bool("showHands"),
		poses:      d.bool("showPose"),
		confidence: d.bool("showConfidence"),
		labelSize:  max(1, d.int("labelSize")),
		thickness:  max(1, d.int("boxThickness")),
	}
}

func (e detectionLabels) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.faces {
		for i, f := range fc.Faces {
			e.drawBox(buf, f.Rect, e.caption(fmt.Sprintf("Face %d", i+1), f.Confidence), faceLabelColor)
		}
	}
	if e.hands {
		for _, hd := range fc.Hands {
			c := rightHandLabelColor
			if strings.Contains(hd.Label, "Left") {
				c = leftHandLabelColor
			}
			e.drawBox(buf, hd.Rect, e.caption(hd.Label, hd.Confidence), c)
		}
	}
	if e.poses {
		for _, ps := range fc.Poses {
			e.drawBox(buf, ps.Rect, e.caption(ps.Label, ps.Confidence), poseLabelColor)
		}
	}
}

func (e detectionLabels) caption(label string, conf float64) string {
	if e.confidence && conf > 0 {
		return fmt.Sprintf("%s %.0f%%", label, conf*100)
	}
	return label
}

const labelPadding = 6

// drawBox strokes the box, then places a filled caption tag above it joined
// to the box corner by a leader line.
func (e detectionLabels) drawBox(buf *frame.Buffer, r frame.Rect, label string, c RGB) {
	w, h := buf.Width, buf.Height
	box := r.Pixels(w, h)
	strokeRect(buf, box, e.thickness, c)

	text := renderLabel(label, e.labelSize)
	lw := text.Bounds().Dx() + labelPadding*2
	lh := e.labelSize + labelPadding*2
	lx := max(2, min(box.Min.X, w-lw-2))
	ly := max(lh+2, box.Min.Y-8)

	fillRect(buf, lx, ly-lh, lx+lw, ly, c.R, c.G, c.B)
	stddraw.DrawMask(buf.Image(), image.Rect(lx+labelPadding, ly-lh+labelPadding, lx+lw, ly),
		image.NewUniform(color.White), image.Point{}, text, image.Point{}, stddraw.Over)
	solidLine(buf, lx+lw/2, ly, box.Min.X, box.Min.Y, 2, c)
}

// renderLabel rasterizes s with the fixed 7×13 face and scales the mask to a
// cap height of size pixels.
func renderLabel(s string, size int) *image.Alpha {
	face := basicfont.Face7x13
	adv := font.MeasureString(face, s).Ceil()
	m := face.Metrics()
	gh := (m.Ascent + m.Descent).Ceil()
	src := image.NewAlpha(image.Rect(0, 0, max(1, adv), gh))
	d := font.Drawer{Dst: src, Src: image.Opaque, Face: face, Dot: fixed.Point26_6{Y: m.Ascent}}
	d.DrawString(s)

	scale := float64(size) / float64(gh)
	dst := image.NewAlpha(image.Rect(0, 0, max(1, int(math.Round(float64(adv)*scale))), size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func strokeRect(buf *frame.Buffer, r image.Rectangle, t int, c RGB) {
	fillRect(buf, r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t, c.R, c.G, c.B)
	fillRect(buf, r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y, c.R, c.G, c.B)
	fillRect(buf, r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y, c.R, c.G, c.B)
	fillRect(buf, r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y, c.R, c.G, c.B)
}

// solidLine draws a Bresenham line t pixels wide.
func solidLine(buf *frame.Buffer, x0, y0, x1, y1, t int, c RGB) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		fillRect(buf, x0-t/2, y0-t/2, x0-t/2+t, y0-t/2+t, c.R, c.G, c.B)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}
