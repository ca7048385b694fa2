package effects

import (
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/ivlev/framefx/internal/frame"
)

var (
	leftEyeIndices  = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
	rightEyeIndices = []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	mouthIndices    = []int{
		61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 185, 40, 39, 37, 0,
		267, 269, 270, 409, 308, 415, 310, 311, 312, 13, 82, 81, 80, 191, 78,
	}
)

// faceArea is a face box grown by pad times its own size, in pixels.
type faceArea struct {
	x0, y0, x1, y1 float64
}

func newFaceArea(f frame.Face, w, h int, pad float64) faceArea {
	x0 := (f.X - f.Width*pad) * float64(w)
	y0 := (f.Y - f.Height*pad) * float64(h)
	return faceArea{
		x0: x0,
		y0: y0,
		x1: x0 + f.Width*(1+pad*2)*float64(w),
		y1: y0 + f.Height*(1+pad*2)*float64(h),
	}
}

func (a faceArea) contains(x, y int) bool {
	fx, fy := float64(x), float64(y)
	return fx >= a.x0 && fx < a.x1 && fy >= a.y0 && fy < a.y1
}

// insideEllipse tests membership in the ellipse inscribed in the area.
func (a faceArea) insideEllipse(x, y int) bool {
	rx, ry := (a.x1-a.x0)/2, (a.y1-a.y0)/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := (float64(x) + 0.5 - (a.x0 + rx)) / rx
	dy := (float64(y) + 0.5 - (a.y0 + ry)) / ry
	return dx*dx+dy*dy <= 1
}

// pixels clips the area to the frame.
func (a faceArea) pixels(w, h int) image.Rectangle {
	r := image.Rect(int(math.Floor(a.x0)), int(math.Floor(a.y0)), int(math.Floor(a.x1)), int(math.Floor(a.y1)))
	return r.Intersect(image.Rect(0, 0, w, h))
}

const facePad = 0.1

type facePixelate struct {
	block int
}

func newFacePixelate(p Params) Effect {
	return facePixelate{block: max(1, newDecoder(FacePixelate, p).int("blockSize"))}
}

func (e facePixelate) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	w, h := buf.Width, buf.Height
	for _, f := range fc.Faces {
		area := newFaceArea(f, w, h, facePad)
		r := f.Rect.Pixels(w, h).Intersect(image.Rect(0, 0, w, h))
		for by := r.Min.Y; by < r.Max.Y; by += e.block {
			for bx := r.Min.X; bx < r.Max.X; bx += e.block {
				ex, ey := min(bx+e.block, r.Max.X), min(by+e.block, r.Max.Y)
				var sr, sg, sb float64
				n := 0
				for y := by; y < ey; y++ {
					for x := bx; x < ex; x++ {
						if area.contains(x, y) {
							i := buf.Offset(x, y)
							sr += float64(buf.Pix[i])
							sg += float64(buf.Pix[i+1])
							sb += float64(buf.Pix[i+2])
							n++
						}
					}
				}
				if n == 0 {
					continue
				}
				cr, cg, cb := toByte(sr/float64(n)), toByte(sg/float64(n)), toByte(sb/float64(n))
				for y := by; y < ey; y++ {
					for x := bx; x < ex; x++ {
						if area.contains(x, y) {
							i := buf.Offset(x, y)
							buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = cr, cg, cb
						}
					}
				}
			}
		}
	}
}

type faceBlur struct {
	radius int
}

const (
	blurPasses = 3
	blurPad    = 0.15
)

func newFaceBlur(p Params) Effect {
	return faceBlur{radius: newDecoder(FaceBlur, p).int("radius")}
}

// Apply blurs a padded box around each face with three box passes and writes
// the result back inside the face area only.
func (e faceBlur) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.radius <= 0 || len(fc.Faces) == 0 {
		return
	}
	box := int(math.Ceil(float64(e.radius) / blurPasses))
	filters := make([]gift.Filter, blurPasses)
	for k := range filters {
		filters[k] = gift.Mean(2*box+1, false)
	}
	g := gift.New(filters...)
	w, h := buf.Width, buf.Height
	img := buf.Image()
	for _, f := range fc.Faces {
		r := newFaceArea(f, w, h, blurPad).pixels(w, h)
		if r.Empty() {
			continue
		}
		blurred := image.NewRGBA(g.Bounds(r.Sub(r.Min)))
		g.Draw(blurred, img.SubImage(r))
		area := newFaceArea(f, w, h, facePad)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if area.contains(x, y) {
					copyPixel(buf.Pix, buf.Offset(x, y), blurred.Pix, blurred.PixOffset(x-r.Min.X, y-r.Min.Y))
				}
			}
		}
	}
}

type faceColorReplace struct {
	mode  string
	color RGB
}

func newFaceColorReplace(p Params) Effect {
	d := newDecoder(FaceColorReplace, p)
	return faceColorReplace{mode: d.choice("mode"), color: d.color("color")}
}

func (e faceColorReplace) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	w, h := buf.Width, buf.Height
	for _, f := range fc.Faces {
		area := newFaceArea(f, w, h, facePad)
		r := area.pixels(w, h)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if !area.insideEllipse(x, y) {
					continue
				}
				i := buf.Offset(x, y)
				bright := avgLum(buf.Pix, i) / 255
				switch e.mode {
				case "solid":
					buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = e.color.R, e.color.G, e.color.B
				case "gradient":
					buf.Pix[i] = toByte(float64(e.color.R) * bright)
					buf.Pix[i+1] = toByte(float64(e.color.G) * bright)
					buf.Pix[i+2] = toByte(float64(e.color.B) * bright)
				case "thermal":
					buf.Pix[i] = toByte(255 * bright)
					buf.Pix[i+1] = toByte(255 * bright * 0.5)
					buf.Pix[i+2] = toByte(255 * (1 - bright))
				}
			}
		}
	}
}

// censorBar covers a landmark subset with a horizontal bar.
type censorBar struct {
	style     string
	color     RGB
	thickness float64
	minHeight float64
	padding   float64
	points    func(lm []frame.Landmark) []frame.Landmark
}

func newEyeCensor(p Params) Effect {
	d := newDecoder(FaceEyeCensor, p)
	return censorBar{
		style:     d.choice("style"),
		color:     d.color("color"),
		thickness: d.float("thickness"),
		minHeight: 8,
		padding:   0.1,
		points: func(lm []frame.Landmark) []frame.Landmark {
			left := frame.SelectLandmarks(lm, leftEyeIndices)
			return append(left, frame.SelectLandmarks(lm, rightEyeIndices)...)
		},
	}
}

func newMouthCensor(p Params) Effect {
	d := newDecoder(FaceMouthCensor, p)
	return censorBar{
		style:     d.choice("style"),
		color:     d.color("color"),
		thickness: d.float("thickness"),
		minHeight: 10,
		padding:   0.05,
		points: func(lm []frame.Landmark) []frame.Landmark {
			return frame.SelectLandmarks(lm, mouthIndices)
		},
	}
}

// bar returns the clipped pixel rectangle and the unclipped bar height.
func (e censorBar) bar(lm []frame.Landmark, w, h int) (image.Rectangle, float64, bool) {
	pts := e.points(lm)
	if len(pts) == 0 {
		return image.Rectangle{}, 0, false
	}
	minX, minY, maxX, maxY := frame.LandmarkBounds(pts)
	fw, fh := float64(w), float64(h)
	barH := math.Max((maxY-minY)*fh*e.thickness, e.minHeight)
	pad := (maxX - minX) * fw * e.padding
	cy := math.Floor((minY + maxY) / 2 * fh)
	r := image.Rect(
		int(math.Floor(minX*fw-pad)),
		int(math.Floor(cy-barH/2)),
		int(math.Ceil(maxX*fw+pad)),
		int(math.Ceil(cy+barH/2)),
	).Intersect(image.Rect(0, 0, w, h))
	return r, barH, !r.Empty()
}

func (e censorBar) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	src := buf.Clone()
	for _, f := range fc.Faces {
		if len(f.Landmarks) == 0 {
			continue
		}
		r, barH, ok := e.bar(f.Landmarks, buf.Width, buf.Height)
		if !ok {
			continue
		}
		switch e.style {
		case "solid":
			fillRect(buf, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, e.color.R, e.color.G, e.color.B)
		case "pixelated":
			block := max(4, int(barH/3))
			for by := r.Min.Y; by < r.Max.Y; by += block {
				for bx := r.Min.X; bx < r.Max.X; bx += block {
					ex, ey := min(bx+block, r.Max.X), min(by+block, r.Max.Y)
					cr, cg, cb := blockAverage(src, bx, by, ex, ey)
					fillRect(buf, bx, by, ex, ey, toByte(cr), toByte(cg), toByte(cb))
				}
			}
		case "blurred":
			sigma := float32(max(3, int(barH/4)))
			g := gift.New(gift.GaussianBlur(sigma))
			blurred := image.NewRGBA(g.Bounds(r.Sub(r.Min)))
			g.Draw(blurred, src.Image().SubImage(r))
			buf.Paste(frame.FromImage(blurred), r.Min.X, r.Min.Y)
		}
	}
}

type landmarkGlitch struct {
	intensity float64
	lines     int
	color     RGB
}

func newLandmarkGlitch(p Params) Effect {
	d := newDecoder(FaceLandmarkGlitch, p)
	return landmarkGlitch{intensity: d.float("intensity"), lines: d.int("lineCount"), color: d.color("color")}
}

// Apply strings tick-seeded lines between random landmark pairs, favouring
// short connections.
func (e landmarkGlitch) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	seed := math.Floor(float64(fc.Tick) / 3)
	maxDist := math.Hypot(float64(w), float64(h))
	n := int(float64(e.lines) * e.intensity / 100)
	for _, f := range fc.Faces {
		lm := f.Landmarks
		if len(lm) < 10 {
			continue
		}
		for k := 0; k < n; k++ {
			fk := float64(k)
			a := int(pseudoRandom(seed+fk*100) * float64(len(lm)))
			b := int(pseudoRandom(seed+fk*200) * float64(len(lm)))
			if a == b {
				continue
			}
			x1, y1 := int(math.Round(lm[a].X*float64(w))), int(math.Round(lm[a].Y*float64(h)))
			x2, y2 := int(math.Round(lm[b].X*float64(w))), int(math.Round(lm[b].Y*float64(h)))
			near := 1 - math.Hypot(float64(x2-x1), float64(y2-y1))/maxDist
			if pseudoRandom(seed+fk*300) >= e.intensity/100*near {
				continue
			}
			thick := max(1, int(pseudoRandom(seed+fk*400)*2))
			blendLine(buf, x1, y1, x2, y2, thick, e.color)
		}
	}
}

// blendLine draws a DDA line with a soft round brush of the given radius.
func blendLine(buf *frame.Buffer, x1, y1, x2, y2, thick int, c RGB) {
	dx, dy := x2-x1, y2-y1
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		return
	}
	xs, ys := float64(dx)/float64(steps), float64(dy)/float64(steps)
	for s := 0; s <= steps; s++ {
		x := int(math.Round(float64(x1) + xs*float64(s)))
		y := int(math.Round(float64(y1) + ys*float64(s)))
		for ty := -thick; ty <= thick; ty++ {
			for tx := -thick; tx <= thick; tx++ {
				px, py := x+tx, y+ty
				if px < 0 || px >= buf.Width || py < 0 || py >= buf.Height {
					continue
				}
				alpha := math.Max(0, 1-math.Hypot(float64(tx), float64(ty))/float64(thick))
				i := buf.Offset(px, py)
				buf.Pix[i] = toByte(float64(buf.Pix[i])*(1-alpha) + float64(c.R)*alpha)
				buf.Pix[i+1] = toByte(float64(buf.Pix[i+1])*(1-alpha) + float64(c.G)*alpha)
				buf.Pix[i+2] = toByte(float64(buf.Pix[i+2])*(1-alpha) + float64(c.B)*alpha)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
