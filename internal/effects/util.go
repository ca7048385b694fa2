package effects

import (
	"math"

	"github.com/ivlev/framefx/internal/frame"
)

// pseudoRandom is a stateless hash in [0,1); identical seeds give identical
// values, which keeps tick-seeded effects reproducible across renders.
func pseudoRandom(seed float64) float64 {
	x := math.Sin(seed*12.9898+78.233) * 43758.5453
	return x - math.Floor(x)
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampI(v, lo, hi int) int {
	return frame.ClampInt(v, lo, hi)
}

// wrap folds v into [0, n).
func wrap(v, n int) int {
	if n <= 0 {
		return 0
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

func toByte(v float64) uint8 {
	return frame.ClampByte(v)
}

// avgLum is the unweighted channel mean used by most colour effects.
func avgLum(pix []byte, i int) float64 {
	return (float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])) / 3
}

func copyPixel(dst []byte, di int, src []byte, si int) {
	dst[di], dst[di+1], dst[di+2] = src[si], src[si+1], src[si+2]
}

// sampleNearest copies the clamped nearest source pixel into dst at di.
func sampleNearest(dst []byte, di int, src *frame.Buffer, x, y float64) {
	sx := clampI(int(math.Floor(x)), 0, src.Width-1)
	sy := clampI(int(math.Floor(y)), 0, src.Height-1)
	copyPixel(dst, di, src.Pix, src.Offset(sx, sy))
}

// sampleBilinear writes the bilinear blend of src at (x, y) into dst at di.
func sampleBilinear(dst []byte, di int, src *frame.Buffer, x, y float64) {
	x = clampF(x, 0, float64(src.Width-1))
	y = clampF(y, 0, float64(src.Height-1))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, src.Width-1), min(y0+1, src.Height-1)
	fx, fy := x-float64(x0), y-float64(y0)
	i00, i10 := src.Offset(x0, y0), src.Offset(x1, y0)
	i01, i11 := src.Offset(x0, y1), src.Offset(x1, y1)
	for c := 0; c < 3; c++ {
		top := float64(src.Pix[i00+c])*(1-fx) + float64(src.Pix[i10+c])*fx
		bot := float64(src.Pix[i01+c])*(1-fx) + float64(src.Pix[i11+c])*fx
		dst[di+c] = toByte(top*(1-fy) + bot*fy)
	}
}

// warp resamples every pixel from a snapshot through fn, which maps a
// destination coordinate to a source coordinate. Sampling is clamped.
func warp(buf *frame.Buffer, fn func(x, y int) (float64, float64)) {
	src := buf.Clone()
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			sx, sy := fn(x, y)
			sampleNearest(buf.Pix, buf.Offset(x, y), src, sx, sy)
		}
	}
}

func blockAverage(buf *frame.Buffer, x0, y0, x1, y1 int) (r, g, b float64) {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := buf.Offset(x, y)
			r += float64(buf.Pix[i])
			g += float64(buf.Pix[i+1])
			b += float64(buf.Pix[i+2])
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return r / float64(n), g / float64(n), b / float64(n)
}

func fillRect(buf *frame.Buffer, x0, y0, x1, y1 int, r, g, b uint8) {
	x0, y0 = max(0, x0), max(0, y0)
	x1, y1 = min(buf.Width, x1), min(buf.Height, y1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := buf.Offset(x, y)
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = r, g, b
		}
	}
}

func rgbToHSL(r, g, b uint8) (h, s, l float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	mx := math.Max(rf, math.Max(gf, bf))
	mn := math.Min(rf, math.Min(gf, bf))
	l = (mx + mn) / 2
	if mx == mn {
		return 0, 0, l
	}
	d := mx - mn
	if l > 0.5 {
		s = d / (2 - mx - mn)
	} else {
		s = d / (mx + mn)
	}
	switch mx {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	return h * 60, s, l
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := toByte(l * 255)
		return v, v, v
	}
	h /= 360
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return toByte(hueToRGB(p, q, h+1.0/3) * 255),
		toByte(hueToRGB(p, q, h) * 255),
		toByte(hueToRGB(p, q, h-1.0/3) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
