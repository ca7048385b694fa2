package effects

import (
	"math"

	"github.com/ivlev/framefx/internal/frame"
)

type invert struct{}

func newInvert(Params) Effect { return invert{} }

func (invert) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		buf.Pix[i] = 255 - buf.Pix[i]
		buf.Pix[i+1] = 255 - buf.Pix[i+1]
		buf.Pix[i+2] = 255 - buf.Pix[i+2]
	}
}

type posterize struct {
	levels int
}

func newPosterize(p Params) Effect {
	d := newDecoder(Posterize, p)
	return posterize{levels: max(2, d.int("levels"))}
}

func (e posterize) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	step := 255 / float64(e.levels-1)
	var lut [256]uint8
	for v := range lut {
		lut[v] = toByte(math.Round(float64(v)/step) * step)
	}
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		buf.Pix[i] = lut[buf.Pix[i]]
		buf.Pix[i+1] = lut[buf.Pix[i+1]]
		buf.Pix[i+2] = lut[buf.Pix[i+2]]
	}
}

type solarize struct {
	threshold float64
}

// newSolarize derives the threshold from intensity; the stored threshold key
// is kept only so older presets still load.
func newSolarize(p Params) Effect {
	d := newDecoder(Solarize, p)
	return solarize{threshold: 255 - d.float("intensity")*2.55}
}

func (e solarize) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			if float64(buf.Pix[i+c]) > e.threshold {
				buf.Pix[i+c] = 255 - buf.Pix[i+c]
			}
		}
	}
}

type duotone struct {
	shadow, highlight RGB
}

func newDuotone(p Params) Effect {
	d := newDecoder(Duotone, p)
	return duotone{shadow: d.color("color1"), highlight: d.color("color2")}
}

func (e duotone) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	lerp := func(a, b uint8, t float64) uint8 {
		return toByte(float64(a) + (float64(b)-float64(a))*t)
	}
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		t := avgLum(buf.Pix, i) / 255
		buf.Pix[i] = lerp(e.shadow.R, e.highlight.R, t)
		buf.Pix[i+1] = lerp(e.shadow.G, e.highlight.G, t)
		buf.Pix[i+2] = lerp(e.shadow.B, e.highlight.B, t)
	}
}

type colorShift struct {
	speed float64
}

func newColorShift(p Params) Effect {
	return colorShift{speed: newDecoder(ColorShift, p).float("speed")}
}

func (e colorShift) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	shift := math.Mod(float64(fc.Tick)*e.speed, 360)
	if shift == 0 {
		return
	}
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		h, s, l := rgbToHSL(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2])
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = hslToRGB(math.Mod(h+shift, 360), s, l)
	}
}

type channelSwap struct {
	mode string
}

func newChannelSwap(p Params) Effect {
	return channelSwap{mode: newDecoder(ChannelSwap, p).choice("swap")}
}

func (e channelSwap) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		r, g, b := buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]
		switch e.mode {
		case "rg":
			buf.Pix[i], buf.Pix[i+1] = g, r
		case "rb":
			buf.Pix[i], buf.Pix[i+2] = b, r
		case "gb":
			buf.Pix[i+1], buf.Pix[i+2] = b, g
		case "rgb":
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = g, b, r
		}
	}
}

var thermalGradients = map[string][8][3]float64{
	"thermal": {
		{0, 0, 0}, {30, 0, 100}, {120, 0, 180}, {220, 0, 100},
		{255, 50, 0}, {255, 150, 0}, {255, 255, 100}, {255, 255, 255},
	},
	"night-vision": {
		{0, 0, 0}, {0, 20, 0}, {0, 60, 0}, {0, 120, 0},
		{0, 180, 0}, {50, 220, 50}, {150, 255, 150}, {220, 255, 220},
	},
	"infrared": {
		{0, 0, 50}, {0, 0, 150}, {100, 0, 200}, {200, 0, 150},
		{255, 50, 50}, {255, 150, 50}, {255, 220, 150}, {255, 255, 255},
	},
}

// gradientAt interpolates an 8-stop gradient at t in [0,1].
func gradientAt(g *[8][3]float64, t float64) (uint8, uint8, uint8) {
	pos := clampF(t, 0, 1) * 7
	idx := min(6, int(pos))
	f := pos - float64(idx)
	a, b := g[idx], g[idx+1]
	return toByte(a[0] + (b[0]-a[0])*f), toByte(a[1] + (b[1]-a[1])*f), toByte(a[2] + (b[2]-a[2])*f)
}

type thermal struct {
	gradient [8][3]float64
}

func newThermal(p Params) Effect {
	return thermal{gradient: thermalGradients[newDecoder(Thermal, p).choice("palette")]}
}

func (e thermal) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = gradientAt(&e.gradient, avgLum(buf.Pix, i)/255)
	}
}

type vignette struct {
	intensity, radius float64
}

func newVignette(p Params) Effect {
	d := newDecoder(Vignette, p)
	return vignette{intensity: d.float("intensity"), radius: d.float("radius")}
}

func (e vignette) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	cx, cy := float64(buf.Width)/2, float64(buf.Height)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist / e.radius
			d = math.Min(d, 1)
			factor := 1 - d*d*e.intensity
			i := buf.Offset(x, y)
			buf.Pix[i] = toByte(float64(buf.Pix[i]) * factor)
			buf.Pix[i+1] = toByte(float64(buf.Pix[i+1]) * factor)
			buf.Pix[i+2] = toByte(float64(buf.Pix[i+2]) * factor)
		}
	}
}

type chromaticAberration struct {
	offset int
}

func newChromaticAberration(p Params) Effect {
	return chromaticAberration{offset: newDecoder(ChromaticAberration, p).int("offset")}
}

func (e chromaticAberration) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.offset == 0 {
		return
	}
	src := buf.Clone()
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			i := buf.Offset(x, y)
			buf.Pix[i] = src.Pix[src.Offset(clampI(x+e.offset, 0, buf.Width-1), y)]
			buf.Pix[i+2] = src.Pix[src.Offset(clampI(x-e.offset, 0, buf.Width-1), y)+2]
		}
	}
}

type bloom struct {
	threshold, intensity float64
	radius               int
}

func newBloom(p Params) Effect {
	d := newDecoder(Bloom, p)
	return bloom{threshold: d.float("threshold"), intensity: d.float("intensity"), radius: d.int("radius")}
}

func (e bloom) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 || e.threshold >= 255 {
		return
	}
	w, h := buf.Width, buf.Height
	bright := make([]float64, w*h*3)
	for p := 0; p < w*h; p++ {
		i := p * 4
		lum := avgLum(buf.Pix, i)
		if lum > e.threshold {
			f := (lum - e.threshold) / (255 - e.threshold)
			bright[p*3] = float64(buf.Pix[i]) * f
			bright[p*3+1] = float64(buf.Pix[i+1]) * f
			bright[p*3+2] = float64(buf.Pix[i+2]) * f
		}
	}
	blurred := boxBlur3(bright, w, h, e.radius)
	for p := 0; p < w*h; p++ {
		i := p * 4
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + blurred[p*3+c]*e.intensity)
		}
	}
}

// boxBlur3 runs a horizontal then vertical box pass over a 3-channel float plane.
func boxBlur3(src []float64, w, h, r int) []float64 {
	tmp := make([]float64, len(src))
	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			n := 0
			for k := max(0, x-r); k <= min(w-1, x+r); k++ {
				j := (y*w + k) * 3
				acc[0] += src[j]
				acc[1] += src[j+1]
				acc[2] += src[j+2]
				n++
			}
			j := (y*w + x) * 3
			tmp[j], tmp[j+1], tmp[j+2] = acc[0]/float64(n), acc[1]/float64(n), acc[2]/float64(n)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			n := 0
			for k := max(0, y-r); k <= min(h-1, y+r); k++ {
				j := (k*w + x) * 3
				acc[0] += tmp[j]
				acc[1] += tmp[j+1]
				acc[2] += tmp[j+2]
				n++
			}
			j := (y*w + x) * 3
			out[j], out[j+1], out[j+2] = acc[0]/float64(n), acc[1]/float64(n), acc[2]/float64(n)
		}
	}
	return out
}

type edgeDetect struct {
	threshold float64
	invert    bool
}

func newEdgeDetect(p Params) Effect {
	d := newDecoder(EdgeDetect, p)
	return edgeDetect{threshold: d.float("threshold"), invert: d.bool("invert")}
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func (e edgeDetect) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	src := buf.Clone()
	for y := 1; y < buf.Height-1; y++ {
		for x := 1; x < buf.Width-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					lum := avgLum(src.Pix, src.Offset(x+kx, y+ky))
					gx += lum * sobelX[ky+1][kx+1]
					gy += lum * sobelY[ky+1][kx+1]
				}
			}
			edge := uint8(0)
			if math.Hypot(gx, gy) > e.threshold {
				edge = 255
			}
			if e.invert {
				edge = 255 - edge
			}
			i := buf.Offset(x, y)
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = edge, edge, edge
		}
	}
}
