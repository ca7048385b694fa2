package effects

import (
	"math"
	"math/rand"

	"github.com/ivlev/framefx/internal/frame"
)

type vhs struct {
	intensity float64
}

func newVHS(p Params) Effect {
	return vhs{intensity: newDecoder(VHS, p).float("intensity")}
}

// Apply wobbles each row with tracking error, splits chroma and lays down
// tape noise and dark tracking bands. All randomness is seeded by tick/3.
func (e vhs) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	in := e.intensity
	if in == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	src := buf.Clone()
	t := float64(fc.Tick)
	seed := math.Floor(t / 3)

	phase := math.Sin(t*0.017) * math.Pi
	freq := 0.008 + math.Sin(t*0.023)*0.003
	amp := (in / 30) * (0.8 + math.Sin(t*0.031)*0.4)
	chroma := int(in / 20)

	for y := 0; y < h; y++ {
		fy := float64(y)
		tracking := math.Sin(fy*freq+phase)*amp +
			math.Sin(fy*freq*2.3+t*0.07)*(in/80) +
			pseudoRandom(seed+math.Floor(fy/10))*(in/150)
		var jitter float64
		if pseudoRandom(seed+fy) < 0.02 {
			jitter = math.Floor((pseudoRandom(seed+fy*2) - 0.5) * in)
		}
		for x := 0; x < w; x++ {
			i := buf.Offset(x, y)
			sx := clampI(int(math.Floor(float64(x)+tracking+jitter)), 0, w-1)
			buf.Pix[i] = src.Pix[src.Offset(clampI(sx+chroma, 0, w-1), y)]
			buf.Pix[i+1] = src.Pix[src.Offset(sx, y)+1]
			buf.Pix[i+2] = src.Pix[src.Offset(clampI(sx-chroma, 0, w-1), y)+2]
		}
	}

	noiseChance := in / 200
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		fi := float64(i)
		if pseudoRandom(seed+fi) < noiseChance {
			n := (pseudoRandom(seed+fi+1) - 0.5) * 100
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + n)
			}
		}
	}

	lines := int(in / 30)
	for l := 0; l < lines; l++ {
		fl := float64(l)
		ly := int(pseudoRandom(seed+fl*1000) * float64(h))
		thick := 1 + int(pseudoRandom(seed+fl*2000)*3)
		for dy := 0; dy < thick && ly+dy < h; dy++ {
			for x := 0; x < w; x++ {
				i := buf.Offset(x, ly+dy)
				b := 0.3 + pseudoRandom(seed+float64(x)+fl)*0.4
				for c := 0; c < 3; c++ {
					buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) * b)
				}
			}
		}
	}
}

type crt struct {
	curvature, scanlines float64
}

func newCRT(p Params) Effect {
	d := newDecoder(CRT, p)
	return crt{curvature: d.float("curvature"), scanlines: d.float("scanlines")}
}

func (e crt) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.curvature == 0 && e.scanlines == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	cx, cy := float64(w)/2, float64(h)/2
	warp(buf, func(x, y int) (float64, float64) {
		dx, dy := (float64(x)-cx)/float64(w), (float64(y)-cy)/float64(h)
		curve := 1 + e.curvature*(dx*dx+dy*dy)
		return cx + dx*float64(w)*curve, cy + dy*float64(h)*curve
	})
	dark := 1 - e.scanlines
	for y := 0; y < h; y += 3 {
		for x := 0; x < w; x++ {
			i := buf.Offset(x, y)
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) * dark)
			}
		}
	}
}

type filmGrain struct {
	intensity float64
}

func newFilmGrain(p Params) Effect {
	return filmGrain{intensity: newDecoder(FilmGrain, p).float("intensity")}
}

func (e filmGrain) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	strength := e.intensity * 2.55
	seed := math.Floor(float64(fc.Tick) / 2)
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		n := (pseudoRandom(seed+float64(i)) - 0.5) * strength
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + n)
		}
	}
}

type scanlines struct {
	spacing int
	opacity float64
}

func newScanlines(p Params) Effect {
	d := newDecoder(Scanlines, p)
	return scanlines{spacing: max(1, d.int("spacing")), opacity: d.float("opacity")}
}

func (e scanlines) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.opacity == 0 {
		return
	}
	dark := 1 - e.opacity
	for y := 0; y < buf.Height; y += e.spacing {
		for x := 0; x < buf.Width; x++ {
			i := buf.Offset(x, y)
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) * dark)
			}
		}
	}
}

var bayer4 = [4][4]float64{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

type dither struct {
	depth int
}

func newDither(p Params) Effect {
	return dither{depth: max(2, newDecoder(Dither, p).int("depth"))}
}

// Apply quantizes each channel to depth levels with ordered 4×4 Bayer noise.
func (e dither) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	step := 255 / float64(e.depth-1)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			n := (bayer4[y%4][x%4]/16 - 0.5) * step
			i := buf.Offset(x, y)
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = toByte(math.Round((float64(buf.Pix[i+c])+n)/step) * step)
			}
		}
	}
}

type scanSweep struct {
	speed     float64
	count     int
	thickness int
	vertical  bool
}

func newScanSweep(p Params) Effect {
	d := newDecoder(ScanSweep, p)
	return scanSweep{
		speed:     d.float("speed"),
		count:     max(1, d.int("count")),
		thickness: max(1, d.int("thickness")),
		vertical:  d.choice("direction") == "vertical",
	}
}

// Apply sweeps count bright bars across the frame and occasionally flashes a
// white glitch band.
func (e scanSweep) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	dim := buf.Height
	if e.vertical {
		dim = buf.Width
	}
	if dim == 0 {
		return
	}
	line := func(pos int, fn func(i int)) {
		if e.vertical {
			for y := 0; y < buf.Height; y++ {
				fn(buf.Offset(pos, y))
			}
			return
		}
		for x := 0; x < buf.Width; x++ {
			fn(buf.Offset(x, pos))
		}
	}

	for k := 0; k < e.count; k++ {
		offset := float64(k) / float64(e.count) * float64(dim)
		pos := math.Mod(float64(fc.Tick)*e.speed*100+offset, float64(dim))
		for t := 0; t < e.thickness; t++ {
			at := int(math.Floor(pos+float64(t))) % dim
			add := 100 * (1 - float64(t)/float64(e.thickness)*0.5)
			line(at, func(i int) {
				for c := 0; c < 3; c++ {
					buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + add)
				}
			})
		}
	}

	if rand.Float64() < 0.05 {
		start := rand.Intn(dim)
		size := 2 + rand.Intn(5)
		for t := 0; t < size; t++ {
			line((start+t)%dim, func(i int) {
				buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = 255, 255, 255
			})
		}
	}
}
