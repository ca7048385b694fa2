package effects

import (
	"math"
	"math/rand"

	"github.com/ivlev/framefx/internal/frame"
)

type displacement struct {
	scale    float64
	animated bool
}

func newDisplacement(p Params) Effect {
	d := newDecoder(Displacement, p)
	return displacement{scale: d.float("scale"), animated: d.bool("animated")}
}

func (e displacement) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.scale == 0 {
		return
	}
	src := buf.Clone()
	t := float64(fc.Tick)
	for y := 0; y < buf.Height; y++ {
		var wave float64
		if e.animated {
			wave = math.Sin(t*0.05+float64(y)*0.05) * e.scale * 0.3
		}
		for x := 0; x < buf.Width; x++ {
			i := buf.Offset(x, y)
			lum := avgLum(src.Pix, i) / 255
			sx := clampI(x+int(math.Floor((lum-0.5)*e.scale+wave)), 0, buf.Width-1)
			copyPixel(buf.Pix, i, src.Pix, src.Offset(sx, y))
		}
	}
}

type wave struct {
	amplitude, frequency float64
	direction            string
	animated             bool
}

func newWave(p Params) Effect {
	d := newDecoder(WaveDistortion, p)
	return wave{
		amplitude: d.float("amplitude"),
		frequency: d.float("frequency"),
		direction: d.choice("direction"),
		animated:  d.bool("animated"),
	}
}

func (e wave) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.amplitude == 0 {
		return
	}
	var phase float64
	if e.animated {
		phase = float64(fc.Tick) * 0.1
	}
	horizontal := e.direction == "horizontal" || e.direction == "both"
	vertical := e.direction == "vertical" || e.direction == "both"
	warp(buf, func(x, y int) (float64, float64) {
		sx, sy := float64(x), float64(y)
		if horizontal {
			sx += math.Sin(float64(y)*e.frequency+phase) * e.amplitude
		}
		if vertical {
			sy += math.Sin(float64(x)*e.frequency+phase) * e.amplitude
		}
		return sx, sy
	})
}

type twirl struct {
	angle, radius float64
}

func newTwirl(p Params) Effect {
	d := newDecoder(Twirl, p)
	return twirl{angle: d.float("angle"), radius: d.float("radius")}
}

func (e twirl) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.angle == 0 {
		return
	}
	cx, cy := float64(buf.Width)/2, float64(buf.Height)/2
	maxDist := math.Hypot(cx, cy)
	warp(buf, func(x, y int) (float64, float64) {
		dx, dy := float64(x)-cx, float64(y)-cy
		dist := math.Hypot(dx, dy)
		nd := dist / maxDist
		if nd >= e.radius {
			return float64(x), float64(y)
		}
		a := math.Atan2(dy, dx) + e.angle*(1-nd/e.radius)
		return cx + math.Cos(a)*dist, cy + math.Sin(a)*dist
	})
}

type ripple struct {
	amplitude, frequency, centerX, centerY float64
}

func newRipple(p Params) Effect {
	d := newDecoder(Ripple, p)
	return ripple{
		amplitude: d.float("amplitude"),
		frequency: d.float("frequency"),
		centerX:   d.float("centerX"),
		centerY:   d.float("centerY"),
	}
}

func (e ripple) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.amplitude == 0 {
		return
	}
	cx, cy := e.centerX*float64(buf.Width), e.centerY*float64(buf.Height)
	t := float64(fc.Tick)
	warp(buf, func(x, y int) (float64, float64) {
		dx, dy := float64(x)-cx, float64(y)-cy
		r := math.Sin(math.Hypot(dx, dy)*e.frequency-t*0.1) * e.amplitude
		a := math.Atan2(dy, dx)
		return float64(x) + math.Cos(a)*r, float64(y) + math.Sin(a)*r
	})
}

type heavyDistortion struct {
	intensity, frequency, speed float64
}

func newHeavyDistortion(p Params) Effect {
	d := newDecoder(HeavyDistortion, p)
	return heavyDistortion{intensity: d.float("intensity"), frequency: d.float("frequency"), speed: d.float("speed")}
}

func (e heavyDistortion) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	src := buf.Clone()
	w, h := buf.Width, buf.Height
	in, f := e.intensity, e.frequency
	t := float64(fc.Tick) * e.speed
	chaos := rand.Float64() * 50 * (in / 100)

	for y := 0; y < h; y++ {
		var rowJitter float64
		if rand.Float64() < in/200 {
			rowJitter = (rand.Float64() - 0.5) * 100
		}
		fy := float64(y)
		ny := fy / float64(h)
		for x := 0; x < w; x++ {
			fx := float64(x)
			nx := fx / float64(w)

			wave1 := math.Sin(fy*f+t+chaos) * in * 0.8
			wave2 := math.Cos(fx*f*0.7+t*1.3) * in * 0.4
			wave3 := math.Sin((fx+fy)*f*0.3+t*0.7) * in * 0.3
			turbulence := math.Sin(nx*20+t) * math.Cos(ny*15+t*1.2) * in * 0.5

			offX := wave1 + wave3 + turbulence + rowJitter
			offY := wave2 + math.Sin(fx*0.05+t)*in*0.2
			if rand.Float64() < in/500 {
				offX += (rand.Float64() - 0.5) * float64(w) * 0.3
				offY += (rand.Float64() - 0.5) * float64(h) * 0.1
			}

			sx := clampI(int(math.Round(fx+offX)), 0, w-1)
			sy := clampI(int(math.Round(fy+offY)), 0, h-1)
			di := buf.Offset(x, y)

			if rand.Float64() < in/300 {
				jitter := func() int {
					return clampI(sx+int(math.Floor((rand.Float64()-0.5)*20)), 0, w-1)
				}
				buf.Pix[di] = src.Pix[src.Offset(jitter(), sy)]
				buf.Pix[di+1] = src.Pix[src.Offset(jitter(), sy)+1]
				buf.Pix[di+2] = src.Pix[src.Offset(jitter(), sy)+2]
				continue
			}
			copyPixel(buf.Pix, di, src.Pix, src.Offset(sx, sy))
		}
	}
}

type melt struct {
	intensity float64
	down      bool
}

type meltState struct {
	pix []byte
}

func newMelt(p Params) Effect {
	d := newDecoder(Melt, p)
	return melt{intensity: d.float("intensity"), down: d.choice("direction") == "down"}
}

// Apply blends each column with the previous melted output shifted along the
// melt direction, so the image keeps sliding across frames.
func (e melt) Apply(buf *frame.Buffer, fc *frame.Context, st *State) {
	if e.intensity == 0 {
		return
	}
	ms, fresh := stateFor(st, buf.Width, buf.Height, func() *meltState {
		return &meltState{pix: make([]byte, len(buf.Pix))}
	})
	if fresh {
		copy(ms.pix, buf.Pix)
		return
	}

	w, h := buf.Width, buf.Height
	prev := ms.pix
	src := buf.Clone()
	speed := e.intensity / 20
	t := float64(fc.Tick)

	mix := func(di int, a []byte, ai int, b []byte, bi int, blend float64) {
		for c := 0; c < 3; c++ {
			buf.Pix[di+c] = toByte(float64(a[ai+c])*blend + float64(b[bi+c])*(1-blend))
		}
	}

	for x := 0; x < w; x++ {
		noise := math.Sin(float64(x)*0.1+t)*0.5 + 0.5
		amount := int(math.Floor(speed*(1+noise*2) + rand.Float64()*3))
		if e.down {
			for y := h - 1; y >= amount; y-- {
				di := buf.Offset(x, y)
				mix(di, prev, buf.Offset(x, y-amount), src.Pix, di, 0.7+rand.Float64()*0.3)
			}
			for y := 0; y < amount && y < h; y++ {
				di := buf.Offset(x, y)
				mix(di, src.Pix, di, prev, di, 0.3+rand.Float64()*0.4)
			}
		} else {
			for y := 0; y < h-amount; y++ {
				di := buf.Offset(x, y)
				mix(di, prev, buf.Offset(x, y+amount), src.Pix, di, 0.7+rand.Float64()*0.3)
			}
		}
	}

	if rand.Float64() < e.intensity/100 {
		dx := rand.Intn(w)
		length := 20 + rand.Intn(100)
		r := buf.Pix[buf.Offset(dx, rand.Intn(h))]
		g := buf.Pix[buf.Offset(dx, rand.Intn(h))+1]
		b := buf.Pix[buf.Offset(dx, rand.Intn(h))+2]
		for k := 0; k < length; k++ {
			y := k
			if !e.down {
				y = h - 1 - k
			}
			if y < 0 || y >= h {
				continue
			}
			fade := 1 - float64(k)/float64(length)*0.5
			i := buf.Offset(dx, y)
			buf.Pix[i] = toByte(float64(r) * fade)
			buf.Pix[i+1] = toByte(float64(g) * fade)
			buf.Pix[i+2] = toByte(float64(b) * fade)
		}
	}

	copy(ms.pix, buf.Pix)
}

// perlinPerm is a fixed permutation table so noise fields are identical across
// processes.
var perlinPerm = func() [512]int {
	var p [512]int
	r := rand.New(rand.NewSource(1337))
	base := r.Perm(256)
	for i := range p {
		p[i] = base[i&255]
	}
	return p
}()

func perlinNoise(x, y float64) float64 {
	fade := func(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }
	lerp := func(t, a, b float64) float64 { return a + t*(b-a) }
	grad := func(hash int, x, y float64) float64 {
		h := hash & 3
		u, v := x, y
		if h >= 2 {
			u, v = y, x
		}
		if h&1 != 0 {
			u = -u
		}
		if h&2 != 0 {
			v = -v
		}
		return u + v
	}

	xi, yi := int(math.Floor(x))&255, int(math.Floor(y))&255
	xf, yf := x-math.Floor(x), y-math.Floor(y)
	u, v := fade(xf), fade(yf)
	p := &perlinPerm
	aa := p[p[xi]+yi]
	ab := p[p[xi]+yi+1]
	ba := p[p[xi+1]+yi]
	bb := p[p[xi+1]+yi+1]
	return lerp(v,
		lerp(u, grad(aa, xf, yf), grad(ba, xf-1, yf)),
		lerp(u, grad(ab, xf, yf-1), grad(bb, xf-1, yf-1)))
}

type perlinDistort struct {
	intensity, scale, speed float64
}

func newPerlinDistort(p Params) Effect {
	d := newDecoder(PerlinDistort, p)
	return perlinDistort{intensity: d.float("intensity"), scale: d.float("scale"), speed: d.float("speed")}
}

func (e perlinDistort) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	t := float64(fc.Tick) * e.speed
	amp := e.intensity * 0.5
	warp(buf, func(x, y int) (float64, float64) {
		nx, ny := float64(x)*e.scale, float64(y)*e.scale
		ox := math.Floor(perlinNoise(nx+t, ny) * amp)
		oy := math.Floor(perlinNoise(nx, ny+t) * amp)
		return float64(x) + ox, float64(y) + oy
	})
}

type mirror struct {
	mode string
}

func newMirror(p Params) Effect {
	return mirror{mode: newDecoder(Mirror, p).choice("mode")}
}

const kaleidoscopeSegments = 6

func (e mirror) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	w, h := buf.Width, buf.Height
	cx, cy := float64(w)/2, float64(h)/2
	seg := 2 * math.Pi / kaleidoscopeSegments
	warp(buf, func(x, y int) (float64, float64) {
		sx, sy := x, y
		flipX := e.mode == "horizontal" || e.mode == "quad"
		flipY := e.mode == "vertical" || e.mode == "quad"
		if flipX && float64(x) >= cx {
			sx = w - 1 - x
		}
		if flipY && float64(y) >= cy {
			sy = h - 1 - y
		}
		if e.mode == "kaleidoscope" {
			dx, dy := float64(x)-cx, float64(y)-cy
			dist := math.Hypot(dx, dy)
			a := math.Abs(math.Mod(math.Atan2(dy, dx), seg) - seg/2)
			return cx + math.Cos(a)*dist, cy + math.Sin(a)*dist
		}
		return float64(sx), float64(sy)
	})
}
