package effects

import (
	"math"

	"github.com/ivlev/framefx/internal/frame"
)

type noise struct {
	intensity float64
	colored   bool
}

func newNoise(p Params) Effect {
	d := newDecoder(Noise, p)
	return noise{intensity: d.float("intensity"), colored: d.bool("colored")}
}

// Apply sprinkles static over a tick-seeded subset of pixels; the first draw
// both selects a pixel and scales its noise.
func (e noise) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	amount := e.intensity / 100
	seed := math.Floor(float64(fc.Tick) * 1000)
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		base := seed + float64(i*7)
		r := pseudoRandom(base)
		if r >= amount {
			continue
		}
		strength := r / amount * 255
		if e.colored {
			for c := 0; c < 3; c++ {
				n := (pseudoRandom(base+float64(c+1)) - 0.5) * 2
				buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + n*strength)
			}
			continue
		}
		n := (pseudoRandom(base+1) - 0.5) * 2 * strength
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + n)
		}
	}
}
