package effects

import (
	"math"
	"math/rand"

	"github.com/ivlev/framefx/internal/frame"
)

type chaos struct {
	intensity float64
	layers    int
}

func newChaos(p Params) Effect {
	d := newDecoder(Chaos, p)
	return chaos{intensity: d.float("intensity"), layers: max(1, d.int("layers"))}
}

// chaosLayers are the random disruptions chaos stacks. Each reads from src,
// the snapshot taken after the previous layer, and writes into buf.
var chaosLayers = [...]func(buf, src *frame.Buffer, in float64){
	chaosSlices,
	chaosRGB,
	chaosBlocks,
	chaosSpeckle,
	chaosRowWave,
	chaosChannelRows,
	chaosInvertRegions,
	chaosStretch,
	chaosRuns,
	chaosLines,
}

func (e chaos) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	src := buf.Clone()
	for l := 0; l < e.layers; l++ {
		layer := chaosLayers[rand.Intn(len(chaosLayers))]
		layer(buf, src, e.intensity*(0.5+rand.Float64()*0.5))
		copy(src.Pix, buf.Pix)
	}
}

func chaosSlices(buf, src *frame.Buffer, in float64) {
	w, h := buf.Width, buf.Height
	n := 5 + rand.Intn(20)
	for s := 0; s < n; s++ {
		y0 := rand.Intn(h)
		sh := 1 + rand.Intn(10)
		off := int(math.Floor((rand.Float64() - 0.5) * in * 2))
		for y := y0; y < min(y0+sh, h); y++ {
			for x := 0; x < w; x++ {
				copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(wrap(x+off, w), y))
			}
		}
	}
}

func chaosRGB(buf, src *frame.Buffer, in float64) {
	w := buf.Width
	off := int(in / 5)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < w; x++ {
			i := buf.Offset(x, y)
			rx := clampI(x-off+rand.Intn(4), 0, w-1)
			bx := clampI(x+off+rand.Intn(4), 0, w-1)
			buf.Pix[i] = src.Pix[src.Offset(rx, y)]
			buf.Pix[i+2] = src.Pix[src.Offset(bx, y)+2]
		}
	}
}

func chaosBlocks(buf, src *frame.Buffer, in float64) {
	w, h := buf.Width, buf.Height
	size := 8 + rand.Intn(32)
	n := int(in / 5)
	for b := 0; b < n; b++ {
		bx, by := rand.Intn(w), rand.Intn(h)
		sx, sy := rand.Intn(w), rand.Intn(h)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				if by+y < h && bx+x < w && sy+y < h && sx+x < w {
					copyPixel(buf.Pix, buf.Offset(bx+x, by+y), src.Pix, src.Offset(sx+x, sy+y))
				}
			}
		}
	}
}

func chaosSpeckle(buf, _ *frame.Buffer, in float64) {
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		if rand.Float64() < in/200 {
			buf.Pix[i] = uint8(rand.Intn(256))
			buf.Pix[i+1] = uint8(rand.Intn(256))
			buf.Pix[i+2] = uint8(rand.Intn(256))
		}
	}
}

func chaosRowWave(buf, src *frame.Buffer, in float64) {
	w := buf.Width
	amp := in / 2
	for y := 0; y < buf.Height; y++ {
		off := int(math.Floor(math.Sin(float64(y)*0.1+rand.Float64()*10) * amp))
		for x := 0; x < w; x++ {
			copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(clampI(x+off, 0, w-1), y))
		}
	}
}

func chaosChannelRows(buf, _ *frame.Buffer, in float64) {
	rows := int(in / 10)
	for r := 0; r < rows; r++ {
		y := rand.Intn(buf.Height)
		c := rand.Intn(3)
		for x := 0; x < buf.Width; x++ {
			v := uint8(0)
			if rand.Float64() > 0.5 {
				v = 255
			}
			buf.Pix[buf.Offset(x, y)+c] = v
		}
	}
}

func chaosInvertRegions(buf, _ *frame.Buffer, in float64) {
	w, h := buf.Width, buf.Height
	n := int(in / 15)
	for r := 0; r < n; r++ {
		rx, ry := rand.Intn(w), rand.Intn(h)
		rw, rh := 20+rand.Intn(80), 10+rand.Intn(40)
		for y := ry; y < min(ry+rh, h); y++ {
			for x := rx; x < min(rx+rw, w); x++ {
				i := buf.Offset(x, y)
				buf.Pix[i] = 255 - buf.Pix[i]
				buf.Pix[i+1] = 255 - buf.Pix[i+1]
				buf.Pix[i+2] = 255 - buf.Pix[i+2]
			}
		}
	}
}

func chaosStretch(buf, src *frame.Buffer, in float64) {
	w := buf.Width
	for y := 0; y < buf.Height; y++ {
		if rand.Float64() >= in/100 {
			continue
		}
		stretch := 1 + float64(rand.Intn(20))*0.1
		for x := 0; x < w; x++ {
			sx := int(float64(x)/stretch) % w
			copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(sx, y))
		}
	}
}

func chaosRuns(buf, _ *frame.Buffer, in float64) {
	px := len(buf.Pix) / 4
	n := int(in)
	for c := 0; c < n; c++ {
		start := rand.Intn(px) * 4
		end := min(start+rand.Intn(100)*4, len(buf.Pix))
		r, g, b := uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256))
		for i := start; i < end; i += 4 {
			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = r, g, b
		}
	}
}

func chaosLines(buf, _ *frame.Buffer, in float64) {
	n := int(in / 5)
	for l := 0; l < n; l++ {
		x := rand.Intn(buf.Width)
		r, g, b := uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256))
		for y := 0; y < buf.Height; y++ {
			if rand.Float64() < 0.8 {
				i := buf.Offset(x, y)
				buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = r, g, b
			}
		}
	}
}
