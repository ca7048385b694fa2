package effects

import (
	"math"
	"math/rand"

	"github.com/ivlev/framefx/internal/frame"
)

type jpegArtifacts struct {
	quality, blockiness, banding float64
}

const jpegBlock = 8

func newJPEGArtifacts(p Params) Effect {
	d := newDecoder(JPEGArtifacts, p)
	return jpegArtifacts{
		quality:    math.Max(1, d.float("quality")),
		blockiness: d.float("blockiness"),
		banding:    d.float("colorBanding"),
	}
}

// Apply mimics heavy DCT compression: each 8×8 block is pulled toward its
// chroma-quantized mean, block seams darken and low quality adds banding noise.
func (e jpegArtifacts) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	w, h := buf.Width, buf.Height
	src := buf.Clone()
	compression := 1 - e.quality/100
	colorQ := max(2, int(8-e.quality/15))
	chromaQ := max(1, colorQ/2)
	step := 256 / math.Pow(2, float64(chromaQ))
	blend := compression * 0.8
	edge := e.blockiness / 100 * 40

	for y0 := 0; y0 < h; y0 += jpegBlock {
		for x0 := 0; x0 < w; x0 += jpegBlock {
			x1, y1 := min(x0+jpegBlock, w), min(y0+jpegBlock, h)
			ar, ag, ab := blockAverage(src, x0, y0, x1, y1)
			avg := [3]float64{
				math.Round(ar/step) * step,
				math.Round(ag/step) * step,
				math.Round(ab/step) * step,
			}
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					i := buf.Offset(x, y)
					for c := 0; c < 3; c++ {
						buf.Pix[i+c] = toByte(float64(src.Pix[i+c])*(1-blend) + avg[c]*blend)
					}
				}
			}
			if e.blockiness <= 30 {
				continue
			}
			darken := func(i int) {
				for c := 0; c < 3; c++ {
					buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) - edge)
				}
			}
			for x := x0; x < x1; x++ {
				darken(buf.Offset(x, y0))
			}
			for y := y0 + 1; y < y1; y++ {
				darken(buf.Offset(x0, y))
			}
		}
	}

	if e.banding > 30 && compression > 0.3 {
		amp := e.banding / 100 * 20
		for i := 0; i+3 < len(buf.Pix); i += 4 {
			n := (rand.Float64() - 0.5) * amp
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = toByte(float64(buf.Pix[i+c]) + n)
			}
		}
	}
}

type codecDamage struct {
	intensity, bleed float64
	block            int
	temporal         bool
}

func newCodecDamage(p Params) Effect {
	d := newDecoder(CodecDamage, p)
	return codecDamage{
		intensity: d.float("intensity"),
		block:     max(1, d.int("blockSize")),
		bleed:     d.float("colorBleed"),
		temporal:  d.bool("temporal"),
	}
}

// Apply corrupts tick-seeded macroblocks by copying, flattening or shifting
// them, then bleeds chroma across double-size blocks.
func (e codecDamage) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h, bs := buf.Width, buf.Height, e.block
	src := buf.Clone()
	cols, rows := (w+bs-1)/bs, (h+bs-1)/bs
	var seed float64
	if e.temporal {
		seed = math.Floor(float64(fc.Tick) / 10)
	}

	n := int(float64(min(100, cols*rows)) * e.intensity / 100 * 0.5)
	for k := 0; k < n; k++ {
		fk := float64(k)
		x0 := int(pseudoRandom(seed+fk*100)*float64(cols)) * bs
		y0 := int(pseudoRandom(seed+fk*200)*float64(rows)) * bs
		x1, y1 := min(x0+bs, w), min(y0+bs, h)

		switch int(pseudoRandom(seed+fk*300) * 3) {
		case 0:
			sx0 := int(pseudoRandom(seed+fk*400)*float64(cols)) * bs
			sy0 := int(pseudoRandom(seed+fk*500)*float64(rows)) * bs
			for y := y0; y < y1; y++ {
				sy := sy0 + y - y0
				if sy >= h {
					continue
				}
				for x := x0; x < x1; x++ {
					if sx := sx0 + x - x0; sx < w {
						copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(sx, sy))
					}
				}
			}
		case 1:
			var sr, sg, sb float64
			cnt := 0
			for y := y0; y < y1; y += 2 {
				for x := x0; x < x1; x += 2 {
					i := src.Offset(x, y)
					sr += float64(src.Pix[i])
					sg += float64(src.Pix[i+1])
					sb += float64(src.Pix[i+2])
					cnt++
				}
			}
			if cnt > 0 {
				c := float64(cnt)
				fillRect(buf, x0, y0, x1, y1, toByte(sr/c), toByte(sg/c), toByte(sb/c))
			}
		default:
			shiftX := int(math.Floor((pseudoRandom(seed+fk*600) - 0.5) * float64(bs) * 0.5))
			shiftY := int(math.Floor((pseudoRandom(seed+fk*700) - 0.5) * float64(bs) * 0.5))
			for y := y0; y < y1; y++ {
				sy := wrap(y+shiftY, h)
				for x := x0; x < x1; x++ {
					copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(wrap(x+shiftX, w), sy))
				}
			}
		}
	}

	if e.bleed > 20 {
		e.bleedChroma(buf)
	}
}

func (e codecDamage) bleedChroma(buf *frame.Buffer) {
	w, h := buf.Width, buf.Height
	bs := e.block * 2
	k := e.bleed / 100
	boost := 1 + k*0.3
	luma := func(r, g, b float64) float64 { return r*0.299 + g*0.587 + b*0.114 }

	for y0 := 0; y0 < h; y0 += bs {
		for x0 := 0; x0 < w; x0 += bs {
			x1, y1 := min(x0+bs, w), min(y0+bs, h)
			ar, ag, ab := blockAverage(buf, x0, y0, x1, y1)
			ar, ag, ab = math.Min(255, ar*boost), math.Min(255, ag*boost), math.Min(255, ab*boost)
			al := luma(ar, ag, ab)
			avgChroma := [3]float64{ar - al, ag - al, ab - al}
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					i := buf.Offset(x, y)
					r, g, b := float64(buf.Pix[i]), float64(buf.Pix[i+1]), float64(buf.Pix[i+2])
					l := luma(r, g, b)
					px := [3]float64{r, g, b}
					for c := 0; c < 3; c++ {
						buf.Pix[i+c] = toByte(l + (px[c]-l)*(1-k) + avgChroma[c]*k)
					}
				}
			}
		}
	}
}
