package effects

import (
	"math"
	"math/rand"
	"sort"

	"github.com/ivlev/framefx/internal/frame"
)

type glitch struct {
	intensity, speed float64
}

func newGlitch(p Params) Effect {
	d := newDecoder(Glitch, p)
	return glitch{intensity: d.float("intensity"), speed: d.float("speed")}
}

func (e glitch) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	src := buf.Clone()
	t := float64(fc.Tick) * (e.speed / 10)
	seed := math.Floor(t / 5)

	slices := int(3 + e.intensity/20)
	for s := 0; s < slices; s++ {
		fs := float64(s)
		sliceY := int(pseudoRandom(seed+fs*1000) * float64(h))
		sliceH := int(2 + pseudoRandom(seed+fs*2000)*(e.intensity/3))
		shift := int(math.Floor((pseudoRandom(seed+fs*3000) - 0.5) * (e.intensity * 2)))
		channel := int(pseudoRandom(seed+fs*4000) * 3)
		for y := sliceY; y < min(sliceY+sliceH, h); y++ {
			for x := 0; x < w; x++ {
				di := buf.Offset(x, y)
				buf.Pix[di+channel] = src.Pix[src.Offset(wrap(x-shift, w), y)+channel]
			}
		}
	}

	if e.intensity <= 30 {
		return
	}
	for c := 0; c < int(e.intensity/20); c++ {
		cf := float64(c)
		y := int(pseudoRandom(seed+cf*5000+t) * float64(h))
		kind := int(pseudoRandom(seed+cf*6000) * 3)
		for x := 0; x < w; x++ {
			i := buf.Offset(x, y)
			switch kind {
			case 0:
				v := uint8(0)
				if pseudoRandom(seed+float64(x)) > 0.5 {
					v = 255
				}
				buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = v, v, v
			case 1:
				v := buf.Pix[buf.Offset(x/8*8, y)+x%3]
				buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = v, v, v
			default:
				buf.Pix[i+int(pseudoRandom(seed+float64(x))*3)] = 255
			}
		}
	}
}

type blockCorrupt struct {
	intensity float64
	blockSize int
}

func newBlockCorrupt(p Params) Effect {
	d := newDecoder(BlockCorrupt, p)
	return blockCorrupt{intensity: d.float("intensity"), blockSize: max(1, d.int("blockSize"))}
}

func (e blockCorrupt) Apply(buf *frame.Buffer, fc *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h, bs := buf.Width, buf.Height, e.blockSize
	src := buf.Clone()
	seed := math.Floor(float64(fc.Tick) / 8)
	blocksX := (w + bs - 1) / bs
	blocksY := (h + bs - 1) / bs
	count := int(float64(blocksX*blocksY) * (e.intensity / 100) * 0.3)

	for n := 0; n < count; n++ {
		fn := float64(n)
		bx := int(pseudoRandom(seed+fn*100) * float64(blocksX))
		by := int(pseudoRandom(seed+fn*200) * float64(blocksY))
		kind := int(pseudoRandom(seed+fn*300) * 4)
		x0, y0 := bx*bs, by*bs
		x1, y1 := min(x0+bs, w), min(y0+bs, h)

		switch kind {
		case 0:
			sx0 := int(pseudoRandom(seed+fn*400)*float64(blocksX)) * bs
			sy0 := int(pseudoRandom(seed+fn*500)*float64(blocksY)) * bs
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sx, sy := sx0+x-x0, sy0+y-y0
					if sx < w && sy < h {
						copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(sx, sy))
					}
				}
			}
		case 1:
			shift := int(math.Floor((pseudoRandom(seed+fn*600) - 0.5) * float64(bs) * 2))
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(wrap(x+shift, w), y))
				}
			}
		case 2:
			r, g, b := blockAverage(src, x0, y0, x1, y1)
			fillRect(buf, x0, y0, x1, y1, toByte(r), toByte(g), toByte(b))
		default:
			i := src.Offset(x0, y0)
			fillRect(buf, x0, y0, x1, y1, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		}
	}
}

type pixelSort struct {
	threshold float64
	vertical  bool
}

func newPixelSort(p Params) Effect {
	d := newDecoder(PixelSort, p)
	return pixelSort{threshold: d.float("threshold"), vertical: d.choice("direction") == "vertical"}
}

func (e pixelSort) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	lines, length := buf.Height, buf.Width
	at := func(line, k int) int { return buf.Offset(k, line) }
	if e.vertical {
		lines, length = buf.Width, buf.Height
		at = func(line, k int) int { return buf.Offset(line, k) }
	}
	for line := 0; line < lines; line++ {
		start := -1
		for k := 0; k < length; k++ {
			if avgLum(buf.Pix, at(line, k)) > e.threshold {
				if start < 0 {
					start = k
				}
				continue
			}
			if start >= 0 {
				sortRun(buf.Pix, line, start, k-1, at)
				start = -1
			}
		}
		if start >= 0 {
			sortRun(buf.Pix, line, start, length-1, at)
		}
	}
}

// sortRun orders pixels start..end (inclusive) of one line by channel sum.
func sortRun(pix []byte, line, start, end int, at func(line, k int) int) {
	run := make([][3]uint8, 0, end-start+1)
	for k := start; k <= end; k++ {
		i := at(line, k)
		run = append(run, [3]uint8{pix[i], pix[i+1], pix[i+2]})
	}
	sum := func(p [3]uint8) int { return int(p[0]) + int(p[1]) + int(p[2]) }
	sort.SliceStable(run, func(a, b int) bool { return sum(run[a]) < sum(run[b]) })
	for k := start; k <= end; k++ {
		i := at(line, k)
		p := run[k-start]
		pix[i], pix[i+1], pix[i+2] = p[0], p[1], p[2]
	}
}

type rgbSplit struct {
	offsets [3]int
}

func newRGBSplit(p Params) Effect {
	d := newDecoder(RGBChannelSeparation, p)
	return rgbSplit{offsets: [3]int{d.int("rOffset"), d.int("gOffset"), d.int("bOffset")}}
}

func (e rgbSplit) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.offsets == [3]int{} {
		return
	}
	src := buf.Clone()
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			i := buf.Offset(x, y)
			for c, off := range e.offsets {
				buf.Pix[i+c] = src.Pix[src.Offset(clampI(x+off, 0, buf.Width-1), y)+c]
			}
		}
	}
}

type screenTear struct {
	intensity, count, offset float64
}

func newScreenTear(p Params) Effect {
	d := newDecoder(ScreenTear, p)
	return screenTear{intensity: d.float("intensity"), count: d.float("count"), offset: d.float("offset")}
}

func (e screenTear) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	src := buf.Clone()
	tears := int(e.count + rand.Float64()*e.count*(e.intensity/30))
	maxOffset := e.offset * (e.intensity / 30)

	for t := 0; t < tears; t++ {
		tearY := rand.Intn(h)
		tearH := int(1 + rand.Float64()*rand.Float64()*40*(e.intensity/50))
		tearOff := int(math.Floor((rand.Float64() - 0.5) * maxOffset * 4))
		channel := -1
		if rand.Float64() > 0.7 {
			channel = rand.Intn(3)
		}
		smear := rand.Float64() > 0.85
		repeat := rand.Float64() > 0.8

		for y := tearY; y < min(tearY+tearH, h); y++ {
			rowOff := tearOff
			if !repeat {
				rowOff += int(math.Floor((rand.Float64() - 0.5) * 10))
			}
			for x := 0; x < w; x++ {
				di := buf.Offset(x, y)
				if smear && x > 0 {
					copyPixel(buf.Pix, di, buf.Pix, di-4)
					continue
				}
				si := src.Offset(wrap(x+rowOff, w), y)
				copyPixel(buf.Pix, di, src.Pix, si)
				if channel >= 0 {
					shifted := src.Offset(wrap(x+rowOff+15, w), y)
					buf.Pix[di+channel] = src.Pix[shifted+channel]
				}
			}
		}
	}
}

type bitcrush struct {
	bits      int
	intensity float64
}

func newBitcrush(p Params) Effect {
	d := newDecoder(Bitcrush, p)
	return bitcrush{bits: max(1, d.int("bits")), intensity: d.float("intensity")}
}

func (e bitcrush) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w := buf.Width
	src := buf.Clone()
	chance := e.intensity / 100

	for y := 0; y < buf.Height; y++ {
		rowCorrupt := rand.Float64() < chance*0.3
		shift, bits := 0, e.bits
		if rowCorrupt {
			shift = int(rand.Float64() * float64(w) * 0.3)
			bits = max(1, e.bits-rand.Intn(3))
		}
		step := 255 / (math.Pow(2, float64(bits)) - 1)
		quant := func(v float64) uint8 { return toByte(math.Round(v/step) * step) }

		for x := 0; x < w; x++ {
			si := src.Offset((x+shift)%w, y)
			r, g, b := float64(src.Pix[si]), float64(src.Pix[si+1]), float64(src.Pix[si+2])
			if rand.Float64() < chance*0.1 {
				switch rand.Intn(3) {
				case 0:
					r = rand.Float64() * 255
				case 1:
					g = rand.Float64() * 255
				default:
					b = rand.Float64() * 255
				}
			}
			if rand.Float64() < chance*0.05 {
				v := 0.0
				if rand.Float64() > 0.5 {
					v = 255
				}
				r, g, b = v, v, v
			}
			di := buf.Offset(x, y)
			buf.Pix[di], buf.Pix[di+1], buf.Pix[di+2] = quant(r), quant(g), quant(b)
		}
	}
}

type fragmentGlitch struct {
	intensity float64
	size      float64
}

func newFragmentGlitch(p Params) Effect {
	d := newDecoder(FragmentGlitch, p)
	return fragmentGlitch{intensity: d.float("intensity"), size: d.float("fragmentSize")}
}

func (e fragmentGlitch) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	src := buf.Clone()
	randPos := func(limit, size int) int {
		if limit-size <= 0 {
			return 0
		}
		return rand.Intn(limit - size)
	}
	passes := int(math.Ceil(e.intensity / 25))
	for pass := 0; pass < passes; pass++ {
		fragments := int(50 + rand.Float64()*100*(e.intensity/50))
		for f := 0; f < fragments; f++ {
			size := max(1, int(e.size*(0.5+rand.Float64()*2)))
			fx, fy := randPos(w, size), randPos(h, size)
			x1, y1 := min(fx+size, w), min(fy+size, h)
			kind := rand.Float64()

			switch {
			case kind < 0.3:
				sx, sy := randPos(w, size), randPos(h, size)
				for y := fy; y < y1; y++ {
					for x := fx; x < x1; x++ {
						ssx, ssy := sx+x-fx, sy+y-fy
						if ssx < w && ssy < h {
							copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(ssx, ssy))
						}
					}
				}
			case kind < 0.5:
				channel := rand.Intn(3)
				v := uint8(0)
				if rand.Float64() > 0.5 {
					v = 255
				}
				for y := fy; y < y1; y++ {
					for x := fx; x < x1; x++ {
						buf.Pix[buf.Offset(x, y)+channel] = v
					}
				}
			case kind < 0.7:
				for y := fy; y < y1; y++ {
					sy := rand.Intn(h)
					for x := fx; x < x1; x++ {
						copyPixel(buf.Pix, buf.Offset(x, y), src.Pix, src.Offset(x%w, sy))
					}
				}
			case kind < 0.85:
				si := src.Offset(rand.Intn(w), rand.Intn(h))
				fillRect(buf, fx, fy, x1, y1, src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			default:
				for y := fy; y < y1; y++ {
					for x := fx; x < x1; x++ {
						i := buf.Offset(x, y)
						buf.Pix[i] ^= 0xff
						buf.Pix[i+1] ^= 0xff
						buf.Pix[i+2] ^= 0xff
					}
				}
			}
		}
	}
}

type dataDestroy struct {
	intensity, corruption float64
}

func newDataDestroy(p Params) Effect {
	d := newDecoder(DataDestroy, p)
	return dataDestroy{intensity: d.float("intensity"), corruption: d.float("corruption")}
}

func (e dataDestroy) Apply(buf *frame.Buffer, _ *frame.Context, _ *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	pix := buf.Pix
	byteChance := e.corruption / 1000
	rowChance := e.intensity / 500
	blockChance := e.intensity / 200

	for i := range pix {
		if i%4 == 3 || rand.Float64() >= byteChance {
			continue
		}
		switch k := rand.Float64(); {
		case k < 0.3:
			pix[i] ^= uint8(rand.Intn(256))
		case k < 0.5:
			pix[i] = 255 - pix[i]
		case k < 0.7:
			pix[i] = 0
			if rand.Float64() > 0.5 {
				pix[i] = 255
			}
		case k < 0.85:
			pix[i] <<= 1
		default:
			pix[i] = pix[i]>>1 | (pix[i]&1)<<7
		}
	}

	rowLen := w * 4
	for y := 0; y < h; y++ {
		if rand.Float64() >= rowChance {
			continue
		}
		row := pix[y*rowLen : (y+1)*rowLen]
		switch k := rand.Float64(); {
		case k < 0.3:
			sy := rand.Intn(h)
			copy(row, pix[sy*rowLen:(sy+1)*rowLen])
		case k < 0.5:
			r, g, b := uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256))
			for x := 0; x < rowLen; x += 4 {
				row[x], row[x+1], row[x+2] = r, g, b
			}
		case k < 0.7:
			for x := range row {
				if x%4 != 3 {
					row[x] ^= 0xff
				}
			}
		default:
			shift := rand.Intn(rowLen)
			tmp := make([]byte, rowLen)
			for x := range tmp {
				tmp[x] = row[(x+shift)%rowLen]
			}
			copy(row, tmp)
		}
	}

	for n := 0; n < int(e.intensity/10); n++ {
		if rand.Float64() >= blockChance {
			continue
		}
		bx, by := rand.Intn(w), rand.Intn(h)
		bw, bh := 10+rand.Intn(50), 5+rand.Intn(30)
		kind := rand.Float64()
		for y := by; y < min(by+bh, h); y++ {
			for x := bx; x < min(bx+bw, w); x++ {
				i := buf.Offset(x, y)
				switch {
				case kind < 0.25:
					v := uint8(rand.Intn(256))
					pix[i], pix[i+1], pix[i+2] = v, v, v
				case kind < 0.5:
					pix[i] ^= 0xff
					pix[i+1] ^= 0xff
					pix[i+2] ^= 0xff
				case kind < 0.75:
					v := uint8(0)
					if rand.Float64() > 0.5 {
						v = 255
					}
					pix[i+rand.Intn(3)] = v
				default:
					pix[i] = pix[i+2]
					pix[i+1] = pix[i]
				}
			}
		}
	}
}
