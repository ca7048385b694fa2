package effects

import (
	"math"

	"github.com/ivlev/framefx/internal/frame"
)

// motionField holds one smoothed motion vector per block.
type motionField struct {
	block, cols, rows int
	x, y              []float64
}

func newMotionField(w, h, block int) *motionField {
	cols := (w + block - 1) / block
	rows := (h + block - 1) / block
	return &motionField{block: block, cols: cols, rows: rows, x: make([]float64, cols*rows), y: make([]float64, cols*rows)}
}

// at returns the vector index for pixel (x, y).
func (m *motionField) at(x, y int) int {
	return min(m.rows-1, y/m.block)*m.cols + min(m.cols-1, x/m.block)
}

// pixelDiff scores a current/previous sample pair.
type pixelDiff func(cur, prev []byte, ci, pi int) float64

func rgbDiff(cur, prev []byte, ci, pi int) float64 {
	return math.Abs(float64(cur[ci])-float64(prev[pi])) +
		math.Abs(float64(cur[ci+1])-float64(prev[pi+1])) +
		math.Abs(float64(cur[ci+2])-float64(prev[pi+2]))
}

func lumDiff(cur, prev []byte, ci, pi int) float64 {
	lc := float64(cur[ci]) + float64(cur[ci+1]) + float64(cur[ci+2])
	lp := float64(prev[pi]) + float64(prev[pi+1]) + float64(prev[pi+2])
	return math.Abs(lc - lp)
}

const motionSearch = 16

// estimate block-matches cur against prev over a ±16 window with the given
// step and folds the winning offset into the field with momentum.
func (m *motionField) estimate(cur, prev *frame.Buffer, step int, diff pixelDiff, momentum float64) {
	w, h := cur.Width, cur.Height
	for by := 0; by < m.rows; by++ {
		for bx := 0; bx < m.cols; bx++ {
			x0, y0 := bx*m.block, by*m.block
			x1, y1 := min(x0+m.block, w), min(y0+m.block, h)
			bestDx, bestDy, best := 0, 0, math.Inf(1)
			for dy := -motionSearch; dy <= motionSearch; dy += step {
				for dx := -motionSearch; dx <= motionSearch; dx += step {
					score, n := 0.0, 0
					for py := y0; py < y1; py += step {
						for px := x0; px < x1; px += step {
							sx, sy := px+dx, py+dy
							if sx < 0 || sx >= w || sy < 0 || sy >= h {
								continue
							}
							score += diff(cur.Pix, prev.Pix, cur.Offset(px, py), prev.Offset(sx, sy))
							n++
						}
					}
					if n > 0 {
						score /= float64(n)
					}
					if score < best {
						best, bestDx, bestDy = score, dx, dy
					}
				}
			}
			bi := by*m.cols + bx
			m.x[bi] = m.x[bi]*momentum + float64(bestDx)*(1-momentum)
			m.y[bi] = m.y[bi]*momentum + float64(bestDy)*(1-momentum)
		}
	}
}

// smoothed returns the field averaged over each block's 3×3 neighbourhood.
func (m *motionField) smoothed() *motionField {
	out := &motionField{block: m.block, cols: m.cols, rows: m.rows, x: make([]float64, len(m.x)), y: make([]float64, len(m.y))}
	for by := 0; by < m.rows; by++ {
		for bx := 0; bx < m.cols; bx++ {
			var sx, sy float64
			n := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					ny, nx := by+ky, bx+kx
					if ny < 0 || ny >= m.rows || nx < 0 || nx >= m.cols {
						continue
					}
					sx += m.x[ny*m.cols+nx]
					sy += m.y[ny*m.cols+nx]
					n++
				}
			}
			out.x[by*m.cols+bx] = sx / float64(n)
			out.y[by*m.cols+bx] = sy / float64(n)
		}
	}
	return out
}

// scaleInto nearest-samples src into dst, which keeps its own size.
func scaleInto(dst, src *frame.Buffer) {
	for y := 0; y < dst.Height; y++ {
		sy := y * src.Height / dst.Height
		for x := 0; x < dst.Width; x++ {
			sx := x * src.Width / dst.Width
			di := dst.Offset(x, y)
			copyPixel(dst.Pix, di, src.Pix, src.Offset(sx, sy))
			dst.Pix[di+3] = 255
		}
	}
}

type motionSmear struct {
	bloom               bool
	intensity, momentum float64
}

type smearState struct {
	prev, melt *frame.Buffer
	field      *motionField
}

const smearBlock = 16

func newMotionSmear(p Params) Effect {
	d := newDecoder(MotionSmear, p)
	return motionSmear{bloom: d.choice("mode") == "bloom", intensity: d.float("intensity"), momentum: d.float("momentum")}
}

// Apply tracks block motion between consecutive inputs and drags either the
// accumulated melt buffer or the first source frame along the smoothed vectors.
func (e motionSmear) Apply(buf *frame.Buffer, fc *frame.Context, st *State) {
	if e.intensity == 0 {
		return
	}
	s, fresh := stateFor(st, buf.Width, buf.Height, func() *smearState {
		return &smearState{prev: buf.Clone(), melt: buf.Clone(), field: newMotionField(buf.Width, buf.Height, smearBlock)}
	})
	if fresh {
		return
	}

	w, h := buf.Width, buf.Height
	strength := e.intensity / 100
	s.field.estimate(buf, s.prev, 4, rgbDiff, e.momentum)
	out := frame.New(w, h)

	if e.bloom && len(fc.Sources) > 0 && !fc.Sources[0].Empty() {
		src := fc.Sources[0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				bi := s.field.at(x, y)
				sx := clampI(int(math.Floor(float64(x)/float64(w)*float64(src.Width)+s.field.x[bi]*strength*3)), 0, src.Width-1)
				sy := clampI(int(math.Floor(float64(y)/float64(h)*float64(src.Height)+s.field.y[bi]*strength*3)), 0, src.Height-1)
				i := out.Offset(x, y)
				copyPixel(out.Pix, i, src.Pix, src.Offset(sx, sy))
				out.Pix[i+3] = 255
			}
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				bi := s.field.at(x, y)
				sx := clampI(int(math.Round(float64(x)+s.field.x[bi]*strength*2)), 0, w-1)
				sy := clampI(int(math.Round(float64(y)+s.field.y[bi]*strength*2)), 0, h-1)
				i := out.Offset(x, y)
				copyPixel(out.Pix, i, s.melt.Pix, s.melt.Offset(sx, sy))
				out.Pix[i+3] = 255
			}
		}
		back := 1 - (e.momentum*0.5 + 0.4)
		for i := 0; i+3 < len(buf.Pix); i += 4 {
			for c := 0; c < 3; c++ {
				s.melt.Pix[i+c] = toByte(float64(out.Pix[i+c])*(1-back) + float64(buf.Pix[i+c])*back)
			}
		}
	}

	buf.CopyFrom(out)
	s.prev.CopyFrom(buf)
}

// moshState is shared by datamosh and block-shoving: the previous raw input,
// the persistent mosh buffer, and the last reseed stamp seen.
type moshState struct {
	prev, mosh *frame.Buffer
	lastUpdate float64
	field      *motionField
}

// reseed refreshes the mosh buffer from the current input or from a media
// source when the host bumps lastUpdate.
func (s *moshState) reseed(cur *frame.Buffer, fc *frame.Context, lastUpdate float64, activeSource int) {
	if lastUpdate <= s.lastUpdate {
		return
	}
	s.lastUpdate = lastUpdate
	switch {
	case activeSource == -1:
		s.mosh.CopyFrom(cur)
	case activeSource >= 0 && activeSource < len(fc.Sources) && !fc.Sources[activeSource].Empty():
		scaleInto(s.mosh, fc.Sources[activeSource])
	}
}

type datamosh struct {
	intensity, lastUpdate float64
	activeSource          int
}

func newDatamosh(p Params) Effect {
	d := newDecoder(Datamosh, p)
	return datamosh{intensity: d.float("intensity"), lastUpdate: d.float("lastUpdate"), activeSource: d.int("activeSource")}
}

// Apply adds the frame-to-frame delta of the input onto a persistent buffer,
// so motion smears over stale content until the buffer is reseeded.
func (e datamosh) Apply(buf *frame.Buffer, fc *frame.Context, st *State) {
	if e.intensity == 0 {
		return
	}
	s, fresh := stateFor(st, buf.Width, buf.Height, func() *moshState {
		return &moshState{prev: buf.Clone(), mosh: buf.Clone(), lastUpdate: e.lastUpdate}
	})
	if fresh {
		return
	}
	cur := buf.Clone()
	s.reseed(cur, fc, e.lastUpdate, e.activeSource)

	factor := e.intensity / 100
	for i := 0; i+3 < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			delta := float64(cur.Pix[i+c]) - float64(s.prev.Pix[i+c])
			s.mosh.Pix[i+c] = toByte(float64(s.mosh.Pix[i+c]) + delta*factor)
			buf.Pix[i+c] = s.mosh.Pix[i+c]
		}
	}
	s.prev = cur
}

type blockShoving struct {
	fluid                 bool
	intensity, lastUpdate float64
	blockSize             int
	activeSource          int
}

func newBlockShoving(p Params) Effect {
	d := newDecoder(BlockShoving, p)
	return blockShoving{
		fluid:        d.choice("style") == "fluid",
		intensity:    d.float("intensity"),
		blockSize:    max(1, d.int("blockSize")),
		lastUpdate:   d.float("lastUpdate"),
		activeSource: d.int("activeSource"),
	}
}

// Apply estimates coarse block motion and pushes the persistent buffer along
// it, either block-wise or through a smoothed bilinear field.
func (e blockShoving) Apply(buf *frame.Buffer, fc *frame.Context, st *State) {
	if e.intensity == 0 {
		return
	}
	w, h := buf.Width, buf.Height
	s, fresh := stateFor(st, w, h, func() *moshState {
		return &moshState{prev: buf.Clone(), mosh: buf.Clone(), lastUpdate: e.lastUpdate, field: newMotionField(w, h, e.blockSize)}
	})
	if fresh {
		return
	}
	if s.field == nil || s.field.block != e.blockSize {
		s.field = newMotionField(w, h, e.blockSize)
	}

	cur := buf.Clone()
	s.reseed(cur, fc, e.lastUpdate, e.activeSource)
	s.field.estimate(cur, s.prev, 8, lumDiff, 0.5)

	strength := e.intensity / 50
	tmp := s.mosh.Clone()
	if e.fluid {
		f := s.field.smoothed()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				bi := f.at(x, y)
				di := s.mosh.Offset(x, y)
				sampleBilinear(s.mosh.Pix, di, tmp, float64(x)+f.x[bi]*strength, float64(y)+f.y[bi]*strength)
				s.mosh.Pix[di+3] = 255
			}
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				bi := s.field.at(x, y)
				sx := clampI(int(math.Round(float64(x)+s.field.x[bi]*strength)), 0, w-1)
				sy := clampI(int(math.Round(float64(y)+s.field.y[bi]*strength)), 0, h-1)
				copyPixel(s.mosh.Pix, s.mosh.Offset(x, y), tmp.Pix, tmp.Offset(sx, sy))
			}
		}
	}
	buf.CopyFrom(s.mosh)
	s.prev = cur
}

type posterizeTime struct {
	fps float64
}

type heldFrame struct {
	frame      *frame.Buffer
	lastUpdate int
}

func newPosterizeTime(p Params) Effect {
	return posterizeTime{fps: newDecoder(PosterizeTime, p).float("fps")}
}

// Apply holds a captured frame for 60/fps ticks before sampling a new one.
func (e posterizeTime) Apply(buf *frame.Buffer, fc *frame.Context, st *State) {
	s, fresh := stateFor(st, buf.Width, buf.Height, func() *heldFrame {
		return &heldFrame{frame: buf.Clone(), lastUpdate: fc.Tick}
	})
	if fresh {
		return
	}
	interval := 60 / max(e.fps, 1)
	if float64(fc.Tick-s.lastUpdate) >= interval || fc.Tick < s.lastUpdate {
		s.frame.CopyFrom(buf)
		s.lastUpdate = fc.Tick
		return
	}
	buf.CopyFrom(s.frame)
}
