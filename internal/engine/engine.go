// Package engine is the frame orchestrator: it runs the effect chain over a
// source frame, resolves the style or raster branch and drives export.
package engine

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/framefx/internal/analyzer"
	"github.com/ivlev/framefx/internal/chain"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/renderer"
	"github.com/ivlev/framefx/internal/system"
)

// DefaultDetectionInterval is how many ticks a detection result is reused.
const DefaultDetectionInterval = 10

// Options configure an Engine. Zero values select defaults.
type Options struct {
	Detector          analyzer.Detector
	DetectionInterval int
	// Workers bounds the parallel region pass.
	Workers  int
	Renderer *renderer.Renderer
	Pool     *system.BufferPool
}

// Engine renders frames through a chain. RenderFrame calls are serialized;
// the chain may be edited between frames.
type Engine struct {
	Chain *chain.Chain

	detector analyzer.Detector
	interval int
	workers  int
	renderer *renderer.Renderer
	pool     *system.BufferPool

	mu         sync.Mutex
	detections frame.Detections
	// acquired is set once the detector has returned a snapshot.
	acquired   bool
	sources    []*frame.Buffer
	warnings   int
	recovered  atomic.Int64
}

// New returns an engine over c.
func New(c *chain.Chain, opts Options) *Engine {
	if opts.DetectionInterval <= 0 {
		opts.DetectionInterval = DefaultDetectionInterval
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Renderer == nil {
		opts.Renderer = renderer.New(nil)
	}
	if opts.Pool == nil {
		opts.Pool = system.NewBufferPool()
	}
	return &Engine{
		Chain:    c,
		detector: opts.Detector,
		interval: opts.DetectionInterval,
		workers:  opts.Workers,
		renderer: opts.Renderer,
		pool:     opts.Pool,
	}
}

// Renderer returns the style renderer, whose palette cache export awaits.
func (e *Engine) Renderer() *renderer.Renderer { return e.renderer }

// SetSources replaces the alternate source frames cross-source effects read.
func (e *Engine) SetSources(sources []*frame.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources = sources
}

// Detections returns the most recent detection snapshot.
func (e *Engine) Detections() frame.Detections {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detections
}

// Warnings returns the number of detector failures seen so far.
func (e *Engine) Warnings() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.warnings
}

// Recovered returns the number of effect stages rolled back after a panic.
func (e *Engine) Recovered() int {
	return int(e.recovered.Load())
}

// RenderFrame runs the chain over src for tick and returns a new opaque
// buffer of the same size. src is not modified.
func (e *Engine) RenderFrame(ctx context.Context, src *frame.Buffer, tick int) (*frame.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.Empty() {
		return frame.New(src.Width, src.Height), nil
	}
	if err := e.detect(ctx, src, tick); err != nil {
		return nil, err
	}

	fc := &frame.Context{
		Width:      src.Width,
		Height:     src.Height,
		Tick:       tick,
		Detections: e.detections,
		Sources:    e.sources,
	}
	items := e.Chain.Effects()

	if style, at := chain.ActiveStyle(items); style != nil {
		if st, ok := effects.AsStyle(style.Effect()); ok {
			if out, ok := e.renderStyle(src, fc, items, st, at); ok {
				return out, nil
			}
		}
	}
	return e.renderRaster(ctx, src, fc, items)
}

// detect refreshes the detection snapshot every interval ticks, and on every
// frame until a first snapshot has been acquired. Failures keep the stale
// snapshot.
func (e *Engine) detect(ctx context.Context, src *frame.Buffer, tick int) error {
	if e.detector == nil || (e.acquired && tick%e.interval != 0) {
		return nil
	}
	det, err := e.detector.Detect(ctx, src.Image(), tick)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		e.warnings++
		logrus.WithFields(logrus.Fields{
			"function": "detect",
			"tick":     tick,
		}).WithError(err).Warn("detector failed, reusing previous detections")
		return nil
	}
	e.detections = det
	e.acquired = true
	return nil
}

func (e *Engine) renderRaster(ctx context.Context, src *frame.Buffer, fc *frame.Context, items []*chain.Instance) (*frame.Buffer, error) {
	out := src.Clone()
	e.runStages(out, fc, chain.Processing(items, ""))
	if err := e.regionPass(ctx, out, fc, items); err != nil {
		return nil, err
	}
	out.Opaque()
	return out, nil
}

// styleGrid resamples src to the style grid and runs the pre-style effects on
// it. ok is false when the grid degenerates and the frame must fall back to
// raster output.
func (e *Engine) styleGrid(src *frame.Buffer, fc *frame.Context, items []*chain.Instance, st *effects.Style, at int) (*frame.Buffer, bool) {
	cols, rows, ok := renderer.Grid(st, src.Width, src.Height)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "styleGrid",
			"style":    st.Kind,
			"tick":     fc.Tick,
		}).Debug("style grid degenerate, rendering raster")
		return nil, false
	}
	grid := renderer.Resample(src, cols, rows)
	e.runStages(grid, fc.Sub(cols, rows), chain.Processing(items[:at], ""))
	return grid, true
}

func (e *Engine) renderStyle(src *frame.Buffer, fc *frame.Context, items []*chain.Instance, st *effects.Style, at int) (*frame.Buffer, bool) {
	grid, ok := e.styleGrid(src, fc, items, st, at)
	if !ok {
		return nil, false
	}
	out := frame.New(src.Width, src.Height)
	e.renderer.Draw(out, grid, st, fc.Tick)

	e.runStages(out, fc, chain.Processing(items[at+1:], ""))
	out.Opaque()
	return out, true
}

// RenderText renders a glyph-style frame as text cells for terminal output.
// ok is false when no text style is active; callers then use RenderFrame.
func (e *Engine) RenderText(ctx context.Context, src *frame.Buffer, tick int) (cells []renderer.Cell, cols int, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, false, err
	}
	items := e.Chain.Effects()
	style, at := chain.ActiveStyle(items)
	if style == nil || src.Empty() {
		return nil, 0, false, nil
	}
	st, isStyle := effects.AsStyle(style.Effect())
	if !isStyle || !renderer.TextStyle(st) {
		return nil, 0, false, nil
	}
	if err := e.detect(ctx, src, tick); err != nil {
		return nil, 0, false, err
	}
	fc := &frame.Context{
		Width:      src.Width,
		Height:     src.Height,
		Tick:       tick,
		Detections: e.detections,
		Sources:    e.sources,
	}
	grid, ok := e.styleGrid(src, fc, items, st, at)
	if !ok {
		return nil, 0, false, nil
	}
	return e.renderer.Cells(grid, st, tick), grid.Width, true, nil
}

// runStages applies each instance in order. A panicking stage is rolled back
// to its input pixels and the remaining stages still run.
func (e *Engine) runStages(buf *frame.Buffer, fc *frame.Context, stages []*chain.Instance) {
	if len(stages) == 0 {
		return
	}
	snapshot := e.pool.Get(buf.Width, buf.Height)
	defer e.pool.Put(snapshot)
	for _, in := range stages {
		snapshot.CopyFrom(buf)
		if e.runStage(in, buf, fc) {
			continue
		}
		buf.CopyFrom(snapshot)
	}
}

func (e *Engine) runStage(in *chain.Instance, buf *frame.Buffer, fc *frame.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			e.recovered.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "runStage",
				"effect":   in.ID,
				"type":     in.Type,
				"region":   in.Region,
				"tick":     fc.Tick,
				"panic":    r,
			}).Warn("effect panicked, keeping pre-effect pixels")
		}
	}()
	in.Apply(buf, fc)
	return true
}

type regionJob struct {
	rect   image.Rectangle
	stages []*chain.Instance
	buf    *frame.Buffer
}

// regionPass runs each region's sub-chain on its own pooled copy of the
// region pixels in parallel, then pastes every result back once all are done.
func (e *Engine) regionPass(ctx context.Context, out *frame.Buffer, fc *frame.Context, items []*chain.Instance) error {
	var jobs []*regionJob
	bounds := image.Rect(0, 0, out.Width, out.Height)
	for _, reg := range e.Chain.Regions() {
		stages := chain.Processing(items, reg.ID)
		if len(stages) == 0 {
			continue
		}
		r := reg.Rect.Pixels(out.Width, out.Height).Intersect(bounds)
		if r.Empty() {
			continue
		}
		jobs = append(jobs, &regionJob{rect: r, stages: stages})
	}
	if len(jobs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, job := range jobs {
		job.buf = e.pool.Get(job.rect.Dx(), job.rect.Dy())
		out.ExtractInto(job.buf, job.rect)
		sub := fc.Sub(job.rect.Dx(), job.rect.Dy())
		sub.Detections = fc.Detections.Within(job.rect, out.Width, out.Height)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snapshot := e.pool.Get(job.buf.Width, job.buf.Height)
			defer e.pool.Put(snapshot)
			for _, in := range job.stages {
				snapshot.CopyFrom(job.buf)
				if !e.runStage(in, job.buf, sub) {
					job.buf.CopyFrom(snapshot)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	for _, job := range jobs {
		if err == nil {
			out.Paste(job.buf, job.rect.Min.X, job.rect.Min.Y)
		}
		e.pool.Put(job.buf)
	}
	return err
}
