package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/framefx/internal/chain"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/source"
	"github.com/ivlev/framefx/internal/system"
	"github.com/ivlev/framefx/internal/video"
)

// yieldEvery is how many frames the export loop renders between yields.
const yieldEvery = 10

// ExportOptions describe one export.
type ExportOptions struct {
	Path   string
	Format string // defaults to Path's extension
	Width  int    // 0 keeps the source's native size
	Height int
	FPS    int
	Frames int
	// Tick is the frame a still export renders.
	Tick    int
	Quality int
	Encoder string
	DPI     int

	// Progress is called every few frames and once at the end.
	Progress func(done, total int)
	// NewSink overrides sink construction.
	NewSink func(path, format string, opts video.Options) (video.Sink, error)

	Stats        bool
	BuildVersion string
	InputPath    string
	BenchmarkLog string
}

// ExportResult is the outcome of an export or still save. Failures are
// reported here rather than returned as errors.
type ExportResult struct {
	Success  bool
	FilePath string
	Error    string
	Frames   int
	// Warnings counts detector failures during the export.
	Warnings int
	Duration time.Duration
	Report   *system.Report
}

func failed(path string, err error) ExportResult {
	return ExportResult{FilePath: path, Error: err.Error()}
}

type abortable interface {
	Abort()
}

// Export renders ticks 0..Frames-1 from src and streams them into a sequence
// sink. Rendering stays sequential; the sink encodes concurrently behind a
// bounded channel.
func (e *Engine) Export(ctx context.Context, src source.Source, opts ExportOptions) (res ExportResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(opts.Path, fmt.Errorf("export panicked: %v", r))
		}
	}()

	format := video.FormatOf(opts.Path, opts.Format)
	if !video.IsSequence(format) {
		return failed(opts.Path, fmt.Errorf("%w: %q is not a sequence format", system.ErrUnsupportedFormat, format))
	}
	if opts.Frames <= 0 {
		return failed(opts.Path, fmt.Errorf("nothing to export: %d frames", opts.Frames))
	}
	w, h, err := outputSize(src, opts, format == video.FormatMP4 || format == video.FormatWebM)
	if err != nil {
		return failed(opts.Path, err)
	}
	if err := e.awaitPalette(ctx); err != nil {
		return failed(opts.Path, err)
	}

	newSink := opts.NewSink
	if newSink == nil {
		newSink = video.NewSink
	}
	sink, err := newSink(opts.Path, format, video.Options{
		Width:   w,
		Height:  h,
		FPS:     opts.FPS,
		Quality: opts.Quality,
		Encoder: opts.Encoder,
	})
	if err != nil {
		return failed(opts.Path, fmt.Errorf("open sink: %w", err))
	}

	start := time.Now()
	warningsBefore := e.Warnings()
	var renderTime, encodeTime time.Duration
	frames := make(chan *frame.Buffer, 4)

	g, gctx := errgroup.WithContext(ctx)
	// Render stage
	g.Go(guard("render", func() error {
		defer close(frames)
		for tick := 0; tick < opts.Frames; tick++ {
			t0 := time.Now()
			in, err := source.Frame(src, tick, opts.DPI, w, h)
			if err != nil {
				return err
			}
			out, err := e.RenderFrame(gctx, in, tick)
			if err != nil {
				return err
			}
			renderTime += time.Since(t0)

			select {
			case frames <- out:
			case <-gctx.Done():
				return gctx.Err()
			}

			if (tick+1)%yieldEvery == 0 {
				if opts.Progress != nil {
					opts.Progress(tick+1, opts.Frames)
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
		}
		return nil
	}))
	// Encode stage
	written := 0
	g.Go(guard("encode", func() error {
		for buf := range frames {
			t0 := time.Now()
			if err := sink.WriteFrame(buf); err != nil {
				return fmt.Errorf("write frame %d: %w", written, err)
			}
			encodeTime += time.Since(t0)
			written++
		}
		return nil
	}))

	if err := g.Wait(); err != nil {
		if a, ok := sink.(abortable); ok {
			a.Abort()
		} else {
			sink.Close()
		}
		logrus.WithFields(logrus.Fields{
			"function": "Export",
			"path":     opts.Path,
			"frames":   written,
		}).WithError(err).Error("export failed")
		res = failed(opts.Path, err)
		res.Frames = written
		return res
	}
	t0 := time.Now()
	if err := sink.Close(); err != nil {
		res = failed(opts.Path, fmt.Errorf("finalize: %w", err))
		res.Frames = written
		return res
	}
	encodeTime += time.Since(t0)
	if opts.Progress != nil {
		opts.Progress(written, opts.Frames)
	}

	res = ExportResult{
		Success:  true,
		FilePath: opts.Path,
		Frames:   written,
		Warnings: e.Warnings() - warningsBefore,
		Duration: time.Since(start),
	}
	e.report(&res, opts, renderTime, encodeTime)
	return res
}

// SaveStill renders opts.Tick and writes a single image.
func (e *Engine) SaveStill(ctx context.Context, src source.Source, opts ExportOptions) (res ExportResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(opts.Path, fmt.Errorf("save panicked: %v", r))
		}
	}()

	format := video.FormatOf(opts.Path, opts.Format)
	if !video.IsStill(format) {
		return failed(opts.Path, fmt.Errorf("%w: %q is not a still format", system.ErrUnsupportedFormat, format))
	}
	w, h, err := outputSize(src, opts, false)
	if err != nil {
		return failed(opts.Path, err)
	}
	if err := e.awaitPalette(ctx); err != nil {
		return failed(opts.Path, err)
	}

	start := time.Now()
	warningsBefore := e.Warnings()
	in, err := source.Frame(src, opts.Tick, opts.DPI, w, h)
	if err != nil {
		return failed(opts.Path, err)
	}
	out, err := e.RenderFrame(ctx, in, opts.Tick)
	if err != nil {
		return failed(opts.Path, err)
	}
	renderTime := time.Since(start)
	if err := video.WriteStill(opts.Path, out, format, opts.Quality); err != nil {
		return failed(opts.Path, err)
	}

	res = ExportResult{
		Success:  true,
		FilePath: opts.Path,
		Frames:   1,
		Warnings: e.Warnings() - warningsBefore,
		Duration: time.Since(start),
	}
	e.report(&res, opts, renderTime, res.Duration-renderTime)
	return res
}

// awaitPalette blocks until an active emoji style's palette is generated so
// exported frames never show the placeholder glyph.
func (e *Engine) awaitPalette(ctx context.Context) error {
	style, _ := chain.ActiveStyle(e.Chain.Effects())
	if style == nil {
		return nil
	}
	st, ok := effects.AsStyle(style.Effect())
	if !ok || st.Kind != effects.Emoji {
		return nil
	}
	if _, err := e.renderer.Palettes.Await(ctx, st.Palette); err != nil {
		return fmt.Errorf("emoji palette %s: %w", st.Palette, err)
	}
	return nil
}

// guard turns a panic inside an export stage goroutine into an error.
func guard(stage string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s stage panicked: %v", stage, r)
			}
		}()
		return fn()
	}
}

// outputSize resolves the export size. even rounds native sizes down to even
// numbers, never below 2, for yuv420p encoders.
func outputSize(src source.Source, opts ExportOptions, even bool) (int, int, error) {
	if src.PageCount() == 0 {
		return 0, 0, source.ErrEmptySource
	}
	if opts.Width > 0 && opts.Height > 0 {
		return opts.Width, opts.Height, nil
	}
	img, err := src.RenderPage(0, opts.DPI)
	if err != nil {
		return 0, 0, fmt.Errorf("render page 0: %w", err)
	}
	b := img.Bounds()
	if !even {
		return b.Dx(), b.Dy(), nil
	}
	return max(2, b.Dx()&^1), max(2, b.Dy()&^1), nil
}

// report attaches the performance report and, with Stats, prints it and
// appends it to the benchmark log.
func (e *Engine) report(res *ExportResult, opts ExportOptions, render, encode time.Duration) {
	r := system.Report{
		Build:    opts.BuildVersion,
		Input:    opts.InputPath,
		Output:   res.FilePath,
		Frames:   res.Frames,
		Total:    res.Duration,
		Render:   render,
		Encode:   encode,
		Warnings: res.Warnings,
	}
	if opts.Stats {
		r.Process = system.SampleProcess()
		fmt.Print(r.String())
		path := opts.BenchmarkLog
		if path == "" {
			path = "benchmark.log"
		}
		if err := system.AppendBenchmarkLog(path, r); err != nil {
			fmt.Printf("[!] Could not write %s: %v\n", path, err)
		}
	}
	res.Report = &r
}
