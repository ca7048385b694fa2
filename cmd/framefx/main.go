package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/analyzer"
	"github.com/ivlev/framefx/internal/chain"
	"github.com/ivlev/framefx/internal/config"
	"github.com/ivlev/framefx/internal/director"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/engine"
	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/preview"
	"github.com/ivlev/framefx/internal/renderer"
	"github.com/ivlev/framefx/internal/source"
	"github.com/ivlev/framefx/internal/system"
	"github.com/ivlev/framefx/internal/video"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := parseFlags()
	setupLogging(cfg.LogLevel)

	if cfg.ListEffects {
		listEffects()
		return
	}

	system.InitResourceLimits()
	for _, d := range []string{"input", "output"} {
		os.MkdirAll(d, 0755)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() config.Config {
	cfg := config.Defaults()
	cfg.BuildVersion = version

	flag.StringVar(&cfg.InputPath, "input", "", "Image, directory, PDF, GIF, video or qr:<label> (default: newest file in input/)")
	flag.StringVar(&cfg.OutputPath, "output", "", "Output file (default: output/<name>_<timestamp>.<format>)")
	flag.StringVar(&cfg.PresetPath, "preset", "", "Pipeline preset YAML to load")
	flag.StringVar(&cfg.SavePresetPath, "save-preset", "", "Write the assembled pipeline to this YAML file")
	flag.StringVar(&cfg.Effects, "effects", "", "Comma-separated effect chain when no preset is given, e.g. invert,posterize,ascii")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Output width (0 keeps the source size)")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "Output height (0 keeps the source size)")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames per second")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "Number of frames to export")
	flag.StringVar(&cfg.Format, "format", "", "Output format: mp4, webm, gif, png, jpeg, bmp, tiff, webp (default: output extension)")
	flag.IntVar(&cfg.Quality, "quality", cfg.Quality, "Quality 0-100")
	flag.StringVar(&cfg.Encoder, "encoder", cfg.Encoder, "H.264 encoder for mp4, or auto")
	flag.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI for PDF pages")
	flag.IntVar(&cfg.Tick, "tick", 0, "Frame rendered for still formats")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "Face detector: contrast, track, none")
	flag.StringVar(&cfg.TrackPath, "track", "", "Detection track YAML for -detector track (default: newest in output/)")
	flag.StringVar(&cfg.RecordTrackPath, "record-track", "", "Record a detection track to this file (auto: output/track_<timestamp>.yaml) instead of exporting")
	flag.StringVar(&cfg.MixPaths, "mix", "", "Comma-separated alternate media for datamosh, block-shoving and bloom smear")
	flag.IntVar(&cfg.DetectionInterval, "detection-interval", cfg.DetectionInterval, "Run the detector every N frames")
	flag.StringVar(&cfg.EmojiFont, "emoji-font", "", "TTF/OTF font used to rasterize emoji palettes")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Parallel region workers")
	flag.BoolVar(&cfg.Preview, "preview", false, "Show the interactive terminal preview instead of exporting")
	flag.BoolVar(&cfg.ShowStats, "stats", false, "Print a performance report and append it to benchmark.log")
	flag.BoolVar(&cfg.ListEffects, "list", false, "List available effects and exit")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	flag.Parse()
	return cfg
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] Unknown log level %q, using info\n", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func listEffects() {
	for _, cat := range effects.Categories {
		fmt.Printf("%s:\n", cat)
		for _, e := range effects.Default.ByCategory(cat) {
			fmt.Printf("  %-24s %s\n", e.Type, e.Label)
		}
	}
}

func run(ctx context.Context, cfg config.Config) error {
	inputPath := cfg.InputPath
	if inputPath == "" {
		latest, err := system.FindLatestInput("input")
		if err != nil {
			return fmt.Errorf("%w. Put media into input/ or pass -input", err)
		}
		inputPath = latest
		fmt.Printf("[*] Selected input: %s\n", inputPath)
	}

	src, err := source.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	if vs, ok := src.(*source.VideoSource); ok {
		info := vs.Info()
		fmt.Printf("[*] Video %dx%d, %.2f fps, %d frames\n", info.Width, info.Height, info.FPS, info.Frames)
	}

	if cfg.RecordTrackPath != "" {
		return recordTrack(ctx, cfg, src, inputPath)
	}

	c, err := buildChain(cfg)
	if err != nil {
		return err
	}
	if cfg.SavePresetPath != "" {
		if err := config.WritePreset(c.Preset(), cfg.SavePresetPath); err != nil {
			return fmt.Errorf("save preset: %w", err)
		}
		fmt.Printf("[*] Preset saved: %s\n", cfg.SavePresetPath)
	}

	eng, err := buildEngine(cfg, c)
	if err != nil {
		return err
	}
	if cfg.MixPaths != "" {
		mix, err := loadMix(cfg.MixPaths, cfg.DPI)
		if err != nil {
			return err
		}
		eng.SetSources(mix)
	}

	if cfg.Preview {
		return preview.Run(ctx, eng, src, preview.Options{FPS: cfg.FPS, DPI: cfg.DPI, Title: inputPath})
	}
	return export(ctx, cfg, eng, src, inputPath)
}

// buildChain loads the preset, or assembles a global chain from -effects.
func buildChain(cfg config.Config) (*chain.Chain, error) {
	if cfg.PresetPath != "" {
		p, err := config.ReadPreset(cfg.PresetPath)
		if err != nil {
			return nil, fmt.Errorf("read preset: %w", err)
		}
		c, err := chain.FromPreset(p, effects.Default)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Preset %s: %d effects, %d regions\n", cfg.PresetPath, c.Len(), len(c.Regions()))
		return c, nil
	}

	c := chain.New(effects.Default)
	for _, name := range strings.Split(cfg.Effects, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := c.AddEffect(effects.Type(name), ""); err != nil {
			return nil, fmt.Errorf("effect %q: %w (see -list)", name, err)
		}
	}
	return c, nil
}

func buildEngine(cfg config.Config, c *chain.Chain) (*engine.Engine, error) {
	trackPath := cfg.TrackPath
	if cfg.Detector == "track" && trackPath == "" {
		latest, err := director.FindLatestTrack("output")
		if err != nil {
			return nil, fmt.Errorf("no detection track: %w", err)
		}
		trackPath = latest
		fmt.Printf("[*] Selected track: %s\n", trackPath)
	}
	det, err := analyzer.NewDetector(cfg.Detector, trackPath)
	if err != nil {
		return nil, err
	}

	var raster renderer.GlyphRasterizer
	if cfg.EmojiFont != "" {
		fr, err := renderer.LoadFontRasterizer(cfg.EmojiFont)
		if err != nil {
			return nil, fmt.Errorf("emoji font: %w", err)
		}
		raster = fr
	}

	return engine.New(c, engine.Options{
		Detector:          det,
		DetectionInterval: cfg.DetectionInterval,
		Workers:           cfg.Workers,
		Renderer:          renderer.New(renderer.NewPaletteCache(raster)),
		Pool:              system.NewBufferPool(),
	}), nil
}

// loadMix renders the first frame of every alternate source at its native size.
func loadMix(paths string, dpi int) ([]*frame.Buffer, error) {
	var out []*frame.Buffer
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		src, err := source.Open(p)
		if err != nil {
			return nil, fmt.Errorf("mix source: %w", err)
		}
		buf, err := source.Frame(src, 0, dpi, 0, 0)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("mix source %s: %w", p, err)
		}
		out = append(out, buf)
	}
	return out, nil
}

func export(ctx context.Context, cfg config.Config, eng *engine.Engine, src source.Source, inputPath string) error {
	format := cfg.Format
	outputPath := cfg.OutputPath
	if outputPath == "" {
		if format == "" {
			format = video.FormatMP4
		}
		outputPath = defaultOutputPath(inputPath, format)
	}
	format = video.FormatOf(outputPath, format)

	if format == video.FormatMP4 && cfg.Encoder == "auto" {
		if enc := system.GetBestH264Encoder(); enc != "libx264" {
			fmt.Printf("[*] Hardware encoder detected: %s\n", enc)
		}
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	finished := false
	opts := engine.ExportOptions{
		Path:         outputPath,
		Format:       format,
		Width:        cfg.Width,
		Height:       cfg.Height,
		FPS:          cfg.FPS,
		Frames:       cfg.Frames,
		Tick:         cfg.Tick,
		Quality:      cfg.Quality,
		Encoder:      cfg.Encoder,
		DPI:          cfg.DPI,
		Stats:        cfg.ShowStats,
		BuildVersion: cfg.BuildVersion,
		InputPath:    inputPath,
		Progress: func(done, total int) {
			if finished {
				return
			}
			fmt.Printf("\r[>] %s %d/%d", bar.ViewAs(float64(done)/float64(total)), done, total)
			if done == total {
				finished = true
				fmt.Println()
			}
		},
	}

	var res engine.ExportResult
	if video.IsStill(format) {
		fmt.Printf("[*] Rendering frame %d -> %s\n", cfg.Tick, outputPath)
		res = eng.SaveStill(ctx, src, opts)
	} else {
		fmt.Printf("[*] Exporting %d frames at %d fps -> %s\n", cfg.Frames, cfg.FPS, outputPath)
		res = eng.Export(ctx, src, opts)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	if res.Warnings > 0 {
		fmt.Printf("[!] Detector failed on %d frames; stale detections were reused\n", res.Warnings)
	}
	if n := eng.Recovered(); n > 0 {
		fmt.Printf("[!] %d effect stages failed and were rolled back\n", n)
	}
	fmt.Printf("[+++] Done in %s: %s\n", res.Duration.Round(time.Millisecond), res.FilePath)
	return nil
}

func recordTrack(ctx context.Context, cfg config.Config, src source.Source, inputPath string) error {
	det, err := analyzer.NewDetector(cfg.Detector, cfg.TrackPath)
	if err != nil {
		return err
	}
	if det == nil {
		return errors.New("recording a track needs a detector")
	}
	d := director.NewDirector(det, cfg.Width, cfg.Height)
	d.Interval = cfg.DetectionInterval
	d.DPI = cfg.DPI

	fmt.Printf("[*] Recording detections for %d frames every %d\n", cfg.Frames, d.Interval)
	track, err := d.GenerateTrack(ctx, src, inputPath, cfg.Frames)
	if err != nil {
		return fmt.Errorf("record track: %w", err)
	}
	path := cfg.RecordTrackPath
	if path == "auto" {
		path = director.GenerateTrackPath("output")
	}
	if err := analyzer.WriteTrack(track, path); err != nil {
		return fmt.Errorf("write track: %w", err)
	}
	fmt.Printf("[+++] Track with %d entries: %s\n", len(track.Frames), path)
	return nil
}

func defaultOutputPath(inputPath, format string) string {
	base := filepath.Base(strings.TrimPrefix(inputPath, source.QRPrefix))
	name := strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.%s", name, timestamp, format))
}
