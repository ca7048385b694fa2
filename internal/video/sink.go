// Package video writes rendered frames out: ffmpeg-encoded streams, native
// animated GIF and single stills.
package video

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/system"
)

// Sink consumes frames in tick order. Close flushes and finalizes the file.
type Sink interface {
	WriteFrame(buf *frame.Buffer) error
	Close() error
}

// Options configure a sequence sink.
type Options struct {
	Width   int
	Height  int
	FPS     int
	Quality int // 1-100
	// Encoder names the ffmpeg H.264 encoder; "" or "auto" picks the first one available.
	Encoder string
}

// Sequence formats.
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
	FormatGIF  = "gif"
)

// Still formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
	FormatWebP = "webp"
)

// FormatOf returns the normalized format for path, preferring override.
func FormatOf(path, override string) string {
	f := strings.ToLower(strings.TrimPrefix(override, "."))
	if f == "" {
		f = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	switch f {
	case "jpg":
		return FormatJPEG
	case "tif":
		return FormatTIFF
	}
	return f
}

// IsSequence reports whether format holds more than one frame.
func IsSequence(format string) bool {
	switch format {
	case FormatMP4, FormatWebM, FormatGIF:
		return true
	}
	return false
}

// IsStill reports whether format is a single-image format.
func IsStill(format string) bool {
	switch format {
	case FormatPNG, FormatJPEG, FormatBMP, FormatTIFF, FormatWebP:
		return true
	}
	return false
}

// NewSink opens a sequence sink for format at path.
func NewSink(path, format string, opts Options) (Sink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("sink size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	switch format {
	case FormatGIF:
		return NewGIFSink(path, opts), nil
	case FormatMP4, FormatWebM:
		return NewFFmpegSink(path, format, opts)
	}
	return nil, fmt.Errorf("%w: %s sequence", system.ErrUnsupportedFormat, format)
}
