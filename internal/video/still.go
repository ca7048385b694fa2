package video

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"os/exec"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/system"
)

// EncodeStill writes buf to w in format. webp needs ffmpeg and a file path,
// so it is only handled by WriteStill.
func EncodeStill(w io.Writer, buf *frame.Buffer, format string, quality int) error {
	img := buf.Image()
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: frame.ClampInt(quality, 1, 100)})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %s still", system.ErrUnsupportedFormat, format)
}

// WriteStill saves buf to path.
func WriteStill(path string, buf *frame.Buffer, format string, quality int) error {
	if buf.Empty() {
		return fmt.Errorf("empty frame")
	}
	if format == FormatWebP {
		return writeWebP(path, buf, quality)
	}

	var out bytes.Buffer
	if err := EncodeStill(&out, buf, format, quality); err != nil {
		return err
	}
	return os.WriteFile(path, out.Bytes(), 0644)
}

func writeWebP(path string, buf *frame.Buffer, quality int) error {
	cmd := exec.Command("ffmpeg",
		"-y", "-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", buf.Width, buf.Height),
		"-i", "-",
		"-frames:v", "1",
		"-c:v", "libwebp",
		"-quality", fmt.Sprintf("%d", frame.ClampInt(quality, 1, 100)),
		path,
	)
	cmd.Stdin = bytes.NewReader(buf.Pix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg webp error: %v, output: %s", err, string(out))
	}
	return nil
}
