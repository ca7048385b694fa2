package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/system"
)

// FFmpegSink streams raw RGBA frames into an ffmpeg process over stdin.
type FFmpegSink struct {
	path   string
	opts   Options
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr *lockedBuffer
	frames int
}

// lockedBuffer collects ffmpeg's stderr. exec copies into it from its own
// goroutine while frames are still being written.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func NewFFmpegSink(path, format string, opts Options) (*FFmpegSink, error) {
	encoder := opts.Encoder
	if format == FormatMP4 && (encoder == "" || encoder == "auto") {
		encoder = system.GetBestH264Encoder()
	}
	args := buildFFmpegArgs(path, format, encoder, opts)

	ctx, cancel := context.WithCancel(context.Background())
	s := &FFmpegSink{path: path, opts: opts, cancel: cancel, stderr: &lockedBuffer{}}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.Stderr = s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	s.stdin = stdin

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"format":  format,
		"encoder": encoder,
		"size":    fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	}).Debug("ffmpeg sink started")
	return s, nil
}

func buildFFmpegArgs(path, format, encoder string, opts Options) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", strconv.Itoa(opts.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
	}

	crf := crfFor(opts.Quality)
	switch format {
	case FormatWebM:
		args = append(args, "-c:v", "libvpx-vp9", "-crf", strconv.Itoa(crf), "-b:v", "0")
	default:
		args = append(args, "-c:v", encoder)
		switch encoder {
		case "h264_videotoolbox":
			bitrate := opts.Quality * 100
			args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
		case "h264_nvenc":
			args = append(args, "-cq", strconv.Itoa(crf))
		default: // libx264
			args = append(args, "-crf", strconv.Itoa(crf), "-preset", "medium")
		}
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, path)
}

// crfFor maps quality 0-100 onto the 51-18 constant rate factor range.
func crfFor(quality int) int {
	quality = frame.ClampInt(quality, 0, 100)
	return 18 + (100-quality)*33/100
}

func (s *FFmpegSink) WriteFrame(buf *frame.Buffer) error {
	if buf.Width != s.opts.Width || buf.Height != s.opts.Height {
		return fmt.Errorf("frame %dx%d does not match sink %dx%d", buf.Width, buf.Height, s.opts.Width, s.opts.Height)
	}
	if _, err := s.stdin.Write(buf.Pix[:buf.Width*buf.Height*4]); err != nil {
		return fmt.Errorf("write raw error: %w: %s", err, s.stderr.String())
	}
	s.frames++
	return nil
}

func (s *FFmpegSink) Close() error {
	defer s.cancel()
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w: %s", err, s.stderr.String())
	}
	logrus.WithFields(logrus.Fields{"path": s.path, "frames": s.frames}).Debug("ffmpeg sink closed")
	return nil
}

// Abort kills the encoder without finalizing the file.
func (s *FFmpegSink) Abort() {
	s.cancel()
	s.stdin.Close()
	s.cmd.Wait()
}
