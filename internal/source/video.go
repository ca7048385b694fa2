package source

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/system"
)

// VideoSource decodes a video file through an ffmpeg rawvideo pipe. Reads are
// sequential: stepping forward skips frames, stepping back restarts the decoder.
type VideoSource struct {
	path string
	info system.VideoInfo

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	next   int
	last   *image.RGBA
	lastAt int
}

func NewVideoSource(path string) (*VideoSource, error) {
	info, err := system.ReadVideoInfo(path)
	if err != nil {
		return nil, err
	}
	return &VideoSource{path: path, info: info, lastAt: -1}, nil
}

// Info returns the stream geometry ffprobe reported.
func (s *VideoSource) Info() system.VideoInfo {
	return s.info
}

func (s *VideoSource) PageCount() int {
	return s.info.Frames
}

func (s *VideoSource) GetPageDimensions(int) (float64, float64, error) {
	return float64(s.info.Width), float64(s.info.Height), nil
}

func (s *VideoSource) RenderPage(index int, _ int) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == s.lastAt && s.last != nil {
		return s.last, nil
	}
	if s.cmd == nil || index < s.next {
		if err := s.restart(); err != nil {
			return nil, err
		}
	}

	size := s.info.Width * s.info.Height * 4
	for s.next <= index {
		img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
		if _, err := io.ReadFull(s.stdout, img.Pix[:size]); err != nil {
			s.stop()
			return nil, fmt.Errorf("read frame %d of %s: %w", s.next, s.path, err)
		}
		s.last, s.lastAt = img, s.next
		s.next++
	}
	return s.last, nil
}

func (s *VideoSource) restart() error {
	s.stop()
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", s.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vframes", strconv.Itoa(max(1, s.info.Frames)),
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	logrus.WithFields(logrus.Fields{"path": s.path, "frames": s.info.Frames}).Debug("video decoder started")
	s.cmd, s.stdout, s.next = cmd, stdout, 0
	return nil
}

func (s *VideoSource) stop() {
	if s.cmd == nil {
		return
	}
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	s.cmd, s.stdout = nil, nil
}

func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	return nil
}
