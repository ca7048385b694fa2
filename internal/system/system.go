package system

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoMedia is returned when a directory holds no file of the wanted kind.
	ErrNoMedia = errors.New("no matching media found")
	// ErrUnsupportedFormat is returned for media types nothing can read or write.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Media extension groups accepted as inputs.
var (
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff"}
	VideoExtensions = []string{".mp4", ".mov", ".webm", ".mkv", ".avi"}
	PDFExtensions   = []string{".pdf"}
	GIFExtensions   = []string{".gif"}
)

// InputExtensions is every extension a frame source can open.
func InputExtensions() []string {
	var out []string
	for _, g := range [][]string{ImageExtensions, VideoExtensions, PDFExtensions, GIFExtensions} {
		out = append(out, g...)
	}
	return out
}

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logrus.WithError(err).Warn("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logrus.WithError(err).Warn("could not raise open file limit")
	} else {
		logrus.WithField("limit", rLimit.Cur).Debug("open file limit raised")
	}
}

// HasExtension reports whether name ends in one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatest returns the most recently modified file in dir whose extension
// is in exts.
func FindLatest(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !HasExtension(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("%w in %s", ErrNoMedia, dir)
	}

	return latestFile, nil
}

// FindLatestInput resolves the -input flag: a file is returned unchanged,
// a directory yields its newest openable media file.
func FindLatestInput(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}
	return FindLatest(path, InputExtensions())
}

// VideoInfo is what ffprobe reports about the first video stream.
type VideoInfo struct {
	Width, Height int
	FPS           float64
	Frames        int
	Duration      float64
}

// ReadVideoInfo reads stream geometry and length with ffprobe.
func ReadVideoInfo(path string) (VideoInfo, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames:format=duration",
		"-of", "default=noprint_wrappers=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return parseStreamInfo(string(out))
}

func parseStreamInfo(out string) (VideoInfo, error) {
	var info VideoInfo
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			info.Width, _ = strconv.Atoi(val)
		case "height":
			info.Height, _ = strconv.Atoi(val)
		case "nb_frames":
			info.Frames, _ = strconv.Atoi(val)
		case "duration":
			info.Duration, _ = strconv.ParseFloat(val, 64)
		case "r_frame_rate":
			num, den, ok := strings.Cut(val, "/")
			n, _ := strconv.ParseFloat(num, 64)
			d := 1.0
			if ok {
				d, _ = strconv.ParseFloat(den, 64)
			}
			if d > 0 {
				info.FPS = n / d
			}
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("ffprobe: no video stream")
	}
	if info.Frames <= 0 && info.FPS > 0 && info.Duration > 0 {
		info.Frames = int(info.Duration * info.FPS)
	}
	return info, nil
}

var (
	encodersOnce sync.Once
	encodersList string
)

func ffmpegEncoders() string {
	encodersOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err == nil {
			encodersList = string(out)
		}
	})
	return encodersList
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one,
// falling back to libx264.
func GetBestH264Encoder() string {
	list := ffmpegEncoders()
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(list, name) {
			return name
		}
	}
	return "libx264"
}

// HasFFmpeg reports whether an ffmpeg binary is on PATH.
func HasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
