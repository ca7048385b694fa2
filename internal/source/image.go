package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/framefx/internal/system"
)

// StillSource plays stills as frames: one file, or every still in a
// directory in name order. Subdirectories and non-image files are skipped.
type StillSource struct {
	frames []string
}

func NewStillSource(path string) (*StillSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stills %s: %w", path, err)
	}
	if !fi.IsDir() {
		return &StillSource{frames: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list stills %s: %w", path, err)
	}
	s := &StillSource{}
	for _, entry := range entries {
		if entry.IsDir() || !system.HasExtension(entry.Name(), system.ImageExtensions) {
			continue
		}
		s.frames = append(s.frames, filepath.Join(path, entry.Name()))
	}
	slices.Sort(s.frames)
	return s, nil
}

func (s *StillSource) PageCount() int {
	return len(s.frames)
}

// GetPageDimensions reads only the still's header.
func (s *StillSource) GetPageDimensions(index int) (float64, float64, error) {
	f, err := s.open(index)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("frame %d header (%s): %w", index, filepath.Base(f.Name()), err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes frame index at its native size; dpi does not apply.
func (s *StillSource) RenderPage(index int, _ int) (image.Image, error) {
	f, err := s.open(index)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d (%s): %w", index, filepath.Base(f.Name()), err)
	}
	return img, nil
}

func (s *StillSource) open(index int) (*os.File, error) {
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", index, len(s.frames))
	}
	f, err := os.Open(s.frames[index])
	if err != nil {
		return nil, fmt.Errorf("open frame %d: %w", index, err)
	}
	return f, nil
}

func (s *StillSource) Close() error {
	return nil
}
