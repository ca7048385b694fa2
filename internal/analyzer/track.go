package analyzer

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/framefx/internal/frame"
)

// TrackVersion is written into every track file.
const TrackVersion = "1.0"

// Track is a recorded detection timeline, one entry per detection pass.
type Track struct {
	Version string       `yaml:"version"`
	Source  string       `yaml:"source,omitempty"`
	Width   int          `yaml:"width,omitempty"`
	Height  int          `yaml:"height,omitempty"`
	Frames  []TrackFrame `yaml:"frames"`
}

// TrackFrame holds the detections observed at Tick.
type TrackFrame struct {
	Tick             int `yaml:"tick"`
	frame.Detections `yaml:",inline"`
}

// WriteTrack writes a track to a YAML file
func WriteTrack(track *Track, path string) error {
	data, err := yaml.Marshal(track)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadTrack reads a track from a YAML file
func ReadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("parse track %s: %w", path, err)
	}
	sort.SliceStable(track.Frames, func(i, j int) bool {
		return track.Frames[i].Tick < track.Frames[j].Tick
	})

	return &track, nil
}

// TrackDetector replays a recorded Track. Each tick sees the latest entry
// recorded at or before it; ticks past the end wrap around the track span so
// looping sources stay in step.
type TrackDetector struct {
	track *Track
}

// NewTrackDetector wraps an already sorted track.
func NewTrackDetector(track *Track) *TrackDetector {
	return &TrackDetector{track: track}
}

// LoadTrackDetector reads path and wraps it.
func LoadTrackDetector(path string) (*TrackDetector, error) {
	track, err := ReadTrack(path)
	if err != nil {
		return nil, err
	}
	return NewTrackDetector(track), nil
}

// Detect implements Detector; img is ignored.
func (d *TrackDetector) Detect(ctx context.Context, _ image.Image, tick int) (frame.Detections, error) {
	if err := ctx.Err(); err != nil {
		return frame.Detections{}, err
	}
	frames := d.track.Frames
	if len(frames) == 0 {
		return frame.Detections{}, nil
	}
	if span := frames[len(frames)-1].Tick + 1; tick >= span {
		tick %= span
	}
	i := sort.Search(len(frames), func(i int) bool { return frames[i].Tick > tick })
	if i == 0 {
		return frame.Detections{}, nil
	}
	return frames[i-1].Detections, nil
}
