// Package director records detection tracks: it runs a detector over a source
// once, ahead of export, so later runs can replay the result deterministically.
package director

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/analyzer"
	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/source"
)

// Director samples a source every Interval ticks and collects detections
type Director struct {
	Detector analyzer.Detector
	Interval int
	Width    int
	Height   int
	DPI      int
	// RowThreshold is the normalized vertical distance under which two faces
	// count as the same row.
	RowThreshold float64
}

// NewDirector creates a new Director with default settings
func NewDirector(det analyzer.Detector, width, height int) *Director {
	return &Director{
		Detector:     det,
		Interval:     10,
		Width:        width,
		Height:       height,
		DPI:          150,
		RowThreshold: 0.03,
	}
}

// GenerateTrack runs the detector on ticks 0, Interval, 2*Interval... below
// frames and returns the recorded track.
func (d *Director) GenerateTrack(ctx context.Context, src source.Source, input string, frames int) (*analyzer.Track, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("no frames to record")
	}
	if d.Detector == nil {
		return nil, fmt.Errorf("no detector configured")
	}
	interval := max(1, d.Interval)

	track := &analyzer.Track{
		Version: analyzer.TrackVersion,
		Source:  input,
		Width:   d.Width,
		Height:  d.Height,
	}
	for tick := 0; tick < frames; tick += interval {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := source.Frame(src, tick, d.DPI, d.Width, d.Height)
		if err != nil {
			return nil, err
		}
		det, err := d.Detector.Detect(ctx, buf.Image(), tick)
		if err != nil {
			return nil, fmt.Errorf("detect tick %d: %w", tick, err)
		}
		det.Faces = d.sortFaces(det.Faces)
		track.Frames = append(track.Frames, analyzer.TrackFrame{Tick: tick, Detections: det})
		logrus.WithFields(logrus.Fields{"tick": tick, "faces": len(det.Faces)}).Debug("track sample")
	}
	return track, nil
}

// sortFaces sorts faces in reading order (top-to-bottom, left-to-right) so
// face indices stay stable between samples.
func (d *Director) sortFaces(faces []frame.Face) []frame.Face {
	sorted := make([]frame.Face, len(faces))
	copy(sorted, faces)

	sort.SliceStable(sorted, func(i, j int) bool {
		yDiff := sorted[i].Y - sorted[j].Y
		if abs(yDiff) > d.RowThreshold {
			return sorted[i].Y < sorted[j].Y
		}

		// Same row, sort by X
		return sorted[i].X < sorted[j].X
	})

	return sorted
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
