// Package analyzer provides the detection collaborators that feed face, hand
// and pose boxes into the frame context.
package analyzer

import (
	"context"
	"image"

	"github.com/ivlev/framefx/internal/frame"
)

// Block represents a detected region of interest in an image
type Block struct {
	Rect       image.Rectangle
	Type       string  // "face", "unknown"
	Confidence float64 // 0.0-1.0
}

// Detector produces detections for one source frame. tick identifies the
// frame for detectors that replay recorded data.
type Detector interface {
	Detect(ctx context.Context, img image.Image, tick int) (frame.Detections, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(ctx context.Context, img image.Image, tick int) (frame.Detections, error)

// Detect implements Detector.
func (f DetectorFunc) Detect(ctx context.Context, img image.Image, tick int) (frame.Detections, error) {
	return f(ctx, img, tick)
}
