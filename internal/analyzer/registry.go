package analyzer

import (
	"errors"
	"fmt"
)

// ErrUnknownDetector is returned for an unrecognised variant name.
var ErrUnknownDetector = errors.New("unknown detector variant")

// NewDetector creates a detector based on the specified variant. "none"
// returns a nil detector: frames carry no detections. "track" replays the
// YAML track at trackPath.
func NewDetector(variant, trackPath string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "track":
		if trackPath == "" {
			return nil, fmt.Errorf("track detector needs a track file")
		}
		return LoadTrackDetector(trackPath)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDetector, variant)
	}
}
