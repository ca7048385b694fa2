package frame

import (
	"image"
	"math"
)

// Landmark is a normalized point; Visibility is 0 when the detector omits it.
type Landmark struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Z          float64 `yaml:"z,omitempty"`
	Visibility float64 `yaml:"visibility,omitempty"`
}

// Rect is a rectangle in normalized [0,1] frame coordinates.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Pixels converts r to pixel space for a w×h frame, flooring every component.
func (r Rect) Pixels(w, h int) image.Rectangle {
	floor := func(v float64) int { return int(math.Floor(v)) }
	x, y := floor(r.X*float64(w)), floor(r.Y*float64(h))
	return image.Rect(x, y, x+floor(r.Width*float64(w)), y+floor(r.Height*float64(h)))
}

// Pad grows r by pad on every side, staying inside the unit square.
func (r Rect) Pad(pad float64) Rect {
	minX, minY := max(0, r.X-pad), max(0, r.Y-pad)
	maxX, maxY := min(1, r.X+r.Width+pad), min(1, r.Y+r.Height+pad)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Face is one detected face with optional mesh landmarks.
type Face struct {
	Rect       `yaml:",inline"`
	Landmarks  []Landmark `yaml:"landmarks,omitempty"`
	Confidence float64    `yaml:"confidence,omitempty"`
}

// Hand is one detected hand; Label is "Left", "Right" or "Hand".
type Hand struct {
	Rect       `yaml:",inline"`
	Label      string  `yaml:"label"`
	Confidence float64 `yaml:"confidence,omitempty"`
}

// Pose is one detected body.
type Pose struct {
	Rect       `yaml:",inline"`
	Label      string  `yaml:"label"`
	Confidence float64 `yaml:"confidence,omitempty"`
}

// Detections is the snapshot the detector collaborator produces.
type Detections struct {
	Faces []Face `yaml:"faces,omitempty"`
	Hands []Hand `yaml:"hands,omitempty"`
	Poses []Pose `yaml:"poses,omitempty"`
}

// Empty reports whether nothing was detected.
func (d Detections) Empty() bool {
	return len(d.Faces) == 0 && len(d.Hands) == 0 && len(d.Poses) == 0
}

// Within re-expresses every box and landmark relative to the pixel rectangle
// r of a w×h frame, so face-scoped effects running on an extracted region see
// coordinates normalized to that region. Detections entirely outside r are dropped.
func (d Detections) Within(r image.Rectangle, w, h int) Detections {
	if r.Dx() <= 0 || r.Dy() <= 0 || w <= 0 || h <= 0 {
		return Detections{}
	}
	ox, oy := float64(r.Min.X)/float64(w), float64(r.Min.Y)/float64(h)
	sx, sy := float64(w)/float64(r.Dx()), float64(h)/float64(r.Dy())
	remap := func(b Rect) (Rect, bool) {
		out := Rect{X: (b.X - ox) * sx, Y: (b.Y - oy) * sy, Width: b.Width * sx, Height: b.Height * sy}
		return out, out.X < 1 && out.Y < 1 && out.X+out.Width > 0 && out.Y+out.Height > 0
	}
	points := func(in []Landmark) []Landmark {
		if in == nil {
			return nil
		}
		out := make([]Landmark, len(in))
		for i, p := range in {
			out[i] = Landmark{X: (p.X - ox) * sx, Y: (p.Y - oy) * sy, Z: p.Z, Visibility: p.Visibility}
		}
		return out
	}

	var out Detections
	for _, f := range d.Faces {
		if b, ok := remap(f.Rect); ok {
			out.Faces = append(out.Faces, Face{Rect: b, Landmarks: points(f.Landmarks), Confidence: f.Confidence})
		}
	}
	for _, hd := range d.Hands {
		if b, ok := remap(hd.Rect); ok {
			out.Hands = append(out.Hands, Hand{Rect: b, Label: hd.Label, Confidence: hd.Confidence})
		}
	}
	for _, p := range d.Poses {
		if b, ok := remap(p.Rect); ok {
			out.Poses = append(out.Poses, Pose{Rect: b, Label: p.Label, Confidence: p.Confidence})
		}
	}
	return out
}

// Context is the read-only per-frame data handed to every processor.
type Context struct {
	Width  int
	Height int
	// Tick advances once per rendered frame and never resets mid-session.
	Tick int
	Detections
	// Sources are alternate media frames for cross-source effects.
	Sources []*Buffer
}

// Sub returns a context describing a w×h sub-buffer of the same frame.
func (c *Context) Sub(w, h int) *Context {
	sub := *c
	sub.Width, sub.Height = w, h
	return &sub
}

// HandBounds pads raw hand landmarks into a normalized box, as hand trackers report them.
func HandBounds(landmarks []Landmark, label string) (Hand, bool) {
	r, ok := landmarkRect(landmarks, false)
	if !ok {
		return Hand{}, false
	}
	if label == "" {
		label = "Hand"
	}
	return Hand{Rect: r.Pad(0.05), Label: label}, true
}

// PoseBounds boxes the visible pose landmarks; points with visibility < 0.5 are skipped.
func PoseBounds(landmarks []Landmark) (Pose, bool) {
	r, ok := landmarkRect(landmarks, true)
	if !ok || r.Width <= 0 || r.Height <= 0 {
		return Pose{}, false
	}
	return Pose{Rect: r, Label: "Body"}, true
}

// FaceBounds boxes a face mesh.
func FaceBounds(landmarks []Landmark) (Face, bool) {
	r, ok := landmarkRect(landmarks, false)
	if !ok {
		return Face{}, false
	}
	return Face{Rect: r, Landmarks: landmarks}, true
}

func landmarkRect(points []Landmark, visibleOnly bool) (Rect, bool) {
	minX, minY, maxX, maxY := 1.0, 1.0, 0.0, 0.0
	n := 0
	for _, p := range points {
		if visibleOnly && p.Visibility > 0 && p.Visibility < 0.5 {
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		n++
	}
	if n == 0 {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// LandmarkBounds returns the normalized extent of a landmark subset.
func LandmarkBounds(points []Landmark) (minX, minY, maxX, maxY float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = points[0].X, points[0].X
	minY, maxY = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return
}

// SelectLandmarks picks indices that exist in points, preserving order.
func SelectLandmarks(points []Landmark, indices []int) []Landmark {
	out := make([]Landmark, 0, len(indices))
	for _, i := range indices {
		if i < len(points) {
			out = append(out, points[i])
		}
	}
	return out
}
