package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDegenerate(t *testing.T) {
	assert.True(t, New(0, 5).Empty())
	assert.True(t, New(-1, -1).Empty())
	assert.False(t, New(1, 1).Empty())
	var nilBuf *Buffer
	assert.True(t, nilBuf.Empty())
}

func TestFromImageRebasesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 13, 12))
	img.Set(10, 10, color.NRGBA{R: 200, A: 255})
	buf := FromImage(img)
	require.Equal(t, 3, buf.Width)
	require.Equal(t, 2, buf.Height)
	r, _, _, a := buf.At(0, 0)
	assert.Equal(t, uint8(200), r)
	assert.Equal(t, uint8(255), a)
}

func TestAtClampsSetDrops(t *testing.T) {
	buf := New(2, 2)
	buf.Set(1, 1, 9, 8, 7, 6)
	buf.Set(5, 5, 1, 1, 1, 1)
	r, g, b, a := buf.At(10, 10)
	assert.Equal(t, [4]uint8{9, 8, 7, 6}, [4]uint8{r, g, b, a})
}

func TestExtractPasteRoundTrip(t *testing.T) {
	buf := New(6, 4)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i)
	}
	orig := buf.Clone()

	r := image.Rect(1, 1, 4, 3)
	sub := buf.Extract(r)
	require.Equal(t, 3, sub.Width)
	require.Equal(t, 2, sub.Height)
	assert.Equal(t, buf.Pix[buf.Offset(1, 1)], sub.Pix[0])

	sub.Fill(0, 0, 0, 0)
	buf.Paste(sub, r.Min.X, r.Min.Y)
	r0, _, _, _ := buf.At(2, 2)
	assert.Zero(t, r0)
	r0, _, _, _ = buf.At(0, 0)
	assert.Equal(t, orig.Pix[0], r0)

	// Clipped extraction into a pooled buffer is refused.
	dst := New(3, 2)
	assert.False(t, buf.ExtractInto(dst, image.Rect(4, 3, 7, 5)))
	assert.True(t, buf.ExtractInto(dst, r))

	// Pasting partly outside clips.
	assert.NotPanics(t, func() { buf.Paste(New(4, 4), 4, 2) })
}

func TestCopyFromRequiresSameSize(t *testing.T) {
	a, b := New(2, 2), New(3, 2)
	b.Fill(1, 2, 3, 4)
	assert.False(t, a.CopyFrom(b))
	c := New(3, 2)
	assert.True(t, c.CopyFrom(b))
	assert.True(t, c.Equal(b))
}

func TestOpaque(t *testing.T) {
	buf := New(2, 1)
	buf.Opaque()
	assert.Equal(t, []byte{0, 0, 0, 255, 0, 0, 0, 255}, buf.Pix)
}

func TestRectPixelsFloors(t *testing.T) {
	r := Rect{X: 0.25, Y: 0.5, Width: 0.3, Height: 0.26}
	assert.Equal(t, image.Rect(2, 5, 5, 7), r.Pixels(10, 10))

	// Boxes hanging off the top-left edge floor away from zero.
	r = Rect{X: -0.05, Y: -0.15, Width: 0.3, Height: 0.3}
	assert.Equal(t, image.Rect(-1, -2, 2, 1), r.Pixels(10, 10))
}

func TestRectPad(t *testing.T) {
	r := Rect{X: 0.05, Y: 0.5, Width: 0.9, Height: 0.2}.Pad(0.1)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.X+r.Width, 1e-9)
	assert.InDelta(t, 0.4, r.Y, 1e-9)
	assert.InDelta(t, 0.4, r.Height, 1e-9)
}

func TestDetectionsWithin(t *testing.T) {
	d := Detections{
		Faces: []Face{
			{Rect: Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}, Landmarks: []Landmark{{X: 0.55, Y: 0.55}}},
			{Rect: Rect{X: 0.0, Y: 0.0, Width: 0.1, Height: 0.1}},
		},
		Hands: []Hand{{Rect: Rect{X: 0.6, Y: 0.6, Width: 0.1, Height: 0.1}, Label: "Left"}},
	}
	// Region covers the right-bottom half of a 100x100 frame.
	got := d.Within(image.Rect(50, 50, 100, 100), 100, 100)
	require.Len(t, got.Faces, 1, "the top-left face is outside the region")
	assert.InDelta(t, 0, got.Faces[0].X, 1e-9)
	assert.InDelta(t, 0.2, got.Faces[0].Width, 1e-9)
	assert.InDelta(t, 0.1, got.Faces[0].Landmarks[0].X, 1e-9)
	require.Len(t, got.Hands, 1)
	assert.Equal(t, "Left", got.Hands[0].Label)

	assert.True(t, d.Within(image.Rectangle{}, 100, 100).Empty())
}

func TestContextSub(t *testing.T) {
	fc := &Context{Width: 100, Height: 50, Tick: 7}
	sub := fc.Sub(10, 5)
	assert.Equal(t, 10, sub.Width)
	assert.Equal(t, 7, sub.Tick)
	assert.Equal(t, 100, fc.Width)
}

func TestLandmarkBoxes(t *testing.T) {
	pts := []Landmark{{X: 0.2, Y: 0.3}, {X: 0.4, Y: 0.6}, {X: 0.9, Y: 0.9, Visibility: 0.1}}

	pose, ok := PoseBounds(pts)
	require.True(t, ok)
	assert.InDelta(t, 0.2, pose.Width, 1e-9, "low-visibility point skipped")

	hand, ok := HandBounds(pts[:2], "")
	require.True(t, ok)
	assert.Equal(t, "Hand", hand.Label)
	assert.InDelta(t, 0.15, hand.X, 1e-9)

	_, ok = FaceBounds(nil)
	assert.False(t, ok)

	sel := SelectLandmarks(pts, []int{2, 0, 99})
	assert.Equal(t, []Landmark{pts[2], pts[0]}, sel)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, ClampInt(-3, 0, 5))
	assert.Equal(t, 5, ClampInt(9, 0, 5))
	assert.Equal(t, uint8(0), ClampByte(-1))
	assert.Equal(t, uint8(255), ClampByte(300))
	assert.Equal(t, uint8(128), ClampByte(127.5))
}
