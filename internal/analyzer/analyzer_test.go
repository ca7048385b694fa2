package analyzer

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/frame"
)

func squareImage() *image.Gray {
	// White square on black background
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestContrastDetectorBlocks(t *testing.T) {
	blocks := NewContrastDetector().Blocks(squareImage())
	require.NotEmpty(t, blocks)

	// The detected block roughly matches the white square
	block := blocks[0]
	assert.GreaterOrEqual(t, block.Rect.Dx(), 80)
	assert.GreaterOrEqual(t, block.Rect.Dy(), 80)
}

func TestContrastDetectorFaces(t *testing.T) {
	det, err := NewContrastDetector().Detect(context.Background(), squareImage(), 0)
	require.NoError(t, err)
	require.Len(t, det.Faces, 1)

	f := det.Faces[0]
	assert.InDelta(t, 0.25, f.X, 0.05)
	assert.InDelta(t, 0.25, f.Y, 0.05)
	assert.InDelta(t, 0.5, f.Width, 0.1)
	assert.InDelta(t, 0.5, f.Height, 0.1)
}

func TestContrastDetectorRejectsElongated(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 200))
	for y := 90; y < 110; y++ {
		for x := 20; x < 280; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	det, err := NewContrastDetector().Detect(context.Background(), img, 0)
	require.NoError(t, err)
	assert.Empty(t, det.Faces)
}

func TestContrastDetectorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewContrastDetector().Detect(ctx, squareImage(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
		wantNil bool
	}{
		{"contrast", false, false},
		{"", false, false}, // default
		{"none", false, true},
		{"track", true, true}, // no track path
		{"invalid", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant, "")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, detector == nil)
		})
	}

	_, err := NewDetector("ocr", "")
	assert.ErrorIs(t, err, ErrUnknownDetector)
}

func TestTrackWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.yaml")
	track := &Track{
		Version: TrackVersion,
		Source:  "clip.mp4",
		Frames: []TrackFrame{
			{Tick: 10, Detections: frame.Detections{Hands: []frame.Hand{{Rect: frame.Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}, Label: "Left"}}}},
			{Tick: 0, Detections: frame.Detections{Faces: []frame.Face{{Rect: frame.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.3}}}}},
		},
	}
	require.NoError(t, WriteTrack(track, path))

	got, err := ReadTrack(path)
	require.NoError(t, err)
	assert.Equal(t, TrackVersion, got.Version)
	require.Len(t, got.Frames, 2)
	assert.Equal(t, 0, got.Frames[0].Tick, "frames are sorted by tick")
	assert.InDelta(t, 0.2, got.Frames[0].Faces[0].Y, 1e-9)
	assert.Equal(t, "Left", got.Frames[1].Hands[0].Label)
}

func TestTrackDetectorReplay(t *testing.T) {
	face := frame.Face{Rect: frame.Rect{Width: 0.1, Height: 0.1}}
	d := NewTrackDetector(&Track{Frames: []TrackFrame{
		{Tick: 2, Detections: frame.Detections{Faces: []frame.Face{face}}},
		{Tick: 5},
	}})
	ctx := context.Background()

	det, err := d.Detect(ctx, nil, 1)
	require.NoError(t, err)
	assert.True(t, det.Empty(), "nothing recorded before tick 2")

	det, _ = d.Detect(ctx, nil, 3)
	assert.Len(t, det.Faces, 1)

	det, _ = d.Detect(ctx, nil, 5)
	assert.True(t, det.Empty())

	// Span is 6 ticks; tick 8 replays tick 2.
	det, _ = d.Detect(ctx, nil, 8)
	assert.Len(t, det.Faces, 1)
}

func TestDetectorFunc(t *testing.T) {
	var seen int
	var d Detector = DetectorFunc(func(_ context.Context, _ image.Image, tick int) (frame.Detections, error) {
		seen = tick
		return frame.Detections{}, nil
	})
	_, err := d.Detect(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, seen)
}
