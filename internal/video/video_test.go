package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/system"
)

func halves(w, h int) *frame.Buffer {
	buf := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				buf.Set(x, y, 255, 0, 0, 255)
			} else {
				buf.Set(x, y, 0, 0, 255, 255)
			}
		}
	}
	return buf
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJPEG, FormatOf("out.JPG", ""))
	assert.Equal(t, FormatTIFF, FormatOf("out.tif", ""))
	assert.Equal(t, FormatGIF, FormatOf("out.mp4", ".gif"))
	assert.True(t, IsSequence(FormatWebM))
	assert.False(t, IsSequence(FormatPNG))
	assert.True(t, IsStill(FormatWebP))
	assert.False(t, IsStill(FormatMP4))
}

func TestNewSinkRejects(t *testing.T) {
	_, err := NewSink("x.avi", "avi", Options{Width: 4, Height: 4})
	assert.ErrorIs(t, err, system.ErrUnsupportedFormat)

	_, err = NewSink("x.gif", FormatGIF, Options{})
	assert.Error(t, err)
}

func TestQuantizeKeepsDistinctColours(t *testing.T) {
	pal := Quantize(halves(8, 8), 256)
	require.NotEmpty(t, pal)
	assert.LessOrEqual(t, len(pal), 256)
	for _, want := range []color.RGBA{{255, 0, 0, 255}, {0, 0, 255, 255}} {
		got := color.RGBAModel.Convert(pal.Convert(want)).(color.RGBA)
		assert.InDelta(t, int(want.R), int(got.R), 2)
		assert.InDelta(t, int(want.B), int(got.B), 2)
	}

	assert.LessOrEqual(t, len(Quantize(halves(8, 8), 1)), 1)
}

func TestGIFSinkReusesFirstPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	sink, err := NewSink(path, FormatGIF, Options{Width: 8, Height: 8, FPS: 10})
	require.NoError(t, err)
	gs := sink.(*GIFSink)

	require.NoError(t, sink.WriteFrame(halves(8, 8)))
	first := gs.Palette()
	green := frame.New(8, 8)
	green.Fill(0, 255, 0, 255)
	require.NoError(t, sink.WriteFrame(green))
	assert.Equal(t, first, gs.Palette())
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	require.Len(t, g.Image, 2)
	assert.Equal(t, []int{10, 10}, g.Delay)
}

func TestGIFSinkEmptyClose(t *testing.T) {
	sink := NewGIFSink(filepath.Join(t.TempDir(), "out.gif"), Options{FPS: 30})
	assert.Error(t, sink.Close())
}

func TestWriteStillFormats(t *testing.T) {
	buf := halves(6, 4)
	for _, format := range []string{FormatPNG, FormatJPEG, FormatBMP, FormatTIFF} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "still."+format)
			require.NoError(t, WriteStill(path, buf, format, 90))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			img, got, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, format, got)
			assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())
		})
	}

	assert.Error(t, WriteStill(filepath.Join(t.TempDir(), "x.png"), frame.New(0, 0), FormatPNG, 90))
	assert.ErrorIs(t, EncodeStill(&bytes.Buffer{}, buf, FormatWebP, 90), system.ErrUnsupportedFormat)
}

func TestBuildFFmpegArgs(t *testing.T) {
	opts := Options{Width: 64, Height: 36, FPS: 25, Quality: 100}

	args := buildFFmpegArgs("o.mp4", FormatMP4, "libx264", opts)
	assert.Contains(t, args, "64x36")
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "-crf")
	assert.Equal(t, "o.mp4", args[len(args)-1])

	args = buildFFmpegArgs("o.mp4", FormatMP4, "h264_nvenc", opts)
	assert.Contains(t, args, "-cq")

	args = buildFFmpegArgs("o.webm", FormatWebM, "", opts)
	assert.Contains(t, args, "libvpx-vp9")

	assert.Equal(t, 18, crfFor(100))
	assert.Equal(t, 51, crfFor(0))
}

func TestFFmpegSinkRoundTrip(t *testing.T) {
	if !system.HasFFmpeg() {
		t.Skip("ffmpeg not installed")
	}
	path := filepath.Join(t.TempDir(), "out.mp4")
	sink, err := NewSink(path, FormatMP4, Options{Width: 64, Height: 36, FPS: 10, Quality: 50, Encoder: "libx264"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.WriteFrame(halves(64, 36)))
	}
	assert.Error(t, sink.WriteFrame(halves(8, 8)))
	require.NoError(t, sink.Close())

	info, err := system.ReadVideoInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
}

func TestStderrBufferConcurrentAccess(t *testing.T) {
	b := &lockedBuffer{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fmt.Fprint(b, "x")
			}
		}()
	}
	for j := 0; j < 100; j++ {
		_ = b.String()
	}
	wg.Wait()
	assert.Len(t, b.String(), 400)
}
