package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolReusesSize(t *testing.T) {
	p := NewBufferPool()
	b := p.Get(8, 4)
	require.Equal(t, 8, b.Width)
	require.Equal(t, 4, b.Height)
	require.Len(t, b.Pix, 8*4*4)
	p.Put(b)

	other := p.Get(2, 2)
	assert.Equal(t, 2, other.Width)
	assert.True(t, p.Get(0, 5).Empty())
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.png")
	newer := filepath.Join(dir, "b.WEBP")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := FindLatest(dir, ImageExtensions)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	_, err = FindLatest(dir, PDFExtensions)
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestFindLatestInputPassesFiles(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(f, nil, 0644))

	got, err := FindLatestInput(f)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	got, err = FindLatestInput(dir)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseStreamInfo(t *testing.T) {
	info, err := parseStreamInfo("width=640\nheight=360\nr_frame_rate=30/1\nnb_frames=N/A\nduration=2.5\n")
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)
	assert.InDelta(t, 30.0, info.FPS, 1e-9)
	assert.Equal(t, 75, info.Frames)

	_, err = parseStreamInfo("duration=1.0\n")
	assert.Error(t, err)
}

func TestReportFPS(t *testing.T) {
	r := Report{Frames: 90, Total: 3 * time.Second}
	assert.InDelta(t, 30.0, r.FPS(), 1e-9)
	assert.Contains(t, r.String(), "PERFORMANCE REPORT")
	assert.Zero(t, Report{}.FPS())
}

func TestAppendBenchmarkLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark.log")
	require.NoError(t, AppendBenchmarkLog(path, Report{Build: "dev", Input: "/x/in.png", Frames: 3}))
	require.NoError(t, AppendBenchmarkLog(path, Report{Build: "dev", Input: "/x/in.png", Frames: 4}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Input: in.png | Frames: 3")
	assert.Contains(t, string(data), "Frames: 4")
}
