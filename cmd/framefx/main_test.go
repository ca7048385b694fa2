package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/config"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

func TestBuildChainFromEffects(t *testing.T) {
	cfg := config.Defaults()
	cfg.Effects = "invert, posterize,,ascii"
	c, err := buildChain(cfg)
	require.NoError(t, err)

	items := c.Effects()
	require.Len(t, items, 3)
	assert.Equal(t, effects.Invert, items[0].Type)
	assert.Equal(t, effects.ASCII, items[2].Type)

	cfg.Effects = "invert,sparkles"
	_, err = buildChain(cfg)
	assert.ErrorIs(t, err, effects.ErrUnknownEffect)
}

func TestBuildChainPresetRoundTrip(t *testing.T) {
	cfg := config.Defaults()
	cfg.Effects = "vignette,pixelate"
	c, err := buildChain(cfg)
	require.NoError(t, err)
	r, err := c.AddRegion(frame.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5})
	require.NoError(t, err)
	_, err = c.AddEffect(effects.Invert, r.ID)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, config.WritePreset(c.Preset(), path))

	cfg = config.Defaults()
	cfg.PresetPath = path
	loaded, err := buildChain(cfg)
	require.NoError(t, err)

	want, got := c.Preset(), loaded.Preset()
	require.Len(t, got.Effects, len(want.Effects))
	for i := range want.Effects {
		assert.Equal(t, want.Effects[i].ID, got.Effects[i].ID)
		assert.Equal(t, want.Effects[i].Type, got.Effects[i].Type)
		assert.Equal(t, want.Effects[i].Region, got.Effects[i].Region)
	}
	require.Len(t, got.Regions, 1)
	assert.Equal(t, r.ID, got.Regions[0].ID)
	assert.InDelta(t, 0.5, got.Regions[0].Rect.Width, 1e-9)
}

func TestBuildEngineRejectsUnknownDetector(t *testing.T) {
	cfg := config.Defaults()
	cfg.Detector = "ocr"
	c, err := buildChain(cfg)
	require.NoError(t, err)
	_, err = buildEngine(cfg, c)
	assert.Error(t, err)

	cfg.Detector = "none"
	eng, err := buildEngine(cfg, c)
	require.NoError(t, err)
	assert.NotNil(t, eng.Renderer())
}

func TestDefaultOutputPath(t *testing.T) {
	got := defaultOutputPath("input/My Clip.mov", "gif")
	assert.Equal(t, "output", filepath.Dir(got))
	assert.True(t, strings.HasPrefix(filepath.Base(got), "My_Clip_"))
	assert.Equal(t, ".gif", filepath.Ext(got))

	got = defaultOutputPath("qr:check", "png")
	assert.True(t, strings.HasPrefix(filepath.Base(got), "check_"))
}

func TestLoadMix(t *testing.T) {
	mix, err := loadMix("qr:a, ,qr:b", 72)
	require.NoError(t, err)
	require.Len(t, mix, 2)
	assert.False(t, mix[0].Empty())

	_, err = loadMix("missing/file.png", 72)
	assert.Error(t, err)
}
