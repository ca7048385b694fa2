package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

func TestParsePresetDefaultsVersion(t *testing.T) {
	p, err := ParsePreset([]byte(`
effects:
  - type: invert
    active: true
  - type: pixelate
    active: false
    region: r1
    params:
      density: 12
`))
	require.NoError(t, err)
	assert.Equal(t, PresetVersion, p.Version)
	require.Len(t, p.Effects, 2)
	assert.Equal(t, effects.Invert, p.Effects[0].Type)
	assert.Equal(t, "r1", p.Effects[1].Region)
	assert.False(t, p.Effects[1].Active)
	assert.EqualValues(t, 12, p.Effects[1].Params["density"])
}

func TestParsePresetRejectsGarbage(t *testing.T) {
	_, err := ParsePreset([]byte("effects: {type: [}"))
	assert.Error(t, err)
}

func TestPresetFileRoundTrip(t *testing.T) {
	in := &Preset{
		Regions: []RegionPreset{{ID: "r1", Name: "Region 1", Color: "#ff0000", Rect: frame.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}}},
		Effects: []EffectPreset{
			{ID: "a", Type: effects.Vignette, Active: true},
			{ID: "b", Type: effects.Invert, Active: true, Region: "r1"},
		},
	}
	path := filepath.Join(t.TempDir(), "preset.yaml")
	require.NoError(t, WritePreset(in, path))
	assert.Equal(t, PresetVersion, in.Version)

	out, err := ReadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = ReadPreset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, "contrast", cfg.Detector)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Positive(t, cfg.DetectionInterval)
}
