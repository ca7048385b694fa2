package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/framefx/internal/config"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

func ids(items []*Instance) []string {
	out := make([]string, len(items))
	for i, in := range items {
		out[i] = in.ID
	}
	return out
}

func TestAddEffectDefaults(t *testing.T) {
	c := New(nil)
	in, err := c.AddEffect(effects.Glitch, "")
	require.NoError(t, err)

	assert.True(t, in.Active)
	assert.Empty(t, in.Region)
	assert.Contains(t, in.ID, "effect-")
	assert.Equal(t, 50.0, in.Params["intensity"])
	assert.NotNil(t, in.Effect())
	assert.Equal(t, 1, c.Len())
}

func TestAddEffectUnknownType(t *testing.T) {
	c := New(nil)
	_, err := c.AddEffect("no-such-effect", "")
	require.ErrorIs(t, err, effects.ErrUnknownEffect)
	assert.Zero(t, c.Len())
}

func TestAddEffectRegionChecks(t *testing.T) {
	c := New(nil)
	_, err := c.AddEffect(effects.Invert, "region-missing")
	require.ErrorIs(t, err, ErrRegionNotFound)

	r, err := c.AddRegion(frame.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5})
	require.NoError(t, err)

	_, err = c.AddEffect(effects.ASCII, r.ID)
	require.ErrorIs(t, err, ErrStyleInRegion)

	in, err := c.AddEffect(effects.Invert, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, in.Region)
}

func TestUpdateEffect(t *testing.T) {
	c := New(nil)
	in, err := c.AddEffect(effects.Glitch, "")
	require.NoError(t, err)

	off := false
	require.NoError(t, c.UpdateEffect(in.ID, Patch{Active: &off}))
	assert.True(t, in.Active, "returned instances are snapshots")
	got, ok := c.Effect(in.ID)
	require.True(t, ok)
	assert.False(t, got.Active)

	params := effects.Params{"intensity": 80.0}
	require.NoError(t, c.UpdateEffect(in.ID, Patch{Params: params}))
	got, _ = c.Effect(in.ID)
	assert.Equal(t, 80.0, got.Params["intensity"])
	_, hasSpeed := got.Params["speed"]
	assert.False(t, hasSpeed, "params are replaced, not merged")

	params["intensity"] = 10.0
	got, _ = c.Effect(in.ID)
	assert.Equal(t, 80.0, got.Params["intensity"], "stored params are a copy")

	assert.ErrorIs(t, c.UpdateEffect("effect-nope", Patch{Active: &off}), ErrEffectNotFound)
}

func TestUpdateEffectKeepsState(t *testing.T) {
	c := New(nil)
	in, err := c.AddEffect(effects.Datamosh, "")
	require.NoError(t, err)

	buf := frame.New(8, 8)
	fc := &frame.Context{Width: 8, Height: 8}
	in.Apply(buf, fc)
	require.True(t, in.State().Initialized())

	require.NoError(t, c.UpdateEffect(in.ID, Patch{Params: effects.Params{"intensity": 90.0}}))
	assert.True(t, in.State().Initialized())
}

func TestRemoveEffect(t *testing.T) {
	c := New(nil)
	a, _ := c.AddEffect(effects.Invert, "")
	b, _ := c.AddEffect(effects.Noise, "")

	require.NoError(t, c.RemoveEffect(a.ID))
	assert.Equal(t, []string{b.ID}, ids(c.Effects()))
	assert.ErrorIs(t, c.RemoveEffect(a.ID), ErrEffectNotFound)
}

func TestReorderEffect(t *testing.T) {
	c := New(nil)
	a, _ := c.AddEffect(effects.Invert, "")
	b, _ := c.AddEffect(effects.Noise, "")
	d, _ := c.AddEffect(effects.Vignette, "")

	require.NoError(t, c.ReorderEffect(d.ID, 0))
	assert.Equal(t, []string{d.ID, a.ID, b.ID}, ids(c.Effects()))

	require.NoError(t, c.ReorderEffect(d.ID, 99))
	assert.Equal(t, []string{a.ID, b.ID, d.ID}, ids(c.Effects()))

	require.NoError(t, c.ReorderEffect(b.ID, -3))
	assert.Equal(t, []string{b.ID, a.ID, d.ID}, ids(c.Effects()))

	assert.ErrorIs(t, c.ReorderEffect("effect-nope", 0), ErrEffectNotFound)
}

func TestActiveStyleIsLastActive(t *testing.T) {
	c := New(nil)
	ascii, _ := c.AddEffect(effects.ASCII, "")
	c.AddEffect(effects.Invert, "")
	halftone, _ := c.AddEffect(effects.Halftone, "")

	st, idx := ActiveStyle(c.Effects())
	require.NotNil(t, st)
	assert.Equal(t, halftone.ID, st.ID)
	assert.Equal(t, 2, idx)

	off := false
	require.NoError(t, c.UpdateEffect(halftone.ID, Patch{Active: &off}))
	st, idx = ActiveStyle(c.Effects())
	require.NotNil(t, st)
	assert.Equal(t, ascii.ID, st.ID)
	assert.Equal(t, 0, idx)

	require.NoError(t, c.UpdateEffect(ascii.ID, Patch{Active: &off}))
	st, idx = ActiveStyle(c.Effects())
	assert.Nil(t, st)
	assert.Equal(t, -1, idx)
}

func TestProcessingFiltersScope(t *testing.T) {
	c := New(nil)
	r, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	require.NoError(t, err)

	g, _ := c.AddEffect(effects.Invert, "")
	c.AddEffect(effects.ASCII, "")
	local, _ := c.AddEffect(effects.Noise, r.ID)

	assert.Equal(t, []string{g.ID}, ids(Processing(c.Effects(), "")))
	assert.Equal(t, []string{local.ID}, ids(Processing(c.Effects(), r.ID)))
}

func TestAddRegion(t *testing.T) {
	c := New(nil)

	_, err := c.AddRegion(frame.Rect{X: 0.1, Y: 0.1, Width: 0.01, Height: 0.5})
	require.ErrorIs(t, err, ErrRegionTooSmall)

	r1, err := c.AddRegion(frame.Rect{X: 0.6, Y: 0.6, Width: -0.4, Height: -0.4})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, r1.Rect.X, 1e-9)
	assert.InDelta(t, 0.4, r1.Rect.Width, 1e-9)
	assert.Equal(t, "Region 1", r1.Name)
	assert.Equal(t, RegionColors[0], r1.Color)
	assert.Contains(t, r1.ID, "region-")

	r2, err := c.AddRegion(frame.Rect{X: 0.8, Y: 0.8, Width: 0.5, Height: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "Region 2", r2.Name)
	assert.Equal(t, RegionColors[1], r2.Color)
	assert.InDelta(t, 0.2, r2.Rect.Width, 1e-9, "clipped to the unit square")
}

func TestUpdateRegion(t *testing.T) {
	c := New(nil)
	r, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	require.NoError(t, err)

	require.NoError(t, c.UpdateRegion(r.ID, frame.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}))
	got, ok := c.Region(r.ID)
	require.True(t, ok)
	assert.InDelta(t, 0.25, got.Rect.X, 1e-9)

	assert.ErrorIs(t, c.UpdateRegion(r.ID, frame.Rect{Width: 0.01, Height: 0.5}), ErrRegionTooSmall)
	assert.ErrorIs(t, c.UpdateRegion("region-nope", frame.Rect{Width: 0.5, Height: 0.5}), ErrRegionNotFound)
}

func TestRemoveRegionCascades(t *testing.T) {
	c := New(nil)
	r, _ := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	g, _ := c.AddEffect(effects.Invert, "")
	c.AddEffect(effects.Noise, r.ID)
	c.AddEffect(effects.Glitch, r.ID)

	require.NoError(t, c.RemoveRegion(r.ID))
	assert.Equal(t, []string{g.ID}, ids(c.Effects()))
	assert.Empty(t, c.Regions())
	assert.ErrorIs(t, c.RemoveRegion(r.ID), ErrRegionNotFound)

	next, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "Region 2", next.Name)
}

func TestPresetRoundTrip(t *testing.T) {
	c := New(nil)
	r, _ := c.AddRegion(frame.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4})
	c.AddEffect(effects.Invert, "")
	local, _ := c.AddEffect(effects.Pixelate, "")
	c.AddEffect(effects.Noise, r.ID)
	off := false
	require.NoError(t, c.UpdateEffect(local.ID, Patch{Active: &off}))

	p := c.Preset()
	assert.Equal(t, config.PresetVersion, p.Version)
	require.Len(t, p.Regions, 1)
	require.Len(t, p.Effects, 3)

	loaded, err := FromPreset(p, nil)
	require.NoError(t, err)
	assert.Equal(t, ids(c.Effects()), ids(loaded.Effects()))
	assert.Equal(t, c.Regions(), loaded.Regions())

	got, ok := loaded.Effect(local.ID)
	require.True(t, ok)
	assert.False(t, got.Active)
}

func TestFromPresetSkipsUnknownTypes(t *testing.T) {
	p := &config.Preset{Effects: []config.EffectPreset{
		{Type: "from-the-future", Active: true},
		{Type: effects.Invert, Active: true},
	}}
	c, err := FromPreset(p, nil)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, effects.Invert, c.Effects()[0].Type)
}

func TestFromPresetRejectsBadRegion(t *testing.T) {
	p := &config.Preset{Effects: []config.EffectPreset{
		{Type: effects.Invert, Active: true, Region: "region-ghost"},
	}}
	_, err := FromPreset(p, nil)
	assert.ErrorIs(t, err, ErrRegionNotFound)
}

func TestSnapshotsSurviveConcurrentEdits(t *testing.T) {
	c := New(nil)
	r, err := c.AddRegion(frame.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	require.NoError(t, err)
	smear, err := c.AddEffect(effects.MotionSmear, r.ID)
	require.NoError(t, err)
	style, err := c.AddEffect(effects.ASCII, "")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			active := i%2 == 0
			c.UpdateEffect(style.ID, Patch{Active: &active})
			c.UpdateEffect(smear.ID, Patch{Params: effects.Params{"intensity": float64(i % 100)}})
			c.UpdateRegion(r.ID, frame.Rect{X: 0, Y: 0, Width: 0.5 + float64(i%10)/100, Height: 0.5})
		}
	}()

	buf := frame.New(8, 8)
	fc := &frame.Context{Width: 8, Height: 8}
	for i := 0; i < 200; i++ {
		items := c.Effects()
		ActiveStyle(items)
		for _, in := range Processing(items, r.ID) {
			in.Apply(buf, fc)
		}
		c.Regions()
	}
	<-done

	got, ok := c.Effect(smear.ID)
	require.True(t, ok)
	assert.Equal(t, 99.0, got.Params["intensity"])
}
