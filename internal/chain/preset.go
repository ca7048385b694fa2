package chain

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/config"
	"github.com/ivlev/framefx/internal/effects"
)

// FromPreset builds a chain from a saved preset. Unknown effect types are
// skipped with a warning so presets from newer builds still load.
func FromPreset(p *config.Preset, reg *effects.Registry) (*Chain, error) {
	c := New(reg)
	for _, r := range p.Regions {
		if _, err := c.restoreRegion(Region{ID: r.ID, Name: r.Name, Color: r.Color, Rect: r.Rect}); err != nil {
			return nil, fmt.Errorf("preset region %q: %w", r.ID, err)
		}
	}
	for i, e := range p.Effects {
		id := e.ID
		if id == "" {
			id = newEffectID()
		}
		_, err := c.insert(&Instance{ID: id, Type: e.Type, Active: e.Active, Region: e.Region, Params: effects.Resolve(e.Type, e.Params)})
		switch {
		case err == nil:
		case errors.Is(err, effects.ErrUnknownEffect):
			logrus.WithFields(logrus.Fields{
				"function": "FromPreset",
				"index":    i,
				"type":     e.Type,
			}).Warn("skipping unknown effect type")
		default:
			return nil, fmt.Errorf("preset effect %d (%s): %w", i, e.Type, err)
		}
	}
	return c, nil
}

// Preset snapshots the chain into its saved form.
func (c *Chain) Preset() *config.Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := &config.Preset{Version: config.PresetVersion}
	for _, r := range c.regions {
		p.Regions = append(p.Regions, config.RegionPreset{ID: r.ID, Name: r.Name, Color: r.Color, Rect: r.Rect})
	}
	for _, in := range c.items {
		p.Effects = append(p.Effects, config.EffectPreset{
			ID:     in.ID,
			Type:   in.Type,
			Active: in.Active,
			Region: in.Region,
			Params: in.Params.Clone(),
		})
	}
	return p
}
