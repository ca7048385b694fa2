package chain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

// MinRegionSize is the smallest normalized width or height a drawn region may have.
const MinRegionSize = 0.02

// RegionColors is the display palette regions cycle through.
var RegionColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// Region is a normalized sub-rectangle that scopes a set of effects.
type Region struct {
	ID    string
	Name  string
	Color string
	Rect  frame.Rect
}

// normalizeRect orders the corners of a drag gesture and clips to the unit square.
func normalizeRect(r frame.Rect) frame.Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	x0, y0 = max(0, x0), max(0, y0)
	x1, y1 = min(1, x1), min(1, y1)
	return frame.Rect{X: x0, Y: y0, Width: max(0, x1-x0), Height: max(0, y1-y0)}
}

// AddRegion creates a region from a drawn rectangle. Rectangles narrower or
// shorter than MinRegionSize are rejected.
func (c *Chain) AddRegion(r frame.Rect) (*Region, error) {
	r = normalizeRect(r)
	if r.Width < MinRegionSize || r.Height < MinRegionSize {
		return nil, fmt.Errorf("%w: %.3fx%.3f", ErrRegionTooSmall, r.Width, r.Height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reg := &Region{
		ID:    "region-" + uuid.NewString(),
		Name:  fmt.Sprintf("Region %d", c.regionSeq+1),
		Color: RegionColors[c.regionSeq%len(RegionColors)],
		Rect:  r,
	}
	c.regionSeq++
	c.regions = append(c.regions, reg)
	out := *reg
	return &out, nil
}

// restoreRegion adds a region loaded from a preset, keeping its identity.
func (c *Chain) restoreRegion(reg Region) (*Region, error) {
	reg.Rect = normalizeRect(reg.Rect)
	if reg.Rect.Width < MinRegionSize || reg.Rect.Height < MinRegionSize {
		return nil, fmt.Errorf("%w: %s", ErrRegionTooSmall, reg.ID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if reg.ID == "" {
		reg.ID = "region-" + uuid.NewString()
	}
	if reg.Name == "" {
		reg.Name = fmt.Sprintf("Region %d", c.regionSeq+1)
	}
	if reg.Color == "" {
		reg.Color = RegionColors[c.regionSeq%len(RegionColors)]
	}
	c.regionSeq++
	stored := reg
	c.regions = append(c.regions, &stored)
	return &reg, nil
}

// UpdateRegion moves or resizes a region, applying the same size threshold.
func (c *Chain) UpdateRegion(id string, r frame.Rect) error {
	r = normalizeRect(r)
	if r.Width < MinRegionSize || r.Height < MinRegionSize {
		return fmt.Errorf("%w: %.3fx%.3f", ErrRegionTooSmall, r.Width, r.Height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.regionIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	c.regions[idx].Rect = r
	for _, in := range c.items {
		if in.Region == id {
			in.state = &effects.State{}
		}
	}
	return nil
}

// RemoveRegion deletes a region together with every effect scoped to it.
func (c *Chain) RemoveRegion(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.regionIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	c.regions = append(c.regions[:idx], c.regions[idx+1:]...)

	kept := c.items[:0]
	removed := 0
	for _, in := range c.items {
		if in.Region == id {
			removed++
			continue
		}
		kept = append(kept, in)
	}
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = nil
	}
	c.items = kept

	logrus.WithFields(logrus.Fields{
		"function": "RemoveRegion",
		"region":   id,
		"effects":  removed,
	}).Debug("region removed")
	return nil
}

// Region returns a copy of the region with the given id.
func (c *Chain) Region(id string) (*Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.regionIndex(id); idx >= 0 {
		out := *c.regions[idx]
		return &out, true
	}
	return nil, false
}

// Regions returns a copy of the region list in creation order.
func (c *Chain) Regions() []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Region, len(c.regions))
	for i, r := range c.regions {
		out[i] = *r
	}
	return out
}

func (c *Chain) regionIndex(id string) int {
	for i, r := range c.regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}
