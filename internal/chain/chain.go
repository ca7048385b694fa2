// Package chain holds the ordered effect chain and the user-drawn regions
// that scope parts of it.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

var (
	ErrEffectNotFound = errors.New("effect not found")
	ErrRegionNotFound = errors.New("region not found")
	ErrRegionTooSmall = errors.New("region below minimum size")
	ErrStyleInRegion  = errors.New("style effects cannot be scoped to a region")
)

// Instance is one configured effect in the chain. Instances handed out by
// the chain are snapshots: later edits do not change them, but a snapshot
// shares its temporal state slot with the live instance.
type Instance struct {
	ID     string
	Type   effects.Type
	Active bool
	// Region is the owning region id; empty means global.
	Region string
	Params effects.Params

	effect effects.Effect
	state  *effects.State
}

// Effect returns the compiled effect.
func (in *Instance) Effect() effects.Effect { return in.effect }

// State returns the temporal state slot owned by this instance.
func (in *Instance) State() *effects.State { return in.state }

// Apply runs the compiled effect on buf.
func (in *Instance) Apply(buf *frame.Buffer, fc *frame.Context) {
	in.effect.Apply(buf, fc, in.state)
}

// IsStyle reports whether the instance is a style effect.
func (in *Instance) IsStyle() bool { return effects.IsStyle(in.Type) }

// Patch is a partial update. Nil fields are left unchanged; a non-nil Params
// replaces the whole parameter map.
type Patch struct {
	Active *bool
	Region *string
	Params effects.Params
}

// Chain is the ordered list of effect instances plus the region set. All
// methods are safe for concurrent use; readers get snapshots, so a render
// can run while the chain is edited.
type Chain struct {
	mu       sync.RWMutex
	registry *effects.Registry
	items    []*Instance
	regions  []*Region
	// regionSeq numbers region display names and never goes backwards.
	regionSeq int
}

// New returns an empty chain compiling effects from reg.
func New(reg *effects.Registry) *Chain {
	if reg == nil {
		reg = effects.Default
	}
	return &Chain{registry: reg}
}

// Registry returns the registry the chain compiles against.
func (c *Chain) Registry() *effects.Registry { return c.registry }

// AddEffect appends an instance of t with default parameters. regionID scopes
// it to a region; pass "" for a global effect.
func (c *Chain) AddEffect(t effects.Type, regionID string) (*Instance, error) {
	return c.insert(&Instance{ID: newEffectID(), Type: t, Active: true, Region: regionID, Params: effects.DefaultParams(t)})
}

func (c *Chain) insert(in *Instance) (*Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if in.Region != "" {
		if in.IsStyle() {
			return nil, fmt.Errorf("%w: %s", ErrStyleInRegion, in.Type)
		}
		if c.regionIndex(in.Region) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, in.Region)
		}
	}
	eff, err := c.registry.Compile(in.Type, in.Params)
	if err != nil {
		return nil, err
	}
	in.effect = eff
	in.state = &effects.State{}
	c.items = append(c.items, in)

	logrus.WithFields(logrus.Fields{
		"function": "AddEffect",
		"id":       in.ID,
		"type":     in.Type,
		"region":   in.Region,
	}).Debug("effect added")
	return in.snapshot(), nil
}

// UpdateEffect applies p to the instance with the given id. Changing
// parameters recompiles the effect but keeps its temporal state.
func (c *Chain) UpdateEffect(id string, p Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEffectNotFound, id)
	}
	in := c.items[idx]

	if p.Region != nil && *p.Region != in.Region {
		if *p.Region != "" {
			if in.IsStyle() {
				return fmt.Errorf("%w: %s", ErrStyleInRegion, in.Type)
			}
			if c.regionIndex(*p.Region) < 0 {
				return fmt.Errorf("%w: %s", ErrRegionNotFound, *p.Region)
			}
		}
		in.Region = *p.Region
		in.state = &effects.State{}
	}
	if p.Params != nil {
		eff, err := c.registry.Compile(in.Type, p.Params)
		if err != nil {
			return err
		}
		in.Params = p.Params.Clone()
		in.effect = eff
	}
	if p.Active != nil {
		in.Active = *p.Active
	}
	return nil
}

// RemoveEffect deletes the instance with the given id.
func (c *Chain) RemoveEffect(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEffectNotFound, id)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return nil
}

// ReorderEffect moves the instance to newIndex, clamped into range.
func (c *Chain) ReorderEffect(id string, newIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEffectNotFound, id)
	}
	in := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	newIndex = frame.ClampInt(newIndex, 0, len(c.items))
	c.items = append(c.items, nil)
	copy(c.items[newIndex+1:], c.items[newIndex:])
	c.items[newIndex] = in
	return nil
}

// Effect returns the instance with the given id.
func (c *Chain) Effect(id string) (*Instance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.index(id); idx >= 0 {
		return c.items[idx].snapshot(), true
	}
	return nil, false
}

// Effects returns a snapshot of the current order.
func (c *Chain) Effects() []*Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Instance, len(c.items))
	for i, in := range c.items {
		out[i] = in.snapshot()
	}
	return out
}

// snapshot copies in. Params maps are replaced on update, never mutated, so
// the copy may share it.
func (in *Instance) snapshot() *Instance {
	cp := *in
	return &cp
}

// Len returns the number of instances.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// ActiveStyle returns the highest-index active style instance and its index,
// or nil and -1 when the chain renders raster.
func ActiveStyle(items []*Instance) (*Instance, int) {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Active && items[i].IsStyle() {
			return items[i], i
		}
	}
	return nil, -1
}

// Processing filters items to active, non-style instances of the given scope.
func Processing(items []*Instance, region string) []*Instance {
	var out []*Instance
	for _, in := range items {
		if in.Active && !in.IsStyle() && in.Region == region {
			out = append(out, in)
		}
	}
	return out
}

func (c *Chain) index(id string) int {
	for i, in := range c.items {
		if in.ID == id {
			return i
		}
	}
	return -1
}

func newEffectID() string {
	return "effect-" + uuid.NewString()
}
