package effects

import "github.com/ivlev/framefx/internal/frame"

// Style is the compiled form of a style effect. It carries the grid and glyph
// settings the renderer needs; the effect itself never touches raster pixels.
type Style struct {
	Kind    Type
	Density int

	// Emoji
	Palette string
	// ASCII
	Colored bool
	// Halftone
	DotScale float64
	// 3D mesh
	DisplacementScale float64
	Wireframe         bool
	MeshMode          string
	PointSize         float64
	MeshDensity       int
}

func styleFactory(t Type) Factory {
	return func(p Params) Effect {
		d := newDecoder(t, p)
		s := &Style{Kind: t}
		switch t {
		case Mesh3D:
			s.DisplacementScale = d.float("displacementScale")
			s.Wireframe = d.bool("wireframe")
			s.MeshMode = d.choice("mode")
			s.PointSize = d.float("pointSize")
			s.MeshDensity = max(1, d.int("density"))
			s.Density = s.MeshDensity
		default:
			s.Density = max(1, d.int("density"))
		}
		switch t {
		case Emoji:
			s.Palette = d.choice("palette")
		case ASCII:
			s.Colored = d.bool("colored")
		case Halftone:
			s.DotScale = d.float("dotScale")
		}
		return s
	}
}

// Apply is a no-op: style effects replace the raster path and are drawn by
// the renderer.
func (*Style) Apply(*frame.Buffer, *frame.Context, *State) {}

// AsStyle returns the style settings when e is a style effect.
func AsStyle(e Effect) (*Style, bool) {
	s, ok := e.(*Style)
	return s, ok
}
