package renderer

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/frame"
)

// Camera setup for the displaced plane: 45° vertical field of view,
// positioned on +Z looking at the origin.
const (
	meshFOV       = 45.0
	meshCameraZ   = 2.5
	meshNear      = 0.1
	meshPlaneSize = 2.0
)

type meshVertex struct {
	sx, sy float64
	depth  float64
	c      color.RGBA
}

type meshTriangle struct {
	a, b, c int
	depth   float64
}

// meshCache keeps the vertex and triangle slices between frames; they are
// rebuilt only when the segment count changes.
type meshCache struct {
	segments int
	verts    []meshVertex
	tris     []meshTriangle
}

func (m *meshCache) resize(segments int) {
	if m.segments == segments && m.verts != nil {
		return
	}
	n := segments + 1
	m.segments = segments
	m.verts = make([]meshVertex, n*n)
	m.tris = make([]meshTriangle, 0, segments*segments*2)
	for y := 0; y < segments; y++ {
		for x := 0; x < segments; x++ {
			i := y*n + x
			m.tris = append(m.tris,
				meshTriangle{a: i, b: i + n, c: i + 1},
				meshTriangle{a: i + n, b: i + n + 1, c: i + 1},
			)
		}
	}
}

// drawMesh renders grid as a plane whose vertices are pushed toward the
// camera by texel brightness. grid must be (segments+1)² texels.
func (r *Renderer) drawMesh(canvas, grid *frame.Buffer, st *effects.Style) {
	segments := min(grid.Width, grid.Height) - 1
	if segments < 1 {
		return
	}
	r.mesh.resize(segments)
	n := segments + 1

	w, h := float64(canvas.Width), float64(canvas.Height)
	aspect := w / h
	f := 1 / math.Tan(meshFOV/2*math.Pi/180)
	for vy := 0; vy < n; vy++ {
		for vx := 0; vx < n; vx++ {
			u, v := float64(vx)/float64(segments), float64(vy)/float64(segments)
			i := grid.Offset(int(u*float64(grid.Width-1)), int(v*float64(grid.Height-1)))
			cr, cg, cb := grid.Pix[i], grid.Pix[i+1], grid.Pix[i+2]
			bright := float64(int(cr)+int(cg)+int(cb)) / 3 / 255

			px := (u - 0.5) * meshPlaneSize
			py := (0.5 - v) * meshPlaneSize
			pz := bright * st.DisplacementScale * 0.5
			d := max(meshNear, meshCameraZ-pz)

			r.mesh.verts[vy*n+vx] = meshVertex{
				sx:    (px*f/(d*aspect) + 1) / 2 * w,
				sy:    (1 - py*f/d) / 2 * h,
				depth: d,
				c:     color.RGBA{cr, cg, cb, 255},
			}
		}
	}

	switch {
	case st.MeshMode == "points":
		r.meshPoints(canvas, st.PointSize*f*h/2)
	case st.MeshMode == "mesh" && st.Wireframe:
		r.meshWireframe(canvas)
	default:
		r.meshSolid(canvas)
	}
}

// meshPoints draws every vertex as a disc sized pointSize world units at its depth.
func (r *Renderer) meshPoints(canvas *frame.Buffer, scale float64) {
	dst := canvas.Image()
	for _, v := range r.mesh.verts {
		radius := max(0.5, scale/v.depth/2)
		r.fillCircle(dst, v.sx, v.sy, radius, v.c)
	}
}

func (r *Renderer) meshWireframe(canvas *frame.Buffer) {
	n := r.mesh.segments + 1
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := r.mesh.verts[y*n+x]
			if x+1 < n {
				meshLine(canvas, a, r.mesh.verts[y*n+x+1])
			}
			if y+1 < n {
				meshLine(canvas, a, r.mesh.verts[(y+1)*n+x])
			}
			if x+1 < n && y+1 < n {
				meshLine(canvas, r.mesh.verts[(y+1)*n+x], r.mesh.verts[y*n+x+1])
			}
		}
	}
}

// meshLine draws a one-pixel line coloured by its start vertex.
func meshLine(canvas *frame.Buffer, a, b meshVertex) {
	x0, y0 := int(math.Round(a.sx)), int(math.Round(a.sy))
	x1, y1 := int(math.Round(b.sx)), int(math.Round(b.sy))
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		canvas.Set(x0, y0, a.c.R, a.c.G, a.c.B, 255)
		return
	}
	// Lines fully off-canvas are skipped.
	if max(x0, x1) < 0 || max(y0, y1) < 0 || min(x0, x1) >= canvas.Width || min(y0, y1) >= canvas.Height {
		return
	}
	for s := 0; s <= steps; s++ {
		x := x0 + dx*s/steps
		y := y0 + dy*s/steps
		canvas.Set(x, y, a.c.R, a.c.G, a.c.B, 255)
	}
}

// meshSolid fills triangles back to front with their average vertex colour.
func (r *Renderer) meshSolid(canvas *frame.Buffer) {
	verts := r.mesh.verts
	tris := r.mesh.tris
	for i := range tris {
		t := &tris[i]
		t.depth = verts[t.a].depth + verts[t.b].depth + verts[t.c].depth
	}
	sort.Slice(tris, func(i, j int) bool { return tris[i].depth > tris[j].depth })

	dst := canvas.Image()
	for _, t := range tris {
		a, b, c := verts[t.a], verts[t.b], verts[t.c]
		box := image.Rect(
			int(math.Floor(min(a.sx, b.sx, c.sx))), int(math.Floor(min(a.sy, b.sy, c.sy))),
			int(math.Ceil(max(a.sx, b.sx, c.sx)))+1, int(math.Ceil(max(a.sy, b.sy, c.sy)))+1,
		)
		clip := box.Intersect(dst.Bounds())
		if clip.Empty() {
			continue
		}
		ox, oy := float64(box.Min.X), float64(box.Min.Y)
		r.raster.Reset(box.Dx(), box.Dy())
		r.raster.MoveTo(float32(a.sx-ox), float32(a.sy-oy))
		r.raster.LineTo(float32(b.sx-ox), float32(b.sy-oy))
		r.raster.LineTo(float32(c.sx-ox), float32(c.sy-oy))
		r.raster.ClosePath()
		col := color.RGBA{
			uint8((int(a.c.R) + int(b.c.R) + int(c.c.R)) / 3),
			uint8((int(a.c.G) + int(b.c.G) + int(c.c.G)) / 3),
			uint8((int(a.c.B) + int(b.c.B) + int(c.c.B)) / 3),
			255,
		}
		r.drawRaster(dst, box, clip, col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
