package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// Region is a bounding volume a field can be clipped against. The penalty
// field is positive outside the region and non-positive inside, so taking
// the pointwise maximum with U removes solid outside the region without
// altering the interior topology.
type Region interface {
	penalty(g *grid.Grid) ([]float64, error)
}

// Clip intersects the field with the region: U' = max(U, penalty), with the
// solid mask recomputed. An empty field is left untouched.
func Clip(f *Field, r Region) error {
	if f.Empty() || r == nil {
		return nil
	}
	pen, err := r.penalty(f.Grid)
	if err != nil {
		return err
	}
	u := f.U
	for i := range u {
		if pen[i] > u[i] {
			u[i] = pen[i]
		}
	}
	f.SetU(u)
	return nil
}

// Box is an axis-aligned rectangular region.
type Box struct {
	Lower, Upper r3.Vec
}

func (b Box) penalty(g *grid.Grid) ([]float64, error) {
	pen := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				p := g.Point(i, j, k)
				d := math.Max(b.Lower.X-p.X, p.X-b.Upper.X)
				d = math.Max(d, math.Max(b.Lower.Y-p.Y, p.Y-b.Upper.Y))
				d = math.Max(d, math.Max(b.Lower.Z-p.Z, p.Z-b.Upper.Z))
				pen[g.Idx(i, j, k)] = d
			}
		}
	}
	return pen, nil
}

// Cylinder is a circular region around a z-aligned axis, capped between
// ZMin and ZMax.
type Cylinder struct {
	Center     r3.Vec // axis position; the Z component is ignored
	Radius     float64
	ZMin, ZMax float64
}

func (c Cylinder) penalty(g *grid.Grid) ([]float64, error) {
	pen := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			dx := g.X[i] - c.Center.X
			dy := g.Y[j] - c.Center.Y
			radial := math.Hypot(dx, dy) - c.Radius
			for k := 0; k < g.Nz; k++ {
				d := math.Max(radial, math.Max(c.ZMin-g.Z[k], g.Z[k]-c.ZMax))
				pen[g.Idx(i, j, k)] = d
			}
		}
	}
	return pen, nil
}

// MeshRegion clips against an arbitrary closed boundary mesh. The mesh is
// rasterized onto the grid and its own signed distance field becomes the
// penalty, so the clip keeps material strictly inside the boundary.
type MeshRegion struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

func (m MeshRegion) penalty(g *grid.Grid) ([]float64, error) {
	solid, err := rasterizeMesh(g, m.Vertices, m.Faces)
	if err != nil {
		return nil, err
	}
	return signedDistance(g, solid), nil
}
