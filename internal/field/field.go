// Package field produces and stores volumetric scalar fields describing
// solid/void geometry on a regular grid.
//
// A Field pairs a signed-distance-like array U with its binary solid mask;
// U <= 0 denotes solid, U > 0 denotes void, and the mask is recomputed on
// every mutation of U so the two never drift apart. Fields are built from
// one of several generator kinds (implicit equation, surface mesh, strut
// lattice, raw data, image stack) and may be clipped against a bounding
// region afterwards.
package field

import (
	"fmt"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// Well-known per-voxel property names. Property arrays always share the
// grid's shape and flat indexing.
const (
	PropAzimuth     = "azimuth"
	PropElevation   = "elevation"
	PropInclination = "inclination"
	PropK1          = "k1"
	PropK2          = "k2"
	PropMean        = "mean_curvature"
	PropGaussian    = "gaussian_curvature"
	PropBuildRisk   = "build_risk"
)

// SliceMetrics records per-z-layer cross-section measurements.
type SliceMetrics struct {
	Z            float64 // layer height
	MaxThickness float64 // twice the largest interior distance, world units
	Area         float64 // solid cross-sectional area, world units squared
}

// Field is a scalar field sampled on a shared grid, together with the
// derived solid mask and any lazily computed per-voxel properties. A Field
// owns its arrays; callers must serialise mutating calls on one instance.
type Field struct {
	Grid  *grid.Grid
	U     []float64
	Solid []bool

	// Props maps property names to per-voxel arrays, populated lazily by
	// the props package. Missing entries mean "not computed".
	Props map[string][]float64

	// Slices holds per-layer metrics, populated lazily.
	Slices []SliceMetrics
}

// Generator is the sealed set of field generator kinds. Construction is a
// pure function from generator variant to scalar field; each variant
// carries only the inputs it needs.
type Generator interface {
	generate(g *grid.Grid) ([]float64, error)
}

// Build evaluates the generator on the grid and wraps the result. A nil
// generator yields an empty field with no error; validating the kind is the
// caller's responsibility.
func Build(g *grid.Grid, gen Generator) (*Field, error) {
	f := &Field{Grid: g, Props: make(map[string][]float64)}
	if gen == nil {
		return f, nil
	}
	u, err := gen.generate(g)
	if err != nil {
		return f, err
	}
	f.SetU(u)
	return f, nil
}

// SetU replaces the scalar field and recomputes the solid mask. The array
// length must match the grid.
func (f *Field) SetU(u []float64) {
	if u == nil {
		f.U, f.Solid = nil, nil
		return
	}
	f.U = u
	if len(f.Solid) != len(u) {
		f.Solid = make([]bool, len(u))
	}
	for i, v := range u {
		f.Solid[i] = v <= 0
	}
}

// Empty reports whether the field holds no samples (for example after an
// unrecognised generator kind).
func (f *Field) Empty() bool { return len(f.U) == 0 }

// Prop returns the named per-voxel property array, if it has been computed.
func (f *Field) Prop(name string) ([]float64, bool) {
	p, ok := f.Props[name]
	return p, ok
}

// SolidCount returns the number of solid voxels.
func (f *Field) SolidCount() int {
	n := 0
	for _, s := range f.Solid {
		if s {
			n++
		}
	}
	return n
}

// VolumeFraction returns the solid fraction of the cell, or 0 for an empty
// field.
func (f *Field) VolumeFraction() float64 {
	if len(f.Solid) == 0 {
		return 0
	}
	return float64(f.SolidCount()) / float64(len(f.Solid))
}

// Array3 is a dense 3D array with its own shape, used for inputs that do
// not necessarily match the grid (offset fields, image stacks). Data is
// indexed (i*Ny+j)*Nz + k.
type Array3 struct {
	Nx, Ny, Nz int
	Data       []float64
}

// Uniform returns a 1x1x1 array holding a single value, which broadcasts
// across any grid.
func Uniform(v float64) Array3 {
	return Array3{Nx: 1, Ny: 1, Nz: 1, Data: []float64{v}}
}

// At returns the element at (i,j,k).
func (a Array3) At(i, j, k int) float64 { return a.Data[(i*a.Ny+j)*a.Nz+k] }

// Broadcast resamples the array to the grid's shape. Degenerate (length-1)
// axes are repeated; any other mismatch is an error rather than a silent
// truncation.
func (a Array3) Broadcast(g *grid.Grid) ([]float64, error) {
	if len(a.Data) != a.Nx*a.Ny*a.Nz {
		return nil, fmt.Errorf("field: array data length %d does not match shape %dx%dx%d",
			len(a.Data), a.Nx, a.Ny, a.Nz)
	}
	for axis, pair := range [][2]int{{a.Nx, g.Nx}, {a.Ny, g.Ny}, {a.Nz, g.Nz}} {
		if pair[0] != pair[1] && pair[0] != 1 {
			return nil, fmt.Errorf("field: cannot broadcast axis %d from %d to %d", axis, pair[0], pair[1])
		}
	}
	out := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		si := i % a.Nx
		for j := 0; j < g.Ny; j++ {
			sj := j % a.Ny
			for k := 0; k < g.Nz; k++ {
				out[g.Idx(i, j, k)] = a.At(si, sj, k%a.Nz)
			}
		}
	}
	return out, nil
}

// Raw supplies the scalar field directly; solid is derived as U <= 0.
type Raw struct {
	U []float64
}

func (r Raw) generate(g *grid.Grid) ([]float64, error) {
	if len(r.U) != g.Len() {
		return nil, fmt.Errorf("field: raw data length %d does not match grid length %d", len(r.U), g.Len())
	}
	out := make([]float64, len(r.U))
	copy(out, r.U)
	return out, nil
}
