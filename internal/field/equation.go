package field

import (
	"fmt"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
	"github.com/xupeiwust/TPMS-Designer/internal/tpms"
)

// Variant selects the wall topology of an implicit equation generator.
type Variant int

const (
	// Network keeps one side of the level set: U = f - iso.
	Network Variant = iota
	// Surface keeps a sheet between two level sets, producing double-walled
	// topology: U = (f - v1)(f + v2).
	Surface
)

// Equation evaluates a periodic implicit function over the grid, in the
// sampling space obtained by mapping grid points through the inverse pose.
// Offset fields V1 and V2 support graded cells; degenerate (length-1) axes
// broadcast to the grid shape.
type Equation struct {
	Eq      *tpms.Equation
	Variant Variant
	Iso     float64 // network iso-value; ignored by the surface variant
	V1, V2  Array3  // surface variant wall offsets; zero value means 0 everywhere
	Pose    *grid.Transform
}

func (e Equation) generate(g *grid.Grid) ([]float64, error) {
	if e.Eq == nil {
		return nil, fmt.Errorf("field: equation generator requires an implicit equation")
	}
	pts, err := g.SamplePoints(e.Pose)
	if err != nil {
		return nil, err
	}
	u := make([]float64, g.Len())
	for i, p := range pts {
		u[i] = e.Eq.F(p.X, p.Y, p.Z)
	}

	switch e.Variant {
	case Network:
		for i := range u {
			u[i] -= e.Iso
		}
	case Surface:
		v1, err := offsetField(e.V1, g)
		if err != nil {
			return nil, fmt.Errorf("field: surface offset v1: %w", err)
		}
		v2, err := offsetField(e.V2, g)
		if err != nil {
			return nil, fmt.Errorf("field: surface offset v2: %w", err)
		}
		if isZero(v1) && isZero(v2) {
			// Degenerate double wall: both offsets vanish, so the sheet
			// collapses to the single-walled base equation.
			break
		}
		for i := range u {
			u[i] = (u[i] - at(v1, i)) * (u[i] + at(v2, i))
		}
	default:
		return nil, fmt.Errorf("field: unknown equation variant %d", e.Variant)
	}
	return u, nil
}

// offsetField broadcasts an offset array to the grid, treating the zero
// value as a uniform zero field.
func offsetField(a Array3, g *grid.Grid) ([]float64, error) {
	if a.Data == nil {
		return nil, nil
	}
	return a.Broadcast(g)
}

// at reads a broadcast offset field, treating nil as a uniform zero.
func at(v []float64, i int) float64 {
	if v == nil {
		return 0
	}
	return v[i]
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
