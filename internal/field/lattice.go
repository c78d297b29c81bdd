package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// Lattice describes a strut lattice: nodes joined by capped cylinders of
// radius RStrut, with each node additionally dilated by a sphere of radius
// RNode. Strut entries are 1-based node index pairs. The field is the exact
// signed distance to the union of these primitives in the generator's pose
// scale.
type Lattice struct {
	Nodes  []r3.Vec
	Struts [][2]int
	RStrut float64
	RNode  float64
	Pose   *grid.Transform
}

func (l Lattice) generate(g *grid.Grid) ([]float64, error) {
	if len(l.Nodes) == 0 {
		return nil, fmt.Errorf("field: lattice generator requires nodes")
	}
	for si, s := range l.Struts {
		for _, ni := range s {
			if ni < 1 || ni > len(l.Nodes) {
				return nil, fmt.Errorf("field: strut %d references node %d of %d", si, ni, len(l.Nodes))
			}
		}
	}
	pts, err := g.SamplePoints(l.Pose)
	if err != nil {
		return nil, err
	}
	u := make([]float64, g.Len())
	for idx, p := range pts {
		d := math.Inf(1)
		for _, s := range l.Struts {
			a, b := l.Nodes[s[0]-1], l.Nodes[s[1]-1]
			if sd := capsuleDistance(p, a, b) - l.RStrut; sd < d {
				d = sd
			}
		}
		if l.RNode > 0 {
			for _, n := range l.Nodes {
				if sd := r3.Norm(r3.Sub(p, n)) - l.RNode; sd < d {
					d = sd
				}
			}
		}
		u[idx] = d
	}
	return u, nil
}

// capsuleDistance returns the distance from p to the segment ab; the signed
// distance of a capped-cylinder strut follows by subtracting the radius.
func capsuleDistance(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	ap := r3.Sub(p, a)
	denom := r3.Dot(ab, ab)
	t := 0.0
	if denom > 0 {
		t = r3.Dot(ap, ab) / denom
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	closest := r3.Add(a, r3.Scale(t, ab))
	return r3.Norm(r3.Sub(p, closest))
}
