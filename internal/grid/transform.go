package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is an affine pose: a 3x3 linear part (scale, rotation, shear)
// followed by a translation. It maps unit-cell coordinates into world space.
type Transform struct {
	Linear *mat.Dense // 3x3
	Offset r3.Vec
}

// Identity returns the identity transform.
func Identity() *Transform {
	return &Transform{Linear: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// Scale returns a pure axis-aligned scaling transform.
func Scale(sx, sy, sz float64) *Transform {
	return &Transform{Linear: mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, sz,
	})}
}

// RotateZ returns a rotation about the z axis by theta radians.
func RotateZ(theta float64) *Transform {
	c, s := math.Cos(theta), math.Sin(theta)
	return &Transform{Linear: mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})}
}

// Translate returns a pure translation.
func Translate(offset r3.Vec) *Transform {
	t := Identity()
	t.Offset = offset
	return t
}

// Compose returns the transform equivalent to applying u first, then t.
func Compose(t, u *Transform) *Transform {
	var lin mat.Dense
	lin.Mul(t.Linear, u.Linear)
	return &Transform{
		Linear: &lin,
		Offset: r3.Add(t.apply(u.Offset), t.Offset),
	}
}

// Apply maps a point through the transform.
func (t *Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.apply(p), t.Offset)
}

// apply maps a vector through the linear part only.
func (t *Transform) apply(p r3.Vec) r3.Vec {
	m := t.Linear
	return r3.Vec{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z,
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z,
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z,
	}
}

// Inverse returns the inverse transform, or an error if the linear part is
// singular (for example a zero scale on one axis).
func (t *Transform) Inverse() (*Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.Linear); err != nil {
		return nil, fmt.Errorf("singular pose transform: %w", err)
	}
	out := &Transform{Linear: &inv}
	neg := out.apply(t.Offset)
	out.Offset = r3.Scale(-1, neg)
	return out, nil
}
