package props

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/field"
	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// CurvatureClamp bounds all curvature outputs, suppressing singularities
// near flat or degenerate regions of the implicit surface.
const CurvatureClamp = 10

// Implicit is the collaborator required for curvature evaluation: the
// defining equation of the surface and the pose transform it was sampled
// through. Sampled-only fields have no defining equation and curvature is
// skipped for them.
type Implicit struct {
	F    func(x, y, z float64) float64
	Pose *grid.Transform
}

// ComputeCurvature evaluates principal, mean and Gaussian curvature at
// every grid point via implicit-surface differential geometry, writing the
// clamped results into the field's property map. A nil collaborator leaves
// the properties unset.
func ComputeCurvature(f *field.Field, imp *Implicit) error {
	if imp == nil || imp.F == nil || f.Empty() {
		return nil
	}
	g := f.Grid
	eval := imp.F
	if imp.Pose != nil {
		inv, err := imp.Pose.Inverse()
		if err != nil {
			return err
		}
		base := imp.F
		eval = func(x, y, z float64) float64 {
			q := inv.Apply(r3.Vec{X: x, Y: y, Z: z})
			return base(q.X, q.Y, q.Z)
		}
	}

	k1 := make([]float64, g.Len())
	k2 := make([]float64, g.Len())
	mean := make([]float64, g.Len())
	gauss := make([]float64, g.Len())
	h := g.VoxelSize / 2
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Idx(i, j, k)
				H, K := curvatureAt(eval, g.X[i], g.Y[j], g.Z[k], h)
				disc := H*H - K
				if disc < 0 {
					disc = 0
				}
				s := math.Sqrt(disc)
				k1[idx] = clampCurv(H + s)
				k2[idx] = clampCurv(H - s)
				mean[idx] = clampCurv(H)
				gauss[idx] = clampCurv(K)
			}
		}
	}
	f.Props[field.PropK1] = k1
	f.Props[field.PropK2] = k2
	f.Props[field.PropMean] = mean
	f.Props[field.PropGaussian] = gauss
	return nil
}

// curvatureAt returns the mean and Gaussian curvature of the implicit
// surface through (x,y,z) using central finite differences of step h.
func curvatureAt(f func(x, y, z float64) float64, x, y, z, h float64) (H, K float64) {
	c := f(x, y, z)
	gx := (f(x+h, y, z) - f(x-h, y, z)) / (2 * h)
	gy := (f(x, y+h, z) - f(x, y-h, z)) / (2 * h)
	gz := (f(x, y, z+h) - f(x, y, z-h)) / (2 * h)

	fxx := (f(x+h, y, z) - 2*c + f(x-h, y, z)) / (h * h)
	fyy := (f(x, y+h, z) - 2*c + f(x, y-h, z)) / (h * h)
	fzz := (f(x, y, z+h) - 2*c + f(x, y, z-h)) / (h * h)
	fxy := (f(x+h, y+h, z) - f(x+h, y-h, z) - f(x-h, y+h, z) + f(x-h, y-h, z)) / (4 * h * h)
	fxz := (f(x+h, y, z+h) - f(x+h, y, z-h) - f(x-h, y, z+h) + f(x-h, y, z-h)) / (4 * h * h)
	fyz := (f(x, y+h, z+h) - f(x, y+h, z-h) - f(x, y-h, z+h) + f(x, y-h, z-h)) / (4 * h * h)

	g2 := gx*gx + gy*gy + gz*gz
	gn := math.Sqrt(g2)
	if gn < 1e-12 {
		return 0, 0
	}

	// Mean curvature: (g·Hess·g - |g|^2 tr(Hess)) / (2|g|^3).
	gHg := gx*(fxx*gx+fxy*gy+fxz*gz) +
		gy*(fxy*gx+fyy*gy+fyz*gz) +
		gz*(fxz*gx+fyz*gy+fzz*gz)
	trace := fxx + fyy + fzz
	H = (gHg - g2*trace) / (2 * g2 * gn)

	// Gaussian curvature: (g·adj(Hess)·g) / |g|^4, with the adjugate of
	// the symmetric Hessian written out by cofactors.
	a11 := fyy*fzz - fyz*fyz
	a22 := fxx*fzz - fxz*fxz
	a33 := fxx*fyy - fxy*fxy
	a12 := fxz*fyz - fxy*fzz
	a13 := fxy*fyz - fxz*fyy
	a23 := fxy*fxz - fxx*fyz
	gAg := gx*(a11*gx+a12*gy+a13*gz) +
		gy*(a12*gx+a22*gy+a23*gz) +
		gz*(a13*gx+a23*gy+a33*gz)
	K = gAg / (g2 * g2)
	return H, K
}

func clampCurv(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > CurvatureClamp {
		return CurvatureClamp
	}
	if v < -CurvatureClamp {
		return -CurvatureClamp
	}
	return v
}
