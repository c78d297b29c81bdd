// Package props computes derived per-voxel and per-slice quantities of a
// scalar field: surface orientation, implicit-surface curvature, a
// layer-wise manufacturability risk score, and per-slice thickness and
// cross-sectional area.
//
// Properties are populated lazily into the field's property map; a missing
// property means "not computed" and downstream consumers must treat it as
// such.
package props

import (
	"math"

	"github.com/xupeiwust/TPMS-Designer/internal/field"
)

// convolveAxis applies a centred 1D kernel along one axis of a flat
// nx-by-ny-by-nz volume with replicated boundary samples.
func convolveAxis(data []float64, nx, ny, nz, axis int, kernel []float64) []float64 {
	half := len(kernel) / 2
	out := make([]float64, len(data))
	idx := func(i, j, k int) int { return (i*ny+j)*nz + k }
	clamp := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				var acc float64
				for t, w := range kernel {
					d := t - half
					switch axis {
					case 0:
						acc += w * data[idx(clamp(i+d, nx), j, k)]
					case 1:
						acc += w * data[idx(i, clamp(j+d, ny), k)]
					default:
						acc += w * data[idx(i, j, clamp(k+d, nz))]
					}
				}
				out[idx(i, j, k)] = acc
			}
		}
	}
	return out
}

// gaussianKernel returns a normalised 1D Gaussian of the given sigma,
// truncated at two sigma (minimum radius one voxel).
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(2 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// ComputeOrientation derives the azimuth, elevation and inclination of the
// local surface normal from the field gradient. The field is mildly
// smoothed first, then differentiated with a separable 3D Sobel operator.
// Inclination is defined as 90 degrees plus elevation.
func ComputeOrientation(f *field.Field, sigma float64) {
	if f.Empty() {
		return
	}
	g := f.Grid
	if sigma <= 0 {
		sigma = 0.5
	}
	smooth := gaussianKernel(sigma)
	u := convolveAxis(f.U, g.Nx, g.Ny, g.Nz, 0, smooth)
	u = convolveAxis(u, g.Nx, g.Ny, g.Nz, 1, smooth)
	u = convolveAxis(u, g.Nx, g.Ny, g.Nz, 2, smooth)

	deriv := []float64{-1, 0, 1}
	bin := []float64{1, 2, 1}
	sobel := func(axis int) []float64 {
		out := u
		for a := 0; a < 3; a++ {
			if a == axis {
				out = convolveAxis(out, g.Nx, g.Ny, g.Nz, a, deriv)
			} else {
				out = convolveAxis(out, g.Nx, g.Ny, g.Nz, a, bin)
			}
		}
		return out
	}
	gx := sobel(0)
	gy := sobel(1)
	gz := sobel(2)

	az := make([]float64, g.Len())
	el := make([]float64, g.Len())
	inc := make([]float64, g.Len())
	const rad2deg = 180 / math.Pi
	for i := range az {
		az[i] = math.Atan2(gy[i], gx[i]) * rad2deg
		el[i] = math.Atan2(gz[i], math.Hypot(gx[i], gy[i])) * rad2deg
		inc[i] = 90 + el[i]
	}
	f.Props[field.PropAzimuth] = az
	f.Props[field.PropElevation] = el
	f.Props[field.PropInclination] = inc
}
