// Package edt implements the exact Euclidean distance transform of
// Felzenszwalb & Huttenlocher. The transform is separable: a 1D squared
// distance pass runs along each axis in turn, so 2D and 3D variants cost
// O(n) per sample.
//
// Distances are measured in voxel units to the nearest feature sample.
// Samples with no reachable feature report +Inf.
package edt

import "math"

// unreached is the squared distance assigned to non-feature samples before
// the lower-envelope passes. A large finite value keeps the parabola
// intersection arithmetic well defined (IEEE infinities would produce NaN);
// anything still at this magnitude after the passes is reported as +Inf.
const unreached = 1e20

var inf = math.Inf(1)

// dt1d computes the 1D squared distance transform of f in place into d.
// v and z are scratch slices of length len(f) and len(f)+1.
func dt1d(f, d []float64, v []int, z []float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = -inf
	z[1] = inf
	for q := 1; q < n; q++ {
		var s float64
		for {
			p := v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = inf
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// Distance2D returns the Euclidean distance from every sample to the
// nearest feature sample of an nx-by-ny image. The flat index convention is
// idx = i*ny + j.
func Distance2D(feature []bool, nx, ny int) []float64 {
	sq := make([]float64, nx*ny)
	for i, on := range feature {
		if on {
			sq[i] = 0
		} else {
			sq[i] = unreached
		}
	}
	n := nx
	if ny > n {
		n = ny
	}
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	// Pass along y (contiguous runs).
	for i := 0; i < nx; i++ {
		row := sq[i*ny : (i+1)*ny]
		dt1d(row, d[:ny], v[:ny], z[:ny+1])
		copy(row, d[:ny])
	}
	// Pass along x.
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			f[i] = sq[i*ny+j]
		}
		dt1d(f[:nx], d[:nx], v[:nx], z[:nx+1])
		for i := 0; i < nx; i++ {
			sq[i*ny+j] = d[i]
		}
	}
	for i, s := range sq {
		if s >= unreached {
			sq[i] = inf
		} else {
			sq[i] = math.Sqrt(s)
		}
	}
	return sq
}

// Distance3D returns the Euclidean distance from every sample to the
// nearest feature sample of an nx-by-ny-by-nz volume. The flat index
// convention matches grid.Idx: idx = (i*ny+j)*nz + k.
func Distance3D(feature []bool, nx, ny, nz int) []float64 {
	sq := make([]float64, nx*ny*nz)
	for i, on := range feature {
		if on {
			sq[i] = 0
		} else {
			sq[i] = unreached
		}
	}
	n := nx
	if ny > n {
		n = ny
	}
	if nz > n {
		n = nz
	}
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	// Pass along z (contiguous runs).
	for ij := 0; ij < nx*ny; ij++ {
		run := sq[ij*nz : (ij+1)*nz]
		dt1d(run, d[:nz], v[:nz], z[:nz+1])
		copy(run, d[:nz])
	}
	// Pass along y.
	for i := 0; i < nx; i++ {
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				f[j] = sq[(i*ny+j)*nz+k]
			}
			dt1d(f[:ny], d[:ny], v[:ny], z[:ny+1])
			for j := 0; j < ny; j++ {
				sq[(i*ny+j)*nz+k] = d[j]
			}
		}
	}
	// Pass along x.
	for j := 0; j < ny; j++ {
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				f[i] = sq[(i*ny+j)*nz+k]
			}
			dt1d(f[:nx], d[:nx], v[:nx], z[:nx+1])
			for i := 0; i < nx; i++ {
				sq[(i*ny+j)*nz+k] = d[i]
			}
		}
	}
	for i, s := range sq {
		if s >= unreached {
			sq[i] = inf
		} else {
			sq[i] = math.Sqrt(s)
		}
	}
	return sq
}

// Distance2DPeriodic computes the distance transform of a 2D image under
// periodic wrap on both axes. The image is tiled 3x3, transformed, and the
// centre tile extracted; a feature is therefore never further than one
// period away, which is exact for unit-cell geometry.
func Distance2DPeriodic(feature []bool, nx, ny int) []float64 {
	tiled := make([]bool, 9*nx*ny)
	tnx, tny := 3*nx, 3*ny
	for i := 0; i < tnx; i++ {
		si := i % nx
		for j := 0; j < tny; j++ {
			tiled[i*tny+j] = feature[si*ny+j%ny]
		}
	}
	full := Distance2D(tiled, tnx, tny)
	out := make([]float64, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			out[i*ny+j] = full[(i+nx)*tny+(j+ny)]
		}
	}
	return out
}
