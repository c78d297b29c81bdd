// Package grid defines the regular 3D sampling lattice shared by the field
// generators, property evaluators and the homogenization solver.
//
// A Grid is immutable after construction. All volumetric arrays in this
// module are flat slices indexed through Idx, so every consumer agrees on
// the same row/column/page ordering.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a regular axis-aligned sampling lattice.
type Grid struct {
	Lower     r3.Vec  // world-space lower corner of the bounding box
	Upper     r3.Vec  // world-space upper corner of the bounding box
	VoxelSize float64 // edge length of one voxel

	Nx, Ny, Nz int // sample counts per axis

	// Per-axis coordinate sequences. X[i] = Lower.X + i*VoxelSize, and
	// likewise for Y and Z. Monotonically increasing by construction.
	X, Y, Z []float64
}

// New builds a grid covering [lower, upper] sampled every voxelSize.
// Each axis gets floor((upper-lower)/voxelSize)+1 samples, the first of
// which is exactly the lower bound.
func New(lower, upper r3.Vec, voxelSize float64) (*Grid, error) {
	if voxelSize <= 0 {
		return nil, fmt.Errorf("grid: voxel size must be positive, got %g", voxelSize)
	}
	if upper.X < lower.X || upper.Y < lower.Y || upper.Z < lower.Z {
		return nil, fmt.Errorf("grid: upper corner %v below lower corner %v", upper, lower)
	}
	g := &Grid{
		Lower:     lower,
		Upper:     upper,
		VoxelSize: voxelSize,
		X:         axisCoords(lower.X, upper.X, voxelSize),
		Y:         axisCoords(lower.Y, upper.Y, voxelSize),
		Z:         axisCoords(lower.Z, upper.Z, voxelSize),
	}
	g.Nx, g.Ny, g.Nz = len(g.X), len(g.Y), len(g.Z)
	return g, nil
}

// axisCoords returns lo, lo+step, ... up to and including the last sample
// that does not pass hi. A small epsilon absorbs accumulated floating-point
// error so that an exact multiple of step lands on the boundary.
func axisCoords(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	coords := make([]float64, n)
	for i := range coords {
		coords[i] = lo + float64(i)*step
	}
	return coords
}

// Len returns the total number of samples.
func (g *Grid) Len() int { return g.Nx * g.Ny * g.Nz }

// Idx maps (i,j,k) sample coordinates to a flat slice offset.
func (g *Grid) Idx(i, j, k int) int { return (i*g.Ny+j)*g.Nz + k }

// Coords inverts Idx.
func (g *Grid) Coords(idx int) (i, j, k int) {
	k = idx % g.Nz
	j = (idx / g.Nz) % g.Ny
	i = idx / (g.Nz * g.Ny)
	return i, j, k
}

// Point returns the world-space position of sample (i,j,k).
func (g *Grid) Point(i, j, k int) r3.Vec {
	return r3.Vec{X: g.X[i], Y: g.Y[j], Z: g.Z[k]}
}

// SamplePoints returns the grid coordinates mapped through the inverse of
// the given pose transform. This is the sampling space used by implicit
// generators: a unit cell can be instantiated at arbitrary scale, rotation
// and placement without changing its defining equation. A nil transform
// returns the untransformed world coordinates.
func (g *Grid) SamplePoints(t *Transform) ([]r3.Vec, error) {
	pts := make([]r3.Vec, g.Len())
	if t == nil {
		for i := 0; i < g.Nx; i++ {
			for j := 0; j < g.Ny; j++ {
				for k := 0; k < g.Nz; k++ {
					pts[g.Idx(i, j, k)] = g.Point(i, j, k)
				}
			}
		}
		return pts, nil
	}
	inv, err := t.Inverse()
	if err != nil {
		return nil, fmt.Errorf("grid: sampling transform: %w", err)
	}
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				pts[g.Idx(i, j, k)] = inv.Apply(g.Point(i, j, k))
			}
		}
	}
	return pts, nil
}
