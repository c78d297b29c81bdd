package props

import (
	"math"
	"sync"

	"github.com/xupeiwust/TPMS-Designer/internal/edt"
	"github.com/xupeiwust/TPMS-Designer/internal/field"
)

// ComputeSliceMetrics measures, for every z layer, the maximum local
// thickness and the solid cross-sectional area. The slice is padded
// periodically on both in-plane axes before the distance transform, because
// the unit cell tiles: without wrap padding, distances near the border
// would be artificially truncated. Slices are independent and are processed
// concurrently; each writes only its own slot, so the result does not
// depend on completion order.
func ComputeSliceMetrics(f *field.Field) {
	if f.Empty() {
		return
	}
	g := f.Grid
	out := make([]field.SliceMetrics, g.Nz)
	var wg sync.WaitGroup
	for k := 0; k < g.Nz; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			out[k] = sliceMetrics(f, k)
		}(k)
	}
	wg.Wait()
	f.Slices = out
}

// sliceMetrics measures one z layer. Thickness is twice the largest
// distance from a solid voxel to the nearest void voxel under periodic
// wrap; a layer with no void at all reports +Inf.
func sliceMetrics(f *field.Field, k int) field.SliceMetrics {
	g := f.Grid
	void := make([]bool, g.Nx*g.Ny)
	solidCount := 0
	anyVoid := false
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			if f.Solid[g.Idx(i, j, k)] {
				solidCount++
			} else {
				void[i*g.Ny+j] = true
				anyVoid = true
			}
		}
	}
	m := field.SliceMetrics{
		Z:    g.Z[k],
		Area: float64(solidCount) * g.VoxelSize * g.VoxelSize,
	}
	if solidCount == 0 {
		return m
	}
	if !anyVoid {
		m.MaxThickness = math.Inf(1)
		return m
	}
	dist := edt.Distance2DPeriodic(void, g.Nx, g.Ny)
	maxInterior := 0.0
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			if f.Solid[g.Idx(i, j, k)] && dist[i*g.Ny+j] > maxInterior {
				maxInterior = dist[i*g.Ny+j]
			}
		}
	}
	m.MaxThickness = 2 * maxInterior * g.VoxelSize
	return m
}
