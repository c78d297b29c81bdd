package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/edt"
	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// Mesh rasterizes a triangulated surface into the grid and converts the
// filled mask to a signed distance field. Face indices are 1-based, as in
// the common FV mesh interchange convention.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

func (m Mesh) generate(g *grid.Grid) ([]float64, error) {
	solid, err := rasterizeMesh(g, m.Vertices, m.Faces)
	if err != nil {
		return nil, err
	}
	return signedDistance(g, solid), nil
}

// signedDistance converts a binary mask into a signed distance field in
// world units: distance-to-solid minus distance-to-void, so solid voxels
// come out non-positive.
func signedDistance(g *grid.Grid, solid []bool) []float64 {
	void := make([]bool, len(solid))
	for i, s := range solid {
		void[i] = !s
	}
	dSolid := edt.Distance3D(solid, g.Nx, g.Ny, g.Nz)
	dVoid := edt.Distance3D(void, g.Nx, g.Ny, g.Nz)
	u := make([]float64, len(solid))
	for i := range u {
		u[i] = (dSolid[i] - dVoid[i]) * g.VoxelSize
	}
	return u
}

// rasterizeMesh marks every voxel touched by a triangle, wrapping at the
// domain boundaries so unit cells tile seamlessly, then flood-fills the
// enclosed interior.
func rasterizeMesh(g *grid.Grid, verts []r3.Vec, faces [][3]int) ([]bool, error) {
	if len(verts) == 0 || len(faces) == 0 {
		return nil, fmt.Errorf("field: mesh generator requires vertices and faces")
	}
	boundary := make([]bool, g.Len())
	h := g.VoxelSize
	for fi, f := range faces {
		var tri [3]r3.Vec
		for c, vi := range f {
			if vi < 1 || vi > len(verts) {
				return nil, fmt.Errorf("field: face %d references vertex %d of %d", fi, vi, len(verts))
			}
			tri[c] = verts[vi-1]
		}
		// Sample the triangle at half-voxel resolution in barycentric
		// space so no voxel the surface crosses is missed.
		e1 := r3.Sub(tri[1], tri[0])
		e2 := r3.Sub(tri[2], tri[0])
		n1 := int(math.Ceil(r3.Norm(e1)/(h/2))) + 1
		n2 := int(math.Ceil(r3.Norm(e2)/(h/2))) + 1
		for a := 0; a <= n1; a++ {
			fa := float64(a) / float64(n1)
			for b := 0; b <= n2; b++ {
				fb := float64(b) / float64(n2)
				if fa+fb > 1 {
					continue
				}
				p := r3.Add(tri[0], r3.Add(r3.Scale(fa, e1), r3.Scale(fb, e2)))
				i := wrapIndex(int(math.Round((p.X-g.Lower.X)/h)), g.Nx)
				j := wrapIndex(int(math.Round((p.Y-g.Lower.Y)/h)), g.Ny)
				k := wrapIndex(int(math.Round((p.Z-g.Lower.Z)/h)), g.Nz)
				boundary[g.Idx(i, j, k)] = true
			}
		}
	}
	seed, err := exteriorSeed(g, verts)
	if err != nil {
		return nil, err
	}
	return fillInterior(g, boundary, seed), nil
}

// exteriorSeed picks a voxel one step below the mesh bounding box on every
// axis, wrapped into the grid. The solid lies inside the box and its
// periodic images, so the voxel is exterior provided the box leaves a gap
// of a few voxels within each period.
func exteriorSeed(g *grid.Grid, verts []r3.Vec) (int, error) {
	lo, hi := verts[0], verts[0]
	for _, v := range verts[1:] {
		lo.X = math.Min(lo.X, v.X)
		lo.Y = math.Min(lo.Y, v.Y)
		lo.Z = math.Min(lo.Z, v.Z)
		hi.X = math.Max(hi.X, v.X)
		hi.Y = math.Max(hi.Y, v.Y)
		hi.Z = math.Max(hi.Z, v.Z)
	}
	h := g.VoxelSize
	span := [3]float64{hi.X - lo.X, hi.Y - lo.Y, hi.Z - lo.Z}
	period := [3]float64{float64(g.Nx) * h, float64(g.Ny) * h, float64(g.Nz) * h}
	for a := range span {
		if span[a] > period[a]-3*h {
			return 0, fmt.Errorf("field: mesh leaves no exterior gap in the tiling period to fill from")
		}
	}
	i := wrapIndex(int(math.Floor((lo.X-g.Lower.X)/h))-1, g.Nx)
	j := wrapIndex(int(math.Floor((lo.Y-g.Lower.Y)/h))-1, g.Ny)
	k := wrapIndex(int(math.Floor((lo.Z-g.Lower.Z)/h))-1, g.Nz)
	return g.Idx(i, j, k), nil
}

// wrapIndex folds an index into [0,n) under the periodic tiling assumption.
func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// fillInterior flood-fills the exterior void from a seed voxel known to be
// outside the surface. Neighbor steps wrap so the fill respects the same
// tiling as the rasterization; voxels the fill cannot reach without
// crossing the rasterized boundary are interior and become solid.
func fillInterior(g *grid.Grid, boundary []bool, seed int) []bool {
	outside := make([]bool, len(boundary))
	var stack []int
	push := func(i, j, k int) {
		idx := g.Idx(i, j, k)
		if !boundary[idx] && !outside[idx] {
			outside[idx] = true
			stack = append(stack, idx)
		}
	}
	i0, j0, k0 := g.Coords(seed)
	push(i0, j0, k0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j, k := g.Coords(idx)
		push(wrapIndex(i-1, g.Nx), j, k)
		push(wrapIndex(i+1, g.Nx), j, k)
		push(i, wrapIndex(j-1, g.Ny), k)
		push(i, wrapIndex(j+1, g.Ny), k)
		push(i, j, wrapIndex(k-1, g.Nz))
		push(i, j, wrapIndex(k+1, g.Nz))
	}
	solid := make([]bool, len(boundary))
	for i := range solid {
		solid[i] = !outside[i]
	}
	return solid
}
