// Package export converts a voxel solid mask into a hexahedral element and
// node list for consumption by external structural-analysis tools, and
// writes it in the Abaqus input-deck format.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// HexMesh is a hexahedral finite-element mesh. Node numbering is global in
// row/column/slice order and includes only nodes referenced by at least one
// solid element. Element connectivity uses 0-based indices into Nodes; the
// corner order is the 8-node brick convention (bottom face counterclockwise,
// then top face).
type HexMesh struct {
	Nodes    []r3.Vec
	Elements [][8]int
}

// FromMask emits one hexahedral element per solid voxel. Each voxel is
// centred on its grid sample and spans half a voxel in every direction, so
// the eight corners lie on the half-offset corner lattice.
func FromMask(g *grid.Grid, solid []bool) *HexMesh {
	// Corner lattice indices: corner (i,j,k) sits at sample lower corner
	// offsets, i in [0, Nx], giving (Nx+1)(Ny+1)(Nz+1) candidates.
	cnx, cny, cnz := g.Nx+1, g.Ny+1, g.Nz+1
	cornerID := func(i, j, k int) int { return (i*cny+j)*cnz + k }

	// Corner order matching the brick convention used by the solver.
	offsets := [8][3]int{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}

	used := make(map[int]bool)
	var rawElems [][8]int
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				if !solid[g.Idx(i, j, k)] {
					continue
				}
				var el [8]int
				for c, off := range offsets {
					id := cornerID(i+off[0], j+off[1], k+off[2])
					el[c] = id
					used[id] = true
				}
				rawElems = append(rawElems, el)
			}
		}
	}

	// Compact node numbering, preserving row/column/slice order.
	remap := make(map[int]int, len(used))
	mesh := &HexMesh{Elements: make([][8]int, 0, len(rawElems))}
	h := g.VoxelSize
	for i := 0; i < cnx; i++ {
		for j := 0; j < cny; j++ {
			for k := 0; k < cnz; k++ {
				id := cornerID(i, j, k)
				if !used[id] {
					continue
				}
				remap[id] = len(mesh.Nodes)
				mesh.Nodes = append(mesh.Nodes, r3.Vec{
					X: g.Lower.X + (float64(i)-0.5)*h,
					Y: g.Lower.Y + (float64(j)-0.5)*h,
					Z: g.Lower.Z + (float64(k)-0.5)*h,
				})
			}
		}
	}
	for _, el := range rawElems {
		var out [8]int
		for c, id := range el {
			out[c] = remap[id]
		}
		mesh.Elements = append(mesh.Elements, out)
	}
	return mesh
}

// WriteINP writes the mesh as an Abaqus input deck with C3D8 elements.
// Node and element ids are 1-based.
func (m *HexMesh) WriteINP(w io.Writer, heading string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "*HEADING\n%s\n", heading)
	fmt.Fprintln(bw, "*NODE")
	for i, n := range m.Nodes {
		fmt.Fprintf(bw, "%d, %.9g, %.9g, %.9g\n", i+1, n.X, n.Y, n.Z)
	}
	fmt.Fprintln(bw, "*ELEMENT, TYPE=C3D8, ELSET=SOLID")
	for i, el := range m.Elements {
		fmt.Fprintf(bw, "%d, %d, %d, %d, %d, %d, %d, %d, %d\n", i+1,
			el[0]+1, el[1]+1, el[2]+1, el[3]+1, el[4]+1, el[5]+1, el[6]+1, el[7]+1)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: write inp: %w", err)
	}
	return nil
}

// WriteINPFile writes the mesh to the named file.
func (m *HexMesh) WriteINPFile(path, heading string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer fh.Close()
	if err := m.WriteINP(fh, heading); err != nil {
		return err
	}
	return fh.Close()
}
