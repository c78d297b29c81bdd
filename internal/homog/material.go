// Package homog computes the effective anisotropic elastic stiffness of a
// periodic voxel unit cell by numerical homogenization.
//
// Each voxel is one trilinear hexahedral element whose material is selected
// from the binary solid mask. Six canonical unit macroscopic strain cases
// are solved under periodic boundary conditions, with the displacement
// decomposed into a periodic fluctuation plus the macroscopic term, and the
// strain energies assemble into a symmetric 6x6 stiffness matrix in Voigt
// order [xx yy zz yz xz xy].
package homog

import (
	"errors"
	"fmt"
)

// Material is an isotropic linear-elastic material.
type Material struct {
	E  float64 // Young's modulus
	Nu float64 // Poisson ratio
}

// Lame returns the Lamé parameters via the standard isotropic relations
// lambda = E*nu/((1+nu)(1-2nu)) and mu = E/(2(1+nu)).
func (m Material) Lame() (lambda, mu float64) {
	lambda = m.E * m.Nu / ((1 + m.Nu) * (1 - 2*m.Nu))
	mu = m.E / (2 + 2*m.Nu)
	return lambda, mu
}

// ErrEmptyMask is returned when the solid mask contains no solid voxels;
// there is no structure to homogenize.
var ErrEmptyMask = errors.New("homog: solid mask is empty")

// validate checks the preconditions the assembly relies on. The solver
// never recovers from mid-solve numerical faults; anything that would make
// the system degenerate is rejected here.
func (j *Job) validate() error {
	if j.Nx <= 0 || j.Ny <= 0 || j.Nz <= 0 {
		return fmt.Errorf("homog: voxel counts must be positive, got %dx%dx%d", j.Nx, j.Ny, j.Nz)
	}
	if len(j.Solid) != j.Nx*j.Ny*j.Nz {
		return fmt.Errorf("homog: mask length %d does not match %dx%dx%d", len(j.Solid), j.Nx, j.Ny, j.Nz)
	}
	if j.Lx <= 0 || j.Ly <= 0 || j.Lz <= 0 {
		return fmt.Errorf("homog: cell edge lengths must be positive, got %g %g %g", j.Lx, j.Ly, j.Lz)
	}
	solid := 0
	for _, s := range j.Solid {
		if s {
			solid++
		}
	}
	if solid == 0 {
		return ErrEmptyMask
	}
	if j.SolidMat.E <= 0 {
		return fmt.Errorf("homog: solid material modulus must be positive, got %g", j.SolidMat.E)
	}
	if j.VoidMat.E < 0 {
		return fmt.Errorf("homog: void material modulus must be non-negative, got %g", j.VoidMat.E)
	}
	if nu := j.SolidMat.Nu; nu <= -1 || nu >= 0.5 {
		return fmt.Errorf("homog: solid Poisson ratio %g outside (-1, 0.5)", nu)
	}
	if j.VoidMat.E > 0 {
		if nu := j.VoidMat.Nu; nu <= -1 || nu >= 0.5 {
			return fmt.Errorf("homog: void Poisson ratio %g outside (-1, 0.5)", nu)
		}
	}
	return nil
}
