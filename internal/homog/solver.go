package homog

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method selects the linear solver for the six periodic load cases.
type Method int

const (
	// MethodPCG solves each case matrix-free with Jacobi-preconditioned
	// conjugate gradients. This is the default: the system is sparse,
	// symmetric and positive semi-definite, and the voxel mesh can be
	// large.
	MethodPCG Method = iota
	// MethodDirect assembles the full dense system and factorises it with
	// Cholesky. Only viable for small grids; intended for cross-checking
	// the iterative solve.
	MethodDirect
)

// Job describes one homogenization problem.
type Job struct {
	Lx, Ly, Lz float64 // unit-cell edge lengths
	Nx, Ny, Nz int     // voxel counts per axis
	Solid      []bool  // per-voxel mask, indexed (i*Ny+j)*Nz+k

	SolidMat Material // material of solid voxels
	VoidMat  Material // material of void voxels; E=0 removes them entirely

	Method  Method
	Tol     float64 // PCG relative residual target; 0 means 1e-6
	MaxIter int     // PCG iteration cap; 0 means 2000
}

// Result is a successful homogenization.
type Result struct {
	C              *mat.SymDense // effective stiffness, 6x6 Voigt
	VolumeFraction float64
	Iterations     [6]int // PCG iterations per load case; zero for direct
}

// dense24 is a flattened 24x24 element matrix for the hot matvec loop.
type dense24 [24 * 24]float64

func flatten24(m *mat.Dense) *dense24 {
	var out dense24
	for i := 0; i < 24; i++ {
		for j := 0; j < 24; j++ {
			out[i*24+j] = m.At(i, j)
		}
	}
	return &out
}

// system is the assembled periodic problem shared by the six load cases.
type system struct {
	ndof  int
	edof  [][24]int // global dof indices per element
	lam   []float64 // per-element lambda
	mu    []float64 // per-element mu
	keL   *dense24
	keM   *dense24
	diag  []float64 // assembled diagonal for the Jacobi preconditioner
	chi0  *mat.Dense
	feL   *mat.Dense
	feM   *mat.Dense
	nelem int
}

// Run solves the homogenization problem, returning the effective stiffness
// or an error describing why the system could not be solved. Errors never
// abort the caller's workflow: Homogenize converts them to the legacy
// all-NaN sentinel at the boundary.
func Run(job Job) (*Result, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	s := assemble(&job)

	tol := job.Tol
	if tol <= 0 {
		tol = 1e-6
	}
	maxIter := job.MaxIter
	if maxIter <= 0 {
		maxIter = 2000
	}

	// Per-case loads.
	loads := make([][]float64, 6)
	for q := 0; q < 6; q++ {
		loads[q] = s.load(q)
	}

	chi := make([][]float64, 6)
	var iters [6]int
	switch job.Method {
	case MethodPCG:
		// The six load cases are independent; solve them concurrently.
		// Each case writes only its own slot, so the assembled stiffness
		// does not depend on completion order.
		var wg sync.WaitGroup
		errs := make([]error, 6)
		for q := 0; q < 6; q++ {
			wg.Add(1)
			go func(q int) {
				defer wg.Done()
				chi[q], iters[q], errs[q] = s.solvePCG(loads[q], tol, maxIter)
			}(q)
		}
		wg.Wait()
		for q, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("load case %d: %w", q, err)
			}
		}
	case MethodDirect:
		sols, err := s.solveDirect(loads)
		if err != nil {
			return nil, err
		}
		chi = sols
	default:
		return nil, fmt.Errorf("homog: unknown solver method %d", job.Method)
	}

	c := s.effectiveStiffness(chi, job.Lx*job.Ly*job.Lz)
	solid := 0
	for _, on := range job.Solid {
		if on {
			solid++
		}
	}
	return &Result{
		C:              c,
		VolumeFraction: float64(solid) / float64(len(job.Solid)),
		Iterations:     iters,
	}, nil
}

// NaNStiffness returns the 6x6 all-NaN sentinel for a failed solve.
func NaNStiffness() *mat.Dense {
	data := make([]float64, 36)
	for i := range data {
		data[i] = math.NaN()
	}
	return mat.NewDense(6, 6, data)
}

// Homogenize is the NaN-tolerant boundary around Run: any failure yields
// the all-NaN stiffness rather than an error, so homogenization can never
// abort a caller that treats NaN as "not computed".
func Homogenize(job Job) *mat.Dense {
	res, err := Run(job)
	if err != nil {
		return NaNStiffness()
	}
	out := mat.NewDense(6, 6, nil)
	out.Copy(res.C)
	return out
}

// assemble builds the periodic system: element matrices, the wrapped DOF
// map, per-element Lamé parameters and the Jacobi diagonal.
func assemble(job *Job) *system {
	dx := job.Lx / float64(job.Nx)
	dy := job.Ly / float64(job.Ny)
	dz := job.Lz / float64(job.Nz)
	keLd, keMd, feL, feM := elementMatrices(dx, dy, dz)

	nx, ny, nz := job.Nx, job.Ny, job.Nz
	nelem := nx * ny * nz
	node := func(i, j, k int) int { return ((i%nx)*ny+(j%ny))*nz + k%nz }

	s := &system{
		ndof:  3 * nelem,
		edof:  make([][24]int, nelem),
		lam:   make([]float64, nelem),
		mu:    make([]float64, nelem),
		keL:   flatten24(keLd),
		keM:   flatten24(keMd),
		chi0:  affineCorners(dx, dy, dz),
		feL:   feL,
		feM:   feM,
		nelem: nelem,
	}

	lamS, muS := job.SolidMat.Lame()
	lamV, muV := 0.0, 0.0
	if job.VoidMat.E > 0 {
		lamV, muV = job.VoidMat.Lame()
	}

	// Corner offsets matching the local node order in element.go.
	offsets := [8][3]int{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	e := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				for c, off := range offsets {
					n := node(i+off[0], j+off[1], k+off[2])
					s.edof[e][3*c] = 3 * n
					s.edof[e][3*c+1] = 3*n + 1
					s.edof[e][3*c+2] = 3*n + 2
				}
				if job.Solid[e] {
					s.lam[e], s.mu[e] = lamS, muS
				} else {
					s.lam[e], s.mu[e] = lamV, muV
				}
				e++
			}
		}
	}

	s.diag = make([]float64, s.ndof)
	for e := 0; e < nelem; e++ {
		lam, mu := s.lam[e], s.mu[e]
		if lam == 0 && mu == 0 {
			continue
		}
		for c := 0; c < 24; c++ {
			s.diag[s.edof[e][c]] += lam*s.keL[c*24+c] + mu*s.keM[c*24+c]
		}
	}
	return s
}

// load assembles the global right-hand side for unit strain case q, with
// the pinned dofs zeroed.
func (s *system) load(q int) []float64 {
	f := make([]float64, s.ndof)
	for e := 0; e < s.nelem; e++ {
		lam, mu := s.lam[e], s.mu[e]
		if lam == 0 && mu == 0 {
			continue
		}
		for c := 0; c < 24; c++ {
			f[s.edof[e][c]] += lam*s.feL.At(c, q) + mu*s.feM.At(c, q)
		}
	}
	s.project(f)
	return f
}

// project zeroes the three dofs of node 0, removing the rigid translation
// modes from the periodic system.
func (s *system) project(v []float64) {
	v[0], v[1], v[2] = 0, 0, 0
}

// matvec computes y = K x element by element. x must already satisfy the
// pinned-dof constraint; the result is projected back onto the constrained
// subspace.
func (s *system) matvec(y, x []float64) {
	for i := range y {
		y[i] = 0
	}
	var xe, yl, ym [24]float64
	for e := 0; e < s.nelem; e++ {
		lam, mu := s.lam[e], s.mu[e]
		if lam == 0 && mu == 0 {
			continue
		}
		ed := &s.edof[e]
		for c := 0; c < 24; c++ {
			xe[c] = x[ed[c]]
		}
		for r := 0; r < 24; r++ {
			var al, am float64
			row := r * 24
			for c := 0; c < 24; c++ {
				al += s.keL[row+c] * xe[c]
				am += s.keM[row+c] * xe[c]
			}
			yl[r], ym[r] = al, am
		}
		for c := 0; c < 24; c++ {
			y[ed[c]] += lam*yl[c] + mu*ym[c]
		}
	}
	s.project(y)
}

// solvePCG runs Jacobi-preconditioned conjugate gradients on one load case.
func (s *system) solvePCG(f []float64, tol float64, maxIter int) ([]float64, int, error) {
	x := make([]float64, s.ndof)
	normF := floats.Norm(f, 2)
	if normF == 0 {
		return x, 0, nil
	}

	minv := make([]float64, s.ndof)
	for i, d := range s.diag {
		if d != 0 {
			minv[i] = 1 / d
		} else {
			// Dof untouched by any element with material: its residual
			// stays zero, so the preconditioner value is irrelevant.
			minv[i] = 1
		}
	}

	r := make([]float64, s.ndof)
	copy(r, f)
	z := make([]float64, s.ndof)
	for i := range z {
		z[i] = minv[i] * r[i]
	}
	p := make([]float64, s.ndof)
	copy(p, z)
	ap := make([]float64, s.ndof)

	rz := floats.Dot(r, z)
	for iter := 1; iter <= maxIter; iter++ {
		s.matvec(ap, p)
		pap := floats.Dot(p, ap)
		if pap <= 0 {
			return nil, iter, fmt.Errorf("homog: system not positive definite (pAp=%g)", pap)
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		if floats.Norm(r, 2)/normF < tol {
			return x, iter, nil
		}
		for i := range z {
			z[i] = minv[i] * r[i]
		}
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	return nil, maxIter, fmt.Errorf("homog: PCG did not converge in %d iterations", maxIter)
}

// solveDirect assembles the dense reduced system and factorises it once
// with Cholesky, then back-substitutes all six loads. Memory grows with
// the square of the dof count, so this is guarded to small grids.
func (s *system) solveDirect(loads [][]float64) ([][]float64, error) {
	const maxDofs = 6000
	if s.ndof > maxDofs {
		return nil, fmt.Errorf("homog: direct solve limited to %d dofs, got %d", maxDofs, s.ndof)
	}
	// Reduced numbering skips the three pinned dofs of node 0.
	nred := s.ndof - 3
	k := mat.NewSymDense(nred, nil)
	for e := 0; e < s.nelem; e++ {
		lam, mu := s.lam[e], s.mu[e]
		if lam == 0 && mu == 0 {
			continue
		}
		ed := &s.edof[e]
		for a := 0; a < 24; a++ {
			ga := ed[a] - 3
			if ga < 0 {
				continue
			}
			for b := 0; b < 24; b++ {
				gb := ed[b] - 3
				if gb < 0 || ga > gb {
					continue
				}
				v := lam*s.keL[a*24+b] + mu*s.keM[a*24+b]
				k.SetSym(ga, gb, k.At(ga, gb)+v)
			}
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return nil, fmt.Errorf("homog: direct solve failed, system is not positive definite")
	}
	out := make([][]float64, 6)
	for q, f := range loads {
		rhs := mat.NewVecDense(nred, nil)
		for i := 3; i < s.ndof; i++ {
			rhs.SetVec(i-3, f[i])
		}
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, rhs); err != nil {
			return nil, fmt.Errorf("homog: direct back-substitution: %w", err)
		}
		x := make([]float64, s.ndof)
		for i := 3; i < s.ndof; i++ {
			x[i] = sol.AtVec(i - 3)
		}
		out[q] = x
	}
	return out, nil
}

// effectiveStiffness assembles CH from the per-element strain energy of the
// corrected displacement fields: CH[p][q] = sum_e w_p' ke w_q / V with
// w_q = chi0_q - chi_q gathered per element.
func (s *system) effectiveStiffness(chi [][]float64, volume float64) *mat.SymDense {
	var acc [6][6]float64
	var w [6][24]float64
	var kw [6][24]float64
	for e := 0; e < s.nelem; e++ {
		lam, mu := s.lam[e], s.mu[e]
		if lam == 0 && mu == 0 {
			continue
		}
		ed := &s.edof[e]
		for q := 0; q < 6; q++ {
			for c := 0; c < 24; c++ {
				w[q][c] = s.chi0.At(c, q) - chi[q][ed[c]]
			}
		}
		for q := 0; q < 6; q++ {
			for r := 0; r < 24; r++ {
				var al, am float64
				row := r * 24
				for c := 0; c < 24; c++ {
					al += s.keL[row+c] * w[q][c]
					am += s.keM[row+c] * w[q][c]
				}
				kw[q][r] = lam*al + mu*am
			}
		}
		for p := 0; p < 6; p++ {
			for q := p; q < 6; q++ {
				var dot float64
				for c := 0; c < 24; c++ {
					dot += w[p][c] * kw[q][c]
				}
				acc[p][q] += dot
			}
		}
	}
	c := mat.NewSymDense(6, nil)
	for p := 0; p < 6; p++ {
		for q := p; q < 6; q++ {
			c.SetSym(p, q, acc[p][q]/volume)
		}
	}
	return c
}
