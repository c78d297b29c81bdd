package homog

import (
	"gonum.org/v1/gonum/mat"
)

// Local corner order of the trilinear hexahedron in natural coordinates:
// the bottom face counterclockwise, then the top face. This order is shared
// with the periodic DOF numbering and the export adapter.
var cornerXi = [8][3]float64{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// elementMatrices integrates the 24x24 stiffness matrices and 24x6 unit
// strain load vectors of one hexahedral element of edge lengths dx,dy,dz,
// split into the lambda and mu material contributions so per-element
// material scaling reduces to two scalar multiplies. Integration is 2x2x2
// Gauss quadrature, exact for the trilinear shape functions.
func elementMatrices(dx, dy, dz float64) (keLambda, keMu, feLambda, feMu *mat.Dense) {
	keLambda = mat.NewDense(24, 24, nil)
	keMu = mat.NewDense(24, 24, nil)
	feLambda = mat.NewDense(24, 6, nil)
	feMu = mat.NewDense(24, 6, nil)

	// Unit-material constitutive split: C = lambda*cLambda + mu*cMu in
	// Voigt order [xx yy zz yz xz xy] with engineering shear strain.
	cLambda := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cLambda.Set(i, j, 1)
		}
	}
	cMu := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		cMu.Set(i, i, 2)
		cMu.Set(i+3, i+3, 1)
	}

	const gp = 0.5773502691896258 // 1/sqrt(3)
	detJ := (dx / 2) * (dy / 2) * (dz / 2)

	var tmp, term mat.Dense
	for _, xi := range []float64{-gp, gp} {
		for _, eta := range []float64{-gp, gp} {
			for _, zeta := range []float64{-gp, gp} {
				b := bMatrix(xi, eta, zeta, dx, dy, dz)

				// ke += B' C B detJ
				tmp.Mul(cLambda, b)
				term.Mul(b.T(), &tmp)
				term.Scale(detJ, &term)
				keLambda.Add(keLambda, &term)

				tmp.Mul(cMu, b)
				term.Mul(b.T(), &tmp)
				term.Scale(detJ, &term)
				keMu.Add(keMu, &term)

				// fe += B' C detJ; columns are the six unit strains.
				var fl, fm mat.Dense
				fl.Mul(b.T(), cLambda)
				fl.Scale(detJ, &fl)
				feLambda.Add(feLambda, &fl)

				fm.Mul(b.T(), cMu)
				fm.Scale(detJ, &fm)
				feMu.Add(feMu, &fm)
			}
		}
	}
	return keLambda, keMu, feLambda, feMu
}

// bMatrix evaluates the 6x24 strain-displacement matrix at a natural
// coordinate point. The element is axis-aligned, so the Jacobian is
// diagonal: d/dx = (2/dx) d/dxi and so on.
func bMatrix(xi, eta, zeta, dx, dy, dz float64) *mat.Dense {
	b := mat.NewDense(6, 24, nil)
	for c := 0; c < 8; c++ {
		xc, yc, zc := cornerXi[c][0], cornerXi[c][1], cornerXi[c][2]
		dNdx := xc * (1 + eta*yc) * (1 + zeta*zc) / 8 * (2 / dx)
		dNdy := yc * (1 + xi*xc) * (1 + zeta*zc) / 8 * (2 / dy)
		dNdz := zc * (1 + xi*xc) * (1 + eta*yc) / 8 * (2 / dz)

		col := 3 * c
		b.Set(0, col, dNdx)
		b.Set(1, col+1, dNdy)
		b.Set(2, col+2, dNdz)
		// yz
		b.Set(3, col+1, dNdz)
		b.Set(3, col+2, dNdy)
		// xz
		b.Set(4, col, dNdz)
		b.Set(4, col+2, dNdx)
		// xy
		b.Set(5, col, dNdy)
		b.Set(5, col+1, dNdx)
	}
	return b
}

// affineCorners returns the 24x6 matrix of corner displacements under the
// six unit macroscopic strains, for an element of edge lengths dx,dy,dz.
// Shear strains are engineering shears, split symmetrically between the two
// displacement components. Only differences across an element matter, so
// corner positions are taken relative to the element centre.
func affineCorners(dx, dy, dz float64) *mat.Dense {
	chi0 := mat.NewDense(24, 6, nil)
	for c := 0; c < 8; c++ {
		x := cornerXi[c][0] * dx / 2
		y := cornerXi[c][1] * dy / 2
		z := cornerXi[c][2] * dz / 2
		row := 3 * c
		// xx, yy, zz
		chi0.Set(row, 0, x)
		chi0.Set(row+1, 1, y)
		chi0.Set(row+2, 2, z)
		// yz: u_y = z/2, u_z = y/2
		chi0.Set(row+1, 3, z/2)
		chi0.Set(row+2, 3, y/2)
		// xz: u_x = z/2, u_z = x/2
		chi0.Set(row, 4, z/2)
		chi0.Set(row+2, 4, x/2)
		// xy: u_x = y/2, u_y = x/2
		chi0.Set(row, 5, y/2)
		chi0.Set(row+1, 5, x/2)
	}
	return chi0
}
