// Package tpms provides the library of triply periodic minimal surface
// implicit equations and their iso-value calibration data.
//
// Each equation is expressed in unit-cell coordinates: one period of the
// surface spans [0,1] on every axis. Scaling, rotation and placement are
// handled by the caller through a pose transform, never by the equation.
package tpms

import (
	"math"
	"sort"
	"strings"
)

const twoPi = 2 * math.Pi

// Equation is a named periodic implicit function f(x,y,z) with one period
// per unit length on each axis, plus calibration coefficients mapping a
// target solid volume fraction to the corresponding iso-value.
type Equation struct {
	Name string
	F    func(x, y, z float64) float64

	// Calibration holds polynomial coefficients, lowest order first, for
	// the volume fraction -> iso-value curve fit of the network variant.
	// These are precomputed fits specific to each equation; treat them as
	// opaque calibration data rather than something to re-derive.
	Calibration []float64
}

// IsoForFraction evaluates the calibration polynomial at the requested
// volume fraction. Fractions are clamped to the fitted range [0.05, 0.95].
func (e *Equation) IsoForFraction(vf float64) float64 {
	if vf < 0.05 {
		vf = 0.05
	} else if vf > 0.95 {
		vf = 0.95
	}
	// Horner evaluation, coefficients lowest order first.
	iso := 0.0
	for i := len(e.Calibration) - 1; i >= 0; i-- {
		iso = iso*vf + e.Calibration[i]
	}
	return iso
}

var equations = map[string]*Equation{
	"gyroid": {
		Name: "gyroid",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			return math.Sin(x)*math.Cos(y) + math.Sin(y)*math.Cos(z) + math.Sin(z)*math.Cos(x)
		},
		Calibration: []float64{-1.5000, 2.6813, 0.6521, -0.6521},
	},
	"primitive": {
		Name: "primitive",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			return math.Cos(x) + math.Cos(y) + math.Cos(z)
		},
		Calibration: []float64{-2.1637, 6.0461, -5.7648, 1.8824},
	},
	"diamond": {
		Name: "diamond",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			sx, cx := math.Sincos(x)
			sy, cy := math.Sincos(y)
			sz, cz := math.Sincos(z)
			return sx*sy*sz + sx*cy*cz + cx*sy*cz + cx*cy*sz
		},
		Calibration: []float64{-1.0023, 2.2710, -0.5371, 0.0023},
	},
	"iwp": {
		Name: "iwp",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			return 2*(math.Cos(x)*math.Cos(y)+math.Cos(y)*math.Cos(z)+math.Cos(z)*math.Cos(x)) -
				(math.Cos(2*x) + math.Cos(2*y) + math.Cos(2*z))
		},
		Calibration: []float64{-5.1873, 13.4289, -9.6920, 4.4310},
	},
	"neovius": {
		Name: "neovius",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			return 3*(math.Cos(x)+math.Cos(y)+math.Cos(z)) +
				4*math.Cos(x)*math.Cos(y)*math.Cos(z)
		},
		Calibration: []float64{-4.2713, 14.9034, -15.7798, 6.4193},
	},
	"fks": {
		Name: "fks",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			return math.Cos(2*x)*math.Sin(y)*math.Cos(z) +
				math.Cos(x)*math.Cos(2*y)*math.Sin(z) +
				math.Sin(x)*math.Cos(y)*math.Cos(2*z)
		},
		Calibration: []float64{-0.7433, 1.6399, -0.3029, 0.0496},
	},
	"lidinoid": {
		Name: "lidinoid",
		F: func(x, y, z float64) float64 {
			x, y, z = twoPi*x, twoPi*y, twoPi*z
			a := math.Sin(2*x)*math.Cos(y)*math.Sin(z) +
				math.Sin(2*y)*math.Cos(z)*math.Sin(x) +
				math.Sin(2*z)*math.Cos(x)*math.Sin(y)
			b := math.Cos(2*x)*math.Cos(2*y) +
				math.Cos(2*y)*math.Cos(2*z) +
				math.Cos(2*z)*math.Cos(2*x)
			return 0.5*(a-b) + 0.15
		},
		Calibration: []float64{-1.4110, 2.9159, -0.0886, -0.0886},
	},
}

// ByName looks up an equation by its canonical (case-insensitive) name.
func ByName(name string) (*Equation, bool) {
	eq, ok := equations[strings.ToLower(name)]
	return eq, ok
}

// Names returns the canonical equation names in sorted order.
func Names() []string {
	out := make([]string, 0, len(equations))
	for name := range equations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
