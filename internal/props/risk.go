package props

import (
	"math"

	"github.com/xupeiwust/TPMS-Designer/internal/config"
	"github.com/xupeiwust/TPMS-Designer/internal/field"
)

// RiskParams configures the build-risk kernel. The current-layer index and
// its weighting factor are calibration constants from the fabrication
// model; override them through the tuning config rather than editing code.
type RiskParams struct {
	KernelSize  int     // odd kernel edge length in voxels
	LayerIndex  int     // 1-based current-layer position; 0 means ceil(n/2)
	LayerFactor float64 // weight of the current layer's own contribution
	Sigma       float64 // horizontal Gaussian footprint, voxels
}

// RiskParamsFromTuning builds RiskParams from a loaded tuning config.
func RiskParamsFromTuning(cfg *config.TuningConfig) RiskParams {
	p := RiskParams{KernelSize: 5, LayerFactor: 0.2, Sigma: 1.0}
	if cfg == nil {
		return p
	}
	if cfg.RiskKernelSize != nil {
		p.KernelSize = *cfg.RiskKernelSize
	}
	if cfg.RiskLayerIndex != nil {
		p.LayerIndex = *cfg.RiskLayerIndex
	}
	if cfg.RiskLayerFactor != nil {
		p.LayerFactor = *cfg.RiskLayerFactor
	}
	if cfg.RiskSigmaVoxels != nil {
		p.Sigma = *cfg.RiskSigmaVoxels
	}
	return p
}

// ComputeBuildRisk estimates the fraction of locally unsupported material
// at every solid voxel during layer-wise fabrication along +z. The solid
// mask is padded with a solid base plate below and air above, convolved
// with an axially asymmetric support kernel, and the risk at a solid voxel
// is 1 - min(1, support). Void voxels report NaN ("not applicable"), never
// a numeric zero.
func ComputeBuildRisk(f *field.Field, p RiskParams) {
	if f.Empty() {
		return
	}
	g := f.Grid
	kernel, half, layer := riskKernel(p)

	risk := make([]float64, g.Len())
	nan := math.NaN()
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Idx(i, j, k)
				if !f.Solid[idx] {
					risk[idx] = nan
					continue
				}
				support := 0.0
				for di := -half; di <= half; di++ {
					si := wrap(i+di, g.Nx)
					for dj := -half; dj <= half; dj++ {
						sj := wrap(j+dj, g.Ny)
						for l := 0; l < layer; l++ {
							w := kernel[((di+half)*(2*half+1)+(dj+half))*layer+l]
							if w == 0 {
								continue
							}
							sk := k + l - (layer - 1)
							// Below the build plate everything is solid;
							// above the top there is only air.
							var occ float64
							switch {
							case sk < 0:
								occ = 1
							case sk >= g.Nz:
								occ = 0
							default:
								if f.Solid[g.Idx(si, sj, sk)] {
									occ = 1
								}
							}
							support += w * occ
						}
					}
				}
				if support > 1 {
					support = 1
				}
				risk[idx] = 1 - support
			}
		}
	}
	f.Props[field.PropBuildRisk] = risk
}

// riskKernel builds the normalised support kernel: a Gaussian footprint in
// the horizontal plane scaled by a linear vertical bias, with the layers
// above the current one zeroed (material above cannot support the current
// layer) and the current layer itself down-weighted. Only the surviving
// layers, from the bottom of the kernel up to the current layer, are
// returned; index order is ((di)*(n)+(dj))*layers + l with l increasing
// upward.
func riskKernel(p RiskParams) (kernel []float64, half, layers int) {
	n := p.KernelSize
	if n < 3 {
		n = 3
	}
	if n%2 == 0 {
		n++
	}
	layer := p.LayerIndex
	if layer <= 0 || layer > n {
		layer = (n + 1) / 2 // ceil(n/2)
	}
	factor := p.LayerFactor
	sigma := p.Sigma
	if sigma <= 0 {
		sigma = 1
	}
	half = n / 2

	kernel = make([]float64, n*n*layer)
	sum := 0.0
	for di := -half; di <= half; di++ {
		for dj := -half; dj <= half; dj++ {
			footprint := math.Exp(-float64(di*di+dj*dj) / (2 * sigma * sigma))
			for l := 0; l < layer; l++ {
				// Linear vertical bias: deeper layers contribute less.
				vert := float64(l+1) / float64(layer)
				if l == layer-1 {
					vert = factor
				}
				w := footprint * vert
				kernel[((di+half)*n+(dj+half))*layer+l] = w
				sum += w
			}
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, half, layer
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
