package props

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/field"
	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

func buildField(t *testing.T, lower, upper r3.Vec, voxelSize float64, u func(p r3.Vec) float64) *field.Field {
	t.Helper()
	g, err := grid.New(lower, upper, voxelSize)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	data := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				data[g.Idx(i, j, k)] = u(g.Point(i, j, k))
			}
		}
	}
	f, err := field.Build(g, field.Raw{U: data})
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	return f
}

func TestOrientationPlanarField(t *testing.T) {
	t.Parallel()

	// U = z - 0.5: the gradient points straight up, so at interior voxels
	// azimuth is 0, elevation 90 and inclination 180.
	f := buildField(t, r3.Vec{}, r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}, 0.25,
		func(p r3.Vec) float64 { return p.Z - 0.5 })
	ComputeOrientation(f, 0.5)

	az, ok := f.Prop(field.PropAzimuth)
	if !ok {
		t.Fatal("azimuth not computed")
	}
	el, _ := f.Prop(field.PropElevation)
	inc, _ := f.Prop(field.PropInclination)

	g := f.Grid
	center := g.Idx(g.Nx/2, g.Ny/2, g.Nz/2)
	if math.Abs(az[center]) > 1e-9 {
		t.Errorf("azimuth = %g, want 0", az[center])
	}
	if math.Abs(el[center]-90) > 1e-9 {
		t.Errorf("elevation = %g, want 90", el[center])
	}
	if math.Abs(inc[center]-180) > 1e-9 {
		t.Errorf("inclination = %g, want 180", inc[center])
	}
}

func TestCurvatureSphere(t *testing.T) {
	t.Parallel()

	// For f = |p|^2 - r^2 the mean curvature is -1/|p| and the Gaussian
	// curvature 1/|p|^2 at every point; central differences are exact on
	// quadratics, so the check can be tight.
	f := buildField(t, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}, 0.25,
		func(p r3.Vec) float64 { return r3.Dot(p, p) - 1 })
	imp := &Implicit{F: func(x, y, z float64) float64 { return x*x + y*y + z*z - 1 }}
	if err := ComputeCurvature(f, imp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mean, ok := f.Prop(field.PropMean)
	if !ok {
		t.Fatal("mean curvature not computed")
	}
	gauss, _ := f.Prop(field.PropGaussian)
	k1, _ := f.Prop(field.PropK1)
	k2, _ := f.Prop(field.PropK2)

	g := f.Grid
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Idx(i, j, k)
				r := r3.Norm(g.Point(i, j, k))
				if math.Abs(mean[idx]+1/r) > 1e-9 {
					t.Fatalf("mean at %d = %g, want %g", idx, mean[idx], -1/r)
				}
				if math.Abs(gauss[idx]-1/(r*r)) > 1e-9 {
					t.Fatalf("gauss at %d = %g, want %g", idx, gauss[idx], 1/(r*r))
				}
				// Umbilical point: both principal curvatures equal the mean.
				if math.Abs(k1[idx]-mean[idx]) > 1e-6 || math.Abs(k2[idx]-mean[idx]) > 1e-6 {
					t.Fatalf("principal curvatures at %d = %g, %g, want %g", idx, k1[idx], k2[idx], mean[idx])
				}
			}
		}
	}
}

func TestCurvatureClampAndDegenerateGradient(t *testing.T) {
	t.Parallel()

	// f = x*y has vanishing gradient on the z axis; curvature blows up
	// nearby and must be clamped, and the degenerate axis itself reports 0.
	f := buildField(t, r3.Vec{X: -0.02, Y: -0.02}, r3.Vec{X: 0.02, Y: 0.02}, 0.01,
		func(p r3.Vec) float64 { return p.X * p.Y })
	imp := &Implicit{F: func(x, y, z float64) float64 { return x * y }}
	if err := ComputeCurvature(f, imp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := f.Grid
	mean, _ := f.Prop(field.PropMean)
	for _, name := range []string{field.PropK1, field.PropK2, field.PropMean, field.PropGaussian} {
		p, _ := f.Prop(name)
		for i, v := range p {
			if math.IsNaN(v) || v > CurvatureClamp || v < -CurvatureClamp {
				t.Fatalf("%s at %d = %g outside clamp range", name, i, v)
			}
		}
	}
	if got := mean[g.Idx(g.Nx/2, g.Ny/2, 0)]; got != 0 {
		t.Errorf("degenerate-gradient sample = %g, want 0", got)
	}
	if got := mean[g.Idx(3, 3, 0)]; got != CurvatureClamp {
		t.Errorf("near-degenerate sample = %g, want clamped to %g", got, float64(CurvatureClamp))
	}
}

func TestCurvatureSkippedWithoutEquation(t *testing.T) {
	t.Parallel()

	f := buildField(t, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.5,
		func(p r3.Vec) float64 { return p.Z - 0.5 })
	if err := ComputeCurvature(f, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.Prop(field.PropMean); ok {
		t.Error("curvature computed for a field with no defining equation")
	}
}

func TestBuildRiskFullySupported(t *testing.T) {
	t.Parallel()

	// A completely solid cell is fully supported everywhere: the kernel
	// integrates to one, so risk is exactly zero at every voxel.
	f := buildField(t, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.25,
		func(r3.Vec) float64 { return -1 })
	ComputeBuildRisk(f, RiskParams{KernelSize: 5, LayerFactor: 0.2, Sigma: 1})

	risk, ok := f.Prop(field.PropBuildRisk)
	if !ok {
		t.Fatal("build risk not computed")
	}
	for i, v := range risk {
		if math.Abs(v) > 1e-12 {
			t.Fatalf("risk at %d = %g, want 0 for fully solid cell", i, v)
		}
	}
}

func TestBuildRiskOverhang(t *testing.T) {
	t.Parallel()

	// Material only on the top layer hangs in free air; most of the kernel
	// sees void, so the risk is high.
	f := buildField(t, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 2}, 0.25,
		func(p r3.Vec) float64 {
			if p.Z >= 2 {
				return -1
			}
			return 1
		})
	ComputeBuildRisk(f, RiskParams{KernelSize: 5, LayerFactor: 0.2, Sigma: 1})

	risk, _ := f.Prop(field.PropBuildRisk)
	g := f.Grid
	top := g.Idx(g.Nx/2, g.Ny/2, g.Nz-1)
	if risk[top] < 0.5 {
		t.Errorf("overhang risk = %g, want > 0.5", risk[top])
	}
}

func TestBuildRiskVoidSentinel(t *testing.T) {
	t.Parallel()

	f := buildField(t, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.25,
		func(p r3.Vec) float64 { return p.Z - 0.5 })
	ComputeBuildRisk(f, RiskParams{KernelSize: 3, LayerFactor: 0.2, Sigma: 1})

	risk, _ := f.Prop(field.PropBuildRisk)
	for i, solid := range f.Solid {
		if solid {
			if math.IsNaN(risk[i]) || risk[i] < 0 || risk[i] > 1 {
				t.Fatalf("solid risk at %d = %g, want value in [0,1]", i, risk[i])
			}
		} else if !math.IsNaN(risk[i]) {
			t.Fatalf("void risk at %d = %g, want NaN sentinel", i, risk[i])
		}
	}
}

func TestSliceMetricsPeriodicThickness(t *testing.T) {
	t.Parallel()

	// One void voxel in a 3x3 layer. Under periodic wrap the farthest
	// solid voxel is one diagonal step away, so the thickness is
	// 2*sqrt(2)*voxelSize; without wrap it would be twice that.
	g, err := grid.New(r3.Vec{}, r3.Vec{X: 1, Y: 1}, 0.5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	u := make([]float64, g.Len())
	for i := range u {
		u[i] = -1
	}
	u[g.Idx(2, 2, 0)] = 1
	f, err := field.Build(g, field.Raw{U: u})
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	ComputeSliceMetrics(f)

	if len(f.Slices) != 1 {
		t.Fatalf("expected 1 slice, got %d", len(f.Slices))
	}
	m := f.Slices[0]
	if want := 2 * math.Sqrt2 * 0.5; math.Abs(m.MaxThickness-want) > 1e-9 {
		t.Errorf("thickness = %g, want %g", m.MaxThickness, want)
	}
	if want := 8 * 0.25; math.Abs(m.Area-want) > 1e-12 {
		t.Errorf("area = %g, want %g", m.Area, want)
	}
}

func TestSliceMetricsFullAndEmptyLayers(t *testing.T) {
	t.Parallel()

	// Bottom layer all solid, top layer all void.
	g, err := grid.New(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 0.5}, 0.5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	u := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			u[g.Idx(i, j, 0)] = -1
			u[g.Idx(i, j, 1)] = 1
		}
	}
	f, err := field.Build(g, field.Raw{U: u})
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	ComputeSliceMetrics(f)

	if !math.IsInf(f.Slices[0].MaxThickness, 1) {
		t.Errorf("all-solid layer thickness = %g, want +Inf", f.Slices[0].MaxThickness)
	}
	if f.Slices[1].MaxThickness != 0 || f.Slices[1].Area != 0 {
		t.Errorf("all-void layer = %+v, want zero metrics", f.Slices[1])
	}
}
