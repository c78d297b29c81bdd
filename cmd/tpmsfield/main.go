// Command tpmsfield generates a periodic cellular unit cell from a TPMS
// equation, evaluates its field properties, homogenizes its effective
// stiffness, and optionally exports the voxel mesh and records the run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/config"
	"github.com/xupeiwust/TPMS-Designer/internal/export"
	"github.com/xupeiwust/TPMS-Designer/internal/field"
	"github.com/xupeiwust/TPMS-Designer/internal/grid"
	"github.com/xupeiwust/TPMS-Designer/internal/homog"
	"github.com/xupeiwust/TPMS-Designer/internal/props"
	"github.com/xupeiwust/TPMS-Designer/internal/store"
	"github.com/xupeiwust/TPMS-Designer/internal/tpms"
	"github.com/xupeiwust/TPMS-Designer/internal/version"
)

var (
	equation   = flag.String("equation", "gyroid", "TPMS equation name")
	variant    = flag.String("variant", "network", "wall topology: network or surface")
	vf         = flag.Float64("vf", 0.3, "target solid volume fraction")
	res        = flag.Int("res", 32, "voxels per axis")
	size       = flag.Float64("size", 1.0, "unit cell edge length")
	solidE     = flag.Float64("E", 1.0, "solid Young's modulus")
	solidNu    = flag.Float64("nu", 0.3, "solid Poisson ratio")
	voidE      = flag.Float64("Evoid", 0, "void Young's modulus (0 removes void elements)")
	voidNu     = flag.Float64("nuvoid", 0.3, "void Poisson ratio")
	method     = flag.String("method", "pcg", "homogenization solver: pcg or direct")
	inpPath    = flag.String("inp", "", "write hexahedral mesh to this Abaqus .inp file")
	dbPath     = flag.String("db", "", "record the run in this SQLite database")
	configPath = flag.String("config", config.DefaultConfigPath, "tuning config file")
	withProps  = flag.Bool("props", false, "evaluate orientation, curvature, risk and slice metrics")
	skipHomog  = flag.Bool("no-homog", false, "skip the homogenization solve")
)

func main() {
	flag.Parse()
	log.Printf("tpmsfield %s (%s)", version.Version, version.GitSHA)

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("load tuning config: %v", err)
	}

	eq, ok := tpms.ByName(*equation)
	if !ok {
		log.Fatalf("unknown equation %q; known: %v", *equation, tpms.Names())
	}
	var v field.Variant
	switch *variant {
	case "network":
		v = field.Network
	case "surface":
		v = field.Surface
	default:
		log.Fatalf("unknown variant %q", *variant)
	}

	h := *size / float64(*res)
	g, err := grid.New(r3.Vec{}, r3.Vec{X: *size, Y: *size, Z: *size}, h)
	if err != nil {
		log.Fatalf("grid: %v", err)
	}

	iso := eq.IsoForFraction(*vf)
	gen := field.Equation{
		Eq:      eq,
		Variant: v,
		Iso:     iso,
		Pose:    grid.Scale(*size, *size, *size),
	}
	if v == field.Surface {
		gen.V1 = field.Uniform(iso)
		gen.V2 = field.Uniform(iso)
	}

	start := time.Now()
	f, err := field.Build(g, gen)
	if err != nil {
		log.Fatalf("build field: %v", err)
	}
	log.Printf("field: %s %s iso=%.4f grid=%dx%dx%d volume fraction=%.4f",
		eq.Name, *variant, iso, g.Nx, g.Ny, g.Nz, f.VolumeFraction())

	if *withProps {
		evaluateProps(f, eq, gen.Pose, cfg)
	}

	var stiffness *mat.Dense
	if !*skipHomog {
		stiffness = runHomog(f, cfg)
	}

	if *inpPath != "" {
		mesh := export.FromMask(g, f.Solid)
		if err := mesh.WriteINPFile(*inpPath, fmt.Sprintf("%s %s vf=%.3f", eq.Name, *variant, *vf)); err != nil {
			log.Fatalf("export: %v", err)
		}
		log.Printf("exported %d nodes, %d elements to %s", len(mesh.Nodes), len(mesh.Elements), *inpPath)
	}

	if *dbPath != "" {
		recordRun(f, stiffness, time.Since(start))
	}
}

func evaluateProps(f *field.Field, eq *tpms.Equation, pose *grid.Transform, cfg *config.TuningConfig) {
	sigma := 0.5
	if cfg.SmoothSigmaVoxel != nil {
		sigma = *cfg.SmoothSigmaVoxel
	}
	props.ComputeOrientation(f, sigma)
	if err := props.ComputeCurvature(f, &props.Implicit{F: eq.F, Pose: pose}); err != nil {
		log.Printf("curvature skipped: %v", err)
	}
	props.ComputeBuildRisk(f, props.RiskParamsFromTuning(cfg))
	props.ComputeSliceMetrics(f)
	log.Printf("properties: %d per-voxel arrays, %d slices", len(f.Props), len(f.Slices))
}

func runHomog(f *field.Field, cfg *config.TuningConfig) *mat.Dense {
	g := f.Grid
	job := homog.Job{
		Lx: *size, Ly: *size, Lz: *size,
		Nx: g.Nx, Ny: g.Ny, Nz: g.Nz,
		Solid:    f.Solid,
		SolidMat: homog.Material{E: *solidE, Nu: *solidNu},
		VoidMat:  homog.Material{E: *voidE, Nu: *voidNu},
	}
	if *method == "direct" {
		job.Method = homog.MethodDirect
	}
	if cfg.PCGTolerance != nil {
		job.Tol = *cfg.PCGTolerance
	}
	if cfg.PCGMaxIter != nil {
		job.MaxIter = *cfg.PCGMaxIter
	}
	res, err := homog.Run(job)
	if err != nil {
		// Failed homogenization surfaces as NaN, never as an abort.
		log.Printf("homogenization failed: %v", err)
		return homog.NaNStiffness()
	}
	log.Printf("effective stiffness (Voigt):\n%v",
		mat.Formatted(res.C, mat.Prefix("  "), mat.Squeeze()))
	out := mat.NewDense(6, 6, nil)
	out.Copy(res.C)
	return out
}

func recordRun(f *field.Field, stiffness *mat.Dense, elapsed time.Duration) {
	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("open run db: %v", err)
	}
	defer st.Close()

	params, _ := json.Marshal(map[string]interface{}{
		"equation": *equation,
		"variant":  *variant,
		"vf":       *vf,
		"res":      *res,
		"size":     *size,
		"E":        *solidE,
		"nu":       *solidNu,
		"method":   *method,
	})
	run := &store.Run{
		Kind:           "equation",
		ParamsJSON:     params,
		VolumeFraction: f.VolumeFraction(),
		ElapsedMS:      elapsed.Milliseconds(),
	}
	if stiffness != nil {
		run.StiffnessJSON, _ = json.Marshal(stiffness.RawMatrix().Data)
	}
	if err := st.Insert(run); err != nil {
		log.Fatalf("record run: %v", err)
	}
	log.Printf("recorded run %s", run.RunID)
}
