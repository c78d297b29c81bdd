// Command sweep homogenizes a TPMS equation across a range of volume
// fractions and records every run in the results database.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/config"
	"github.com/xupeiwust/TPMS-Designer/internal/field"
	"github.com/xupeiwust/TPMS-Designer/internal/grid"
	"github.com/xupeiwust/TPMS-Designer/internal/homog"
	"github.com/xupeiwust/TPMS-Designer/internal/store"
	"github.com/xupeiwust/TPMS-Designer/internal/tpms"
)

var (
	equation   = flag.String("equation", "gyroid", "TPMS equation name")
	vfMin      = flag.Float64("vf-min", 0.1, "lowest volume fraction")
	vfMax      = flag.Float64("vf-max", 0.5, "highest volume fraction")
	steps      = flag.Int("steps", 9, "number of sweep points")
	res        = flag.Int("res", 24, "voxels per axis")
	size       = flag.Float64("size", 1.0, "unit cell edge length")
	solidE     = flag.Float64("E", 1.0, "solid Young's modulus")
	solidNu    = flag.Float64("nu", 0.3, "solid Poisson ratio")
	dbPath     = flag.String("db", "runs.db", "SQLite results database")
	configPath = flag.String("config", config.DefaultConfigPath, "tuning config file")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("load tuning config: %v", err)
	}
	eq, ok := tpms.ByName(*equation)
	if !ok {
		log.Fatalf("unknown equation %q; known: %v", *equation, tpms.Names())
	}
	if *steps < 1 {
		log.Fatalf("steps must be at least 1, got %d", *steps)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("open run db: %v", err)
	}
	defer st.Close()

	h := *size / float64(*res)
	g, err := grid.New(r3.Vec{}, r3.Vec{X: *size, Y: *size, Z: *size}, h)
	if err != nil {
		log.Fatalf("grid: %v", err)
	}

	for s := 0; s < *steps; s++ {
		vf := *vfMin
		if *steps > 1 {
			vf += (*vfMax - *vfMin) * float64(s) / float64(*steps-1)
		}
		if err := sweepPoint(st, cfg, g, eq, vf); err != nil {
			log.Printf("vf=%.3f failed: %v", vf, err)
		}
	}
}

func sweepPoint(st *store.Store, cfg *config.TuningConfig, g *grid.Grid, eq *tpms.Equation, vf float64) error {
	start := time.Now()
	gen := field.Equation{
		Eq:   eq,
		Iso:  eq.IsoForFraction(vf),
		Pose: grid.Scale(*size, *size, *size),
	}
	f, err := field.Build(g, gen)
	if err != nil {
		return err
	}

	job := homog.Job{
		Lx: *size, Ly: *size, Lz: *size,
		Nx: g.Nx, Ny: g.Ny, Nz: g.Nz,
		Solid:    f.Solid,
		SolidMat: homog.Material{E: *solidE, Nu: *solidNu},
	}
	if cfg.PCGTolerance != nil {
		job.Tol = *cfg.PCGTolerance
	}
	if cfg.PCGMaxIter != nil {
		job.MaxIter = *cfg.PCGMaxIter
	}
	stiffness := homog.Homogenize(job)

	params, _ := json.Marshal(map[string]interface{}{
		"equation": eq.Name,
		"vf":       vf,
		"res":      *res,
		"size":     *size,
		"E":        *solidE,
		"nu":       *solidNu,
	})
	stiffJSON, _ := json.Marshal(stiffness.RawMatrix().Data)
	run := &store.Run{
		Kind:           "equation",
		ParamsJSON:     params,
		VolumeFraction: f.VolumeFraction(),
		StiffnessJSON:  stiffJSON,
		ElapsedMS:      time.Since(start).Milliseconds(),
	}
	if err := st.Insert(run); err != nil {
		return err
	}
	log.Printf("vf=%.3f actual=%.3f C11=%.5g run=%s",
		vf, f.VolumeFraction(), stiffness.At(0, 0), run.RunID)
	return nil
}
