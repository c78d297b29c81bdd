package field

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

func TestImageStackGenerator(t *testing.T) {
	t.Parallel()

	// Uniform solid data spanning [0,1]^3 on a grid reaching out to 2:
	// samples inside the data bounds interpolate, samples outside are void.
	g, err := grid.New(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2}, 0.5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	stack := ImageStack{
		Data:  Array3{Nx: 2, Ny: 2, Nz: 2, Data: []float64{-1, -1, -1, -1, -1, -1, -1, -1}},
		Lower: r3.Vec{},
		Upper: r3.Vec{X: 1, Y: 1, Z: 1},
	}
	f, err := Build(g, stack)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				p := g.Point(i, j, k)
				inside := p.X <= 1 && p.Y <= 1 && p.Z <= 1
				want := 1.0
				if inside {
					want = -1
				}
				if got := f.U[g.Idx(i, j, k)]; got != want {
					t.Fatalf("at %v: got %g, want %g", p, got, want)
				}
			}
		}
	}
}

func TestImageStackInterpolates(t *testing.T) {
	t.Parallel()

	// Data ramping from -1 to +1 along x: the midpoint interpolates to 0,
	// so the solid boundary falls halfway across the cell.
	g, err := grid.New(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.25)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	data := make([]float64, 8)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				data[(i*2+j)*2+k] = float64(2*i - 1)
			}
		}
	}
	stack := ImageStack{
		Data:  Array3{Nx: 2, Ny: 2, Nz: 2, Data: data},
		Upper: r3.Vec{X: 1, Y: 1, Z: 1},
	}
	f, err := Build(g, stack)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < g.Nx; i++ {
		want := 2*g.X[i] - 1
		if got := f.U[g.Idx(i, 2, 2)]; got != want {
			t.Errorf("at x=%g: got %g, want %g", g.X[i], got, want)
		}
	}
}

func TestImageStackValidation(t *testing.T) {
	t.Parallel()

	g, err := grid.New(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	upper := r3.Vec{X: 1, Y: 1, Z: 1}
	for _, tc := range []struct {
		name  string
		stack ImageStack
	}{
		{"wrong data length", ImageStack{Data: Array3{Nx: 2, Ny: 2, Nz: 2, Data: make([]float64, 3)}, Upper: upper}},
		{"too few samples", ImageStack{Data: Array3{Nx: 1, Ny: 2, Nz: 2, Data: make([]float64, 4)}, Upper: upper}},
		{"degenerate bounds", ImageStack{Data: Array3{Nx: 2, Ny: 2, Nz: 2, Data: make([]float64, 8)}}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(g, tc.stack); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func writeGraySlice(t *testing.T, path string, w, h int, y uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for yy := 0; yy < h; yy++ {
			img.SetGray(x, yy, color.Gray{Y: y})
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer fh.Close()
	if err := png.Encode(fh, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestLoadImageStack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGraySlice(t, filepath.Join(dir, "slice_00.png"), 2, 3, 255) // solid
	writeGraySlice(t, filepath.Join(dir, "slice_01.png"), 2, 3, 0)   // void

	a, err := LoadImageStack(dir, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Nx != 2 || a.Ny != 3 || a.Nz != 2 {
		t.Fatalf("shape = %dx%dx%d, want 2x3x2", a.Nx, a.Ny, a.Nz)
	}
	for i := 0; i < a.Nx; i++ {
		for j := 0; j < a.Ny; j++ {
			if got := a.At(i, j, 0); got != -0.5 {
				t.Errorf("white slice at (%d,%d) = %g, want -0.5", i, j, got)
			}
			if got := a.At(i, j, 1); got != 0.5 {
				t.Errorf("black slice at (%d,%d) = %g, want 0.5", i, j, got)
			}
		}
	}
}

func TestLoadImageStackErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadImageStack(t.TempDir(), 0.5); err == nil {
		t.Error("expected error for directory with no slices")
	}

	dir := t.TempDir()
	writeGraySlice(t, filepath.Join(dir, "a.png"), 2, 2, 0)
	writeGraySlice(t, filepath.Join(dir, "b.png"), 3, 2, 0)
	if _, err := LoadImageStack(dir, 0.5); err == nil {
		t.Error("expected error for mismatched slice sizes")
	}
}
