package field

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xupeiwust/TPMS-Designer/internal/grid"
)

// ImageStack resamples volumetric data onto the grid via trilinear
// interpolation. Each grid point is mapped through the inverse pose into
// the data's own bounding box; samples falling outside report void.
type ImageStack struct {
	Data         Array3
	Lower, Upper r3.Vec // bounding box the data spans in sampling space
	Pose         *grid.Transform
}

func (s ImageStack) generate(g *grid.Grid) ([]float64, error) {
	if len(s.Data.Data) != s.Data.Nx*s.Data.Ny*s.Data.Nz {
		return nil, fmt.Errorf("field: image stack data length %d does not match shape %dx%dx%d",
			len(s.Data.Data), s.Data.Nx, s.Data.Ny, s.Data.Nz)
	}
	if s.Data.Nx < 2 || s.Data.Ny < 2 || s.Data.Nz < 2 {
		return nil, fmt.Errorf("field: image stack needs at least 2 samples per axis")
	}
	pts, err := g.SamplePoints(s.Pose)
	if err != nil {
		return nil, err
	}
	span := r3.Sub(s.Upper, s.Lower)
	if span.X <= 0 || span.Y <= 0 || span.Z <= 0 {
		return nil, fmt.Errorf("field: image stack bounds have non-positive extent %v", span)
	}
	u := make([]float64, g.Len())
	for idx, p := range pts {
		fx := (p.X - s.Lower.X) / span.X * float64(s.Data.Nx-1)
		fy := (p.Y - s.Lower.Y) / span.Y * float64(s.Data.Ny-1)
		fz := (p.Z - s.Lower.Z) / span.Z * float64(s.Data.Nz-1)
		u[idx] = trilinear(s.Data, fx, fy, fz)
	}
	return u, nil
}

// trilinear interpolates the array at fractional index coordinates.
// Out-of-range samples report a positive (void) value.
func trilinear(a Array3, fx, fy, fz float64) float64 {
	if fx < 0 || fy < 0 || fz < 0 ||
		fx > float64(a.Nx-1) || fy > float64(a.Ny-1) || fz > float64(a.Nz-1) {
		return 1
	}
	i0 := int(fx)
	j0 := int(fy)
	k0 := int(fz)
	if i0 >= a.Nx-1 {
		i0 = a.Nx - 2
	}
	if j0 >= a.Ny-1 {
		j0 = a.Ny - 2
	}
	if k0 >= a.Nz-1 {
		k0 = a.Nz - 2
	}
	tx := fx - float64(i0)
	ty := fy - float64(j0)
	tz := fz - float64(k0)

	c00 := a.At(i0, j0, k0)*(1-tx) + a.At(i0+1, j0, k0)*tx
	c10 := a.At(i0, j0+1, k0)*(1-tx) + a.At(i0+1, j0+1, k0)*tx
	c01 := a.At(i0, j0, k0+1)*(1-tx) + a.At(i0+1, j0, k0+1)*tx
	c11 := a.At(i0, j0+1, k0+1)*(1-tx) + a.At(i0+1, j0+1, k0+1)*tx
	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty
	return c0*(1-tz) + c1*tz
}

// LoadImageStack reads a directory of grayscale slice images (PNG or TIFF),
// sorted by filename, into an Array3. Pixel values are normalised to [0,1]
// and mapped to threshold-pixel, so pixels brighter than the threshold come
// out negative (solid). Image x maps to the first axis, image y to the
// second, slice order to the third.
func LoadImageStack(dir string, threshold float64) (Array3, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Array3{}, fmt.Errorf("field: read image stack dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".tif", ".tiff":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return Array3{}, fmt.Errorf("field: no slice images in %s", dir)
	}
	sort.Strings(names)

	var out Array3
	for k, name := range names {
		img, err := loadSlice(filepath.Join(dir, name))
		if err != nil {
			return Array3{}, err
		}
		b := img.Bounds()
		if k == 0 {
			out = Array3{Nx: b.Dx(), Ny: b.Dy(), Nz: len(names)}
			out.Data = make([]float64, out.Nx*out.Ny*out.Nz)
		} else if b.Dx() != out.Nx || b.Dy() != out.Ny {
			return Array3{}, fmt.Errorf("field: slice %s is %dx%d, want %dx%d",
				name, b.Dx(), b.Dy(), out.Nx, out.Ny)
		}
		for i := 0; i < out.Nx; i++ {
			for j := 0; j < out.Ny; j++ {
				r, g, bl, _ := img.At(b.Min.X+i, b.Min.Y+j).RGBA()
				gray := float64(r+g+bl) / 3 / math.MaxUint16
				out.Data[(i*out.Ny+j)*out.Nz+k] = threshold - gray
			}
		}
	}
	return out, nil
}

func loadSlice(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("field: open slice: %w", err)
	}
	defer fh.Close()
	var img image.Image
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".png" {
		img, err = png.Decode(fh)
	} else {
		img, err = tiff.Decode(fh)
	}
	if err != nil {
		return nil, fmt.Errorf("field: decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
