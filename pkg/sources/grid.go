// Package sources lays out the regular grid of synthetic basis sources
// covering the electrode bounding box plus a margin. The grid spacing is
// forced to be identical on every axis, the per-axis counts are rounded up
// to integers, and the basis radius is snapped to a multiple of the
// spacing; the realized source count and margins therefore usually differ
// from the requested ones, which is intentional.
package sources

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDegenerateExtent indicates a non-positive extent on some axis,
	// from which no source grid can be built.
	ErrDegenerateExtent = errors.New("sources: degenerate extent")
	// ErrBadSourceCount indicates a non-positive requested source count.
	ErrBadSourceCount = errors.New("sources: requested source count must be positive")
	// ErrRadiusTooSmall indicates a requested radius that snaps to zero,
	// i.e. below half the grid spacing.
	ErrRadiusTooSmall = errors.New("sources: source radius snaps to zero")
)

// Grid is a realized basis-source grid.
type Grid struct {
	// Points holds the source centers, row-major over the axes
	// (x outermost), each of length Dim.
	Points [][]float64

	// Nx, Ny, Nz are the per-axis source counts; Nz is 1 for 2D grids.
	Nx, Ny, Nz int

	// DS is the source spacing, identical on every axis.
	DS float64

	// R is the basis radius snapped to the nearest multiple of DS.
	R float64

	// Dim is the spatial dimensionality, 2 or 3.
	Dim int
}

// Len returns the realized source count Nx*Ny*Nz.
func (g *Grid) Len() int { return len(g.Points) }

// Build2D distributes approximately nSrc sources over the rectangle
// [xmin,xmax]x[ymin,ymax] extended by extX and extY on each side, and
// snaps rInit to the resulting grid spacing.
func Build2D(xmin, xmax, ymin, ymax, extX, extY float64, nSrc int, rInit float64) (*Grid, error) {
	if nSrc < 1 {
		return nil, fmt.Errorf("%w: n_src=%d", ErrBadSourceCount, nSrc)
	}
	lx, ly := xmax-xmin, ymax-ymin
	lxn, lyn := lx+2*extX, ly+2*extY
	if lxn <= 0 || lyn <= 0 {
		return nil, fmt.Errorf("%w: extended lengths %g x %g", ErrDegenerateExtent, lxn, lyn)
	}

	unit := math.Sqrt(lxn * lyn / float64(nSrc))
	nx := axisCount(lxn, unit)
	ny := axisCount(lyn, unit)

	// The x-axis count fixes the spacing for every axis; the realized
	// per-axis extents are recomputed from it, which pads the shorter
	// axes asymmetrically relative to the request.
	ds := lxn / float64(nx-1)
	extXN := (float64(nx-1)*ds - lx) / 2
	extYN := (float64(ny-1)*ds - ly) / 2

	linX := linspace(xmin-extXN, xmax+extXN, nx)
	linY := linspace(ymin-extYN, ymax+extYN, ny)

	pts := make([][]float64, 0, nx*ny)
	for _, x := range linX {
		for _, y := range linY {
			pts = append(pts, []float64{x, y})
		}
	}

	r, err := snapRadius(rInit, ds)
	if err != nil {
		return nil, err
	}
	return &Grid{Points: pts, Nx: nx, Ny: ny, Nz: 1, DS: ds, R: r, Dim: 2}, nil
}

// Build3D distributes approximately nSrc sources over the cuboid spanned
// by the given bounds extended by extX, extY, extZ on each side, and snaps
// rInit to the resulting grid spacing.
func Build3D(xmin, xmax, ymin, ymax, zmin, zmax, extX, extY, extZ float64, nSrc int, rInit float64) (*Grid, error) {
	if nSrc < 1 {
		return nil, fmt.Errorf("%w: n_src=%d", ErrBadSourceCount, nSrc)
	}
	lx, ly, lz := xmax-xmin, ymax-ymin, zmax-zmin
	lxn, lyn, lzn := lx+2*extX, ly+2*extY, lz+2*extZ
	if lxn <= 0 || lyn <= 0 || lzn <= 0 {
		return nil, fmt.Errorf("%w: extended lengths %g x %g x %g", ErrDegenerateExtent, lxn, lyn, lzn)
	}

	unit := math.Cbrt(lxn * lyn * lzn / float64(nSrc))
	nx := axisCount(lxn, unit)
	ny := axisCount(lyn, unit)
	nz := axisCount(lzn, unit)

	ds := lxn / float64(nx-1)
	extXN := (float64(nx-1)*ds - lx) / 2
	extYN := (float64(ny-1)*ds - ly) / 2
	extZN := (float64(nz-1)*ds - lz) / 2

	linX := linspace(xmin-extXN, xmax+extXN, nx)
	linY := linspace(ymin-extYN, ymax+extYN, ny)
	linZ := linspace(zmin-extZN, zmax+extZN, nz)

	pts := make([][]float64, 0, nx*ny*nz)
	for _, x := range linX {
		for _, y := range linY {
			for _, z := range linZ {
				pts = append(pts, []float64{x, y, z})
			}
		}
	}

	r, err := snapRadius(rInit, ds)
	if err != nil {
		return nil, err
	}
	return &Grid{Points: pts, Nx: nx, Ny: ny, Nz: nz, DS: ds, R: r, Dim: 3}, nil
}

// axisCount rounds the axis length up to an integer number of unit cells.
// At least two nodes are required per axis so the spacing stays defined.
func axisCount(length, unit float64) int {
	n := int(math.Ceil(length / unit))
	if n < 2 {
		n = 2
	}
	return n
}

// snapRadius snaps r to the nearest multiple of ds, failing loudly instead
// of silently producing a zero-radius (and thus zero-density) basis.
func snapRadius(r, ds float64) (float64, error) {
	snapped := math.Round(r/ds) * ds
	if snapped <= 0 {
		return 0, fmt.Errorf("%w: R_init=%g ds=%g", ErrRadiusTooSmall, r, ds)
	}
	return snapped, nil
}

func linspace(lo, hi float64, n int) []float64 {
	return floats.Span(make([]float64, n), lo, hi)
}
