package sources

import (
	"errors"
	"math"
	"testing"
)

// axisValues extracts the sorted unique coordinate values along one axis.
func axisValues(pts [][]float64, axis int) []float64 {
	seen := make(map[float64]bool)
	var vals []float64
	for _, p := range pts {
		if !seen[p[axis]] {
			seen[p[axis]] = true
			vals = append(vals, p[axis])
		}
	}
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	return vals
}

// checkUniformSpacing verifies consecutive axis values are DS apart.
func checkUniformSpacing(t *testing.T, vals []float64, ds float64, axis int) {
	t.Helper()
	for i := 1; i < len(vals); i++ {
		if math.Abs(vals[i]-vals[i-1]-ds) > 1e-9 {
			t.Errorf("Axis %d spacing %g at index %d, want %g", axis, vals[i]-vals[i-1], i, ds)
		}
	}
}

// TestBuild2DProperties verifies the realized grid shape, the uniform
// spacing across axes, the snapped radius and the preserved bounding-box
// center for an asymmetric extent.
func TestBuild2DProperties(t *testing.T) {
	g, err := Build2D(0, 1, 0, 2, 0.5, 0.5, 100, 0.3)
	if err != nil {
		t.Fatalf("Build2D failed: %v", err)
	}

	if g.Nx < 2 || g.Ny < 2 || g.Nz != 1 {
		t.Errorf("Unexpected axis counts %dx%dx%d", g.Nx, g.Ny, g.Nz)
	}
	if g.Len() != g.Nx*g.Ny {
		t.Errorf("Point count %d does not match %dx%d", g.Len(), g.Nx, g.Ny)
	}

	xs := axisValues(g.Points, 0)
	ys := axisValues(g.Points, 1)
	if len(xs) != g.Nx || len(ys) != g.Ny {
		t.Fatalf("Unique axis values %d/%d, want %d/%d", len(xs), len(ys), g.Nx, g.Ny)
	}
	checkUniformSpacing(t, xs, g.DS, 0)
	checkUniformSpacing(t, ys, g.DS, 1)

	// Radius snaps to an exact multiple of the spacing.
	mult := g.R / g.DS
	if math.Abs(mult-math.Round(mult)) > 1e-9 {
		t.Errorf("Radius %g is not a multiple of spacing %g", g.R, g.DS)
	}

	// The forced equal-axis spacing pads asymmetrically but keeps each
	// axis centered on the original bounding box.
	if cx := (xs[0] + xs[len(xs)-1]) / 2; math.Abs(cx-0.5) > 1e-9 {
		t.Errorf("X center %g, want 0.5", cx)
	}
	if cy := (ys[0] + ys[len(ys)-1]) / 2; math.Abs(cy-1.0) > 1e-9 {
		t.Errorf("Y center %g, want 1.0", cy)
	}
}

// TestBuild3DProperties verifies the 3D grid matches the same invariants.
func TestBuild3DProperties(t *testing.T) {
	g, err := Build3D(0, 1, 0, 1, 0, 4, 0.2, 0.2, 0.2, 200, 0.4)
	if err != nil {
		t.Fatalf("Build3D failed: %v", err)
	}

	if g.Len() != g.Nx*g.Ny*g.Nz {
		t.Errorf("Point count %d does not match %dx%dx%d", g.Len(), g.Nx, g.Ny, g.Nz)
	}
	for axis := 0; axis < 3; axis++ {
		checkUniformSpacing(t, axisValues(g.Points, axis), g.DS, axis)
	}
	mult := g.R / g.DS
	if math.Abs(mult-math.Round(mult)) > 1e-9 {
		t.Errorf("Radius %g is not a multiple of spacing %g", g.R, g.DS)
	}
}

// TestBuildRealizedCountNearRequest verifies the realized source count
// approximates the requested one for a square region.
func TestBuildRealizedCountNearRequest(t *testing.T) {
	g, err := Build2D(0, 1, 0, 1, 0, 0, 100, 0.3)
	if err != nil {
		t.Fatalf("Build2D failed: %v", err)
	}
	if g.Len() < 100 || g.Len() > 150 {
		t.Errorf("Realized count %d too far from requested 100", g.Len())
	}
}

// TestBuildErrors verifies the loud failures for degenerate requests.
func TestBuildErrors(t *testing.T) {
	if _, err := Build2D(0, 1, 0, 1, 0, 0, 0, 0.3); !errors.Is(err, ErrBadSourceCount) {
		t.Errorf("Zero source count: expected ErrBadSourceCount, got %v", err)
	}
	if _, err := Build2D(0, 0, 0, 1, 0, 0, 10, 0.3); !errors.Is(err, ErrDegenerateExtent) {
		t.Errorf("Zero x extent: expected ErrDegenerateExtent, got %v", err)
	}
	if _, err := Build3D(0, 1, 0, 1, 5, 5, 0.1, 0.1, 0, 10, 0.3); !errors.Is(err, ErrDegenerateExtent) {
		t.Errorf("Zero z extent: expected ErrDegenerateExtent, got %v", err)
	}
	// A radius far below the grid spacing snaps to zero and must fail
	// instead of producing a zero-density basis.
	if _, err := Build2D(0, 10, 0, 10, 0, 0, 9, 0.1); !errors.Is(err, ErrRadiusTooSmall) {
		t.Errorf("Tiny radius: expected ErrRadiusTooSmall, got %v", err)
	}
}
