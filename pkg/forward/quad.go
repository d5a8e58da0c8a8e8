package forward

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Quadrature caps the refinement of the nested Gauss-Legendre rule used by
// the 2D forward models. The node count doubles per refinement level until
// two successive estimates agree to Tol, so MaxLevels bounds the worst-case
// cost of a single forward model call.
type Quadrature struct {
	// Tol is the relative agreement required between successive
	// refinements.
	Tol float64

	// BaseNodes is the per-axis node count of the first refinement level.
	BaseNodes int

	// MaxLevels is the number of node doublings attempted before the
	// integration is reported as non-convergent.
	MaxLevels int
}

// DefaultQuadrature returns the refinement schedule used when the caller
// does not override it: 8 to 1024 nodes per axis at 1e-4 tolerance. The
// asinh(h/L) integrand has a logarithmic singularity where the field point
// meets the support, which limits the refinement rate; 1e-4 is the
// tightest tolerance the schedule reaches there, and it is well below the
// accuracy of the estimation itself.
func DefaultQuadrature() Quadrature {
	return Quadrature{Tol: 1e-4, BaseNodes: 8, MaxLevels: 7}
}

// integrateSupport integrates f over the basis support square
// [-R,R]x[-R,R] for integrands even in y with a possible singular line at
// x=sx. The y half-range is folded, and the x range is split at sx when it
// falls inside, so the singular point sits on panel corners where
// Gauss-Legendre nodes never land.
func (q Quadrature) integrateSupport(f func(x, y float64) float64, R, sx float64) (float64, error) {
	edges := []float64{-R, R}
	if sx > -R && sx < R {
		edges = []float64{-R, sx, R}
	}

	total := 0.0
	for i := 1; i < len(edges); i++ {
		v, err := q.integrate2D(f, edges[i-1], edges[i], 0, R)
		if err != nil {
			return 0, err
		}
		total += 2 * v
	}
	return total, nil
}

// integrate2D evaluates the double integral of f over [ax,bx]x[ay,by] with
// a nested fixed-location Gauss-Legendre rule, refining until convergence.
func (q Quadrature) integrate2D(f func(x, y float64) float64, ax, bx, ay, by float64) (float64, error) {
	prev := math.NaN()
	nodes := q.BaseNodes
	for level := 0; level <= q.MaxLevels; level++ {
		outer := func(x float64) float64 {
			return quad.Fixed(func(y float64) float64 { return f(x, y) }, ay, by, nodes, nil, 0)
		}
		v := quad.Fixed(outer, ax, bx, nodes, nil, 0)
		if !math.IsNaN(prev) {
			scale := math.Max(1, math.Abs(v))
			if math.Abs(v-prev) <= q.Tol*scale {
				return v, nil
			}
		}
		prev = v
		nodes *= 2
	}
	return 0, fmt.Errorf("%w: interval [%g,%g]x[%g,%g] after %d refinements (tol=%g)",
		ErrNotConverged, ax, bx, ay, by, q.MaxLevels, q.Tol)
}
