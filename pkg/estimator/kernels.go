package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"kcsd/internal/models"
)

// potTableNodes is the number of distances at which the forward model is
// evaluated exactly. Kernel assembly needs the model at every
// source/electrode and source/evaluation-point pair, which is far too many
// quadrature calls; instead the model is tabulated once and interpolated.
const potTableNodes = 100

// assembleKernels builds the electrode kernel K = bPot' * bPot and the
// cross kernels relating evaluation points to electrodes, with bPot[s,e]
// the forward-model potential of source s at electrode e. K is symmetric
// positive semi-definite by construction.
func (e *Estimator) assembleKernels() error {
	lookup, err := e.buildPotTable()
	if err != nil {
		return err
	}

	nSrc := e.src.Len()
	nEle := e.rec.Len()
	nEval := len(e.evalPts)
	r := e.src.R

	e.reportProgress(0, 0, fmt.Sprintf("Assembling kernels: %d sources x %d electrodes x %d evaluation points",
		nSrc, nEle, nEval))

	e.bPot = mat.NewDense(nSrc, nEle, nil)
	bPotEval := mat.NewDense(nSrc, nEval, nil)
	bCSD := mat.NewDense(nSrc, nEval, nil)

	e.parallelRows(nSrc, func(start, end int) {
		for s := start; s < end; s++ {
			src := e.src.Points[s]
			for j := 0; j < nEle; j++ {
				e.bPot.Set(s, j, lookup(models.Distance(src, e.rec.Position(j))))
			}
			for p := 0; p < nEval; p++ {
				d := models.Distance(src, e.evalPts[p])
				bPotEval.Set(s, p, lookup(d))
				bCSD.Set(s, p, e.basis.Evaluate(d, r))
			}
		}
	})

	e.k = mat.NewSymDense(nEle, nil)
	e.k.SymOuterK(1, e.bPot.T())

	e.kPot = mat.NewDense(nEval, nEle, nil)
	e.kPot.Mul(bPotEval.T(), e.bPot)

	e.kCSD = mat.NewDense(nEval, nEle, nil)
	e.kCSD.Mul(bCSD.T(), e.bPot)

	return nil
}

// buildPotTable evaluates the forward model at potTableNodes distances
// spanning every pair the assembly can produce and returns a clamped
// piecewise-linear lookup. The nodes are quadratically spaced so the table
// is densest near zero, where the potential varies fastest.
func (e *Estimator) buildPotTable() (func(dist float64) float64, error) {
	maxDist := e.maxPairDistance()
	if maxDist <= 0 {
		return nil, fmt.Errorf("%w: all points coincide", ErrSingularKernel)
	}

	xs := make([]float64, potTableNodes)
	ys := make([]float64, potTableNodes)
	for i := range xs {
		t := float64(i) / float64(potTableNodes-1)
		xs[i] = maxDist * t * t
	}

	e.reportProgress(0, 0, fmt.Sprintf("Tabulating forward model at %d distances up to %.4g",
		potTableNodes, maxDist))

	errs := make([]error, potTableNodes)
	e.parallelRows(potTableNodes, func(start, end int) {
		for i := start; i < end; i++ {
			ys[i], errs[i] = e.model.Potential(xs[i], e.src.R)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: fitting potential table: %v", ErrSingularKernel, err)
	}
	return func(dist float64) float64 {
		if dist > maxDist {
			dist = maxDist
		}
		return pl.Predict(dist)
	}, nil
}

// maxPairDistance bounds the distance between any source and any
// electrode or evaluation point by the diagonal of their joint bounding
// box.
func (e *Estimator) maxPairDistance() float64 {
	dim := e.rec.Dim()
	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for d := 0; d < dim; d++ {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	expand := func(p []float64) {
		for d := 0; d < dim; d++ {
			if p[d] < lo[d] {
				lo[d] = p[d]
			}
			if p[d] > hi[d] {
				hi[d] = p[d]
			}
		}
	}
	for _, p := range e.src.Points {
		expand(p)
	}
	for i := 0; i < e.rec.Len(); i++ {
		expand(e.rec.Position(i))
	}
	for _, p := range e.evalPts {
		expand(p)
	}
	return models.Distance(lo, hi)
}
