package forward

import (
	"fmt"
	"math"

	"kcsd/pkg/basis"
)

// DefaultMoIIters is the truncation length of the image series. The series
// is geometric in W = (sigma - sigmaS)/(sigma + sigmaS) with |W| < 1, so
// the truncation error shrinks with the term count; 20 terms match the
// accuracy used for MEA slice recordings.
const DefaultMoIIters = 20

// MoI2D is the 2D forward model corrected for a conductive saline layer on
// top of the tissue slice via the Method of Images. Each of the M image
// iterations contributes
//
//	W^k * (asinh((h-2hk)/L) + asinh((h+2hk)/L))
//
// on top of the plain asinh(h/L) term.
type MoI2D struct {
	sigma float64
	h     float64
	basis basis.Basis
	quad  Quadrature

	// iterFactor[k-1] holds W^k for image iteration k.
	iterFactor []float64
}

// NewMoI2D builds a saline-corrected 2D forward model. sigma and sigmaS
// are the tissue and saline conductivities, h the slice thickness, and
// iters the image-series truncation count (DefaultMoIIters when <= 0).
func NewMoI2D(sigma, sigmaS, h float64, b basis.Basis, q Quadrature, iters int) (*MoI2D, error) {
	if sigma <= 0 || sigmaS <= 0 {
		return nil, fmt.Errorf("%w: sigma=%g sigmaS=%g", ErrBadConductivity, sigma, sigmaS)
	}
	if iters <= 0 {
		iters = DefaultMoIIters
	}
	w := (sigma - sigmaS) / (sigma + sigmaS)
	factors := make([]float64, iters)
	wk := 1.0
	for k := range factors {
		wk *= w
		factors[k] = wk
	}
	return &MoI2D{sigma: sigma, h: h, basis: b, quad: q, iterFactor: factors}, nil
}

// Potential implements Model.
func (m *MoI2D) Potential(dist, R float64) (float64, error) {
	f := func(xp, yp float64) float64 {
		L := math.Hypot(dist-xp, yp)
		if L < distFloor {
			L = distFloor
		}
		pot := math.Asinh(m.h / L)
		for k, wk := range m.iterFactor {
			hk := 2 * m.h * float64(k+1)
			pot += wk * (math.Asinh((m.h-hk)/L) + math.Asinh((m.h+hk)/L))
		}
		return pot * m.basis.Evaluate(math.Hypot(xp, yp), R)
	}
	v, err := m.quad.integrateSupport(f, R, dist)
	if err != nil {
		return 0, fmt.Errorf("MoI potential at dist=%g R=%g: %w", dist, R, err)
	}
	return v / (2 * math.Pi * m.sigma), nil
}
