package forward

import (
	"fmt"
	"math"

	"kcsd/pkg/basis"
)

// Plain2D is the two-dimensional forward model for a tissue slice of
// thickness h. The potential at lateral distance dist from a basis source
// centered at the origin is the integral of asinh(h/L) weighted by the
// basis density over the support square [-R,R]x[-R,R], scaled by
// 1/(2 pi sigma), where L is the lateral distance from the integration
// point to the field point.
type Plain2D struct {
	sigma float64
	h     float64
	basis basis.Basis
	quad  Quadrature
}

// NewPlain2D builds a 2D forward model for tissue conductivity sigma and
// slice thickness h.
func NewPlain2D(sigma, h float64, b basis.Basis, q Quadrature) (*Plain2D, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: sigma=%g", ErrBadConductivity, sigma)
	}
	return &Plain2D{sigma: sigma, h: h, basis: b, quad: q}, nil
}

// Potential implements Model.
func (m *Plain2D) Potential(dist, R float64) (float64, error) {
	f := func(xp, yp float64) float64 {
		L := math.Hypot(dist-xp, yp)
		if L < distFloor {
			L = distFloor
		}
		return math.Asinh(m.h/L) * m.basis.Evaluate(math.Hypot(xp, yp), R)
	}
	// The integrand is even in yp, with a singular line at xp=dist.
	v, err := m.quad.integrateSupport(f, R, dist)
	if err != nil {
		return 0, fmt.Errorf("potential at dist=%g R=%g: %w", dist, R, err)
	}
	return v / (2 * math.Pi * m.sigma), nil
}
