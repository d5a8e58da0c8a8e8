// Package basis provides the normalized spatial profiles of the synthetic
// basis sources used by the kCSD method: a uniform step, a full-support
// Gaussian, and a Gaussian truncated at the source radius. All profiles
// are radially symmetric and normalized so they integrate to one over
// their support (the truncated Gaussian keeps the full Gaussian's
// normalization and therefore integrates to slightly less than one).
package basis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownKind indicates an unrecognized basis kind name.
	ErrUnknownKind = errors.New("basis: unknown basis kind")
	// ErrDimension indicates an unsupported spatial dimensionality.
	ErrDimension = errors.New("basis: dimension must be 2 or 3")
)

// Kind identifies one of the supported basis source profiles.
type Kind int

const (
	// Step is a uniform density over a disc (2D) or ball (3D) of radius R.
	Step Kind = iota
	// Gauss is a full-support Gaussian with standard deviation R/3.
	Gauss
	// GaussLim is the Gaussian zeroed outside radius R. The tail mass
	// beyond the cutoff is dropped, so it integrates to slightly under one.
	GaussLim
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case Step:
		return "step"
	case Gauss:
		return "gauss"
	case GaussLim:
		return "gauss_lim"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "step":
		return Step, nil
	case "gauss":
		return Gauss, nil
	case "gauss_lim":
		return GaussLim, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Basis evaluates the normalized density of a basis source. Implementations
// are pure and safe for concurrent use.
type Basis interface {
	// Kind reports which profile this basis implements.
	Kind() Kind

	// Evaluate returns the source density at distance dist from the center
	// of a basis element of radius R. The result is non-negative and zero
	// outside the support for compactly supported kinds.
	Evaluate(dist, R float64) float64
}

// New constructs the basis profile for the given kind and spatial
// dimensionality (2 or 3).
func New(kind Kind, dim int) (Basis, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDimension, dim)
	}
	switch kind {
	case Step:
		return stepBasis{dim: dim}, nil
	case Gauss:
		return gaussBasis{dim: dim}, nil
	case GaussLim:
		return gaussLimBasis{gaussBasis{dim: dim}}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// stepBasis is a uniform density over the disc/ball of radius R, with
// normalizing constant 1/(pi R^2) in 2D and 3/(4 pi R^3) in 3D.
type stepBasis struct {
	dim int
}

func (stepBasis) Kind() Kind { return Step }

func (b stepBasis) Evaluate(dist, R float64) float64 {
	if R <= 0 || dist > R {
		return 0
	}
	if b.dim == 2 {
		return 1 / (math.Pi * R * R)
	}
	return 3 / (4 * math.Pi * R * R * R)
}

// gaussBasis is a full-support Gaussian with standard deviation R/3, so
// that three standard deviations span the nominal source radius.
type gaussBasis struct {
	dim int
}

func (gaussBasis) Kind() Kind { return Gauss }

func (b gaussBasis) Evaluate(dist, R float64) float64 {
	if R <= 0 {
		return 0
	}
	stdev := R / 3
	norm := math.Pow(math.Sqrt(2*math.Pi)*stdev, -float64(b.dim))
	return norm * math.Exp(-dist*dist/(2*stdev*stdev))
}

// gaussLimBasis is the Gaussian cut off at the source radius. Callers
// accept that the dropped tail breaks exact unit normalization.
type gaussLimBasis struct {
	gaussBasis
}

func (gaussLimBasis) Kind() Kind { return GaussLim }

func (b gaussLimBasis) Evaluate(dist, R float64) float64 {
	if dist >= R {
		return 0
	}
	return b.gaussBasis.Evaluate(dist, R)
}
