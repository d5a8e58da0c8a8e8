// Package models holds the shared value types of the kCSD estimation
// pipeline: electrode recordings and regular grid descriptors.
package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch indicates inconsistent electrode, potential or
	// grid shapes.
	ErrDimensionMismatch = errors.New("models: dimension mismatch")
	// ErrDuplicateElectrode indicates two electrodes at coincident
	// positions, which makes the potential kernel near-singular.
	ErrDuplicateElectrode = errors.New("models: duplicate electrode position")
)

// coincidentTol is the squared distance below which two electrode
// positions are treated as coincident.
const coincidentTol = 1e-12

// Recording bundles the electrode positions with the potentials measured
// at them. Positions and potentials are copied on construction and treated
// as immutable for the lifetime of the recording.
type Recording struct {
	// positions is the n_ele x dim electrode layout
	positions [][]float64

	// pots is the n_ele x n_timepoints measurement matrix, row i aligned
	// with positions[i]
	pots *mat.Dense

	dim int
}

// NewRecording validates and copies the electrode layout and the measured
// potentials. Positions must all share one dimensionality (2 or 3), each
// electrode must have a matching row of potentials, and no two electrodes
// may coincide.
func NewRecording(positions [][]float64, pots [][]float64) (*Recording, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no electrode positions", ErrDimensionMismatch)
	}

	dim := len(positions[0])
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: electrodes must live in 2 or 3 dimensions, got %d", ErrDimensionMismatch, dim)
	}

	for i, p := range positions {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: electrode %d has %d coordinates, expected %d", ErrDimensionMismatch, i, len(p), dim)
		}
	}

	if len(pots) != len(positions) {
		return nil, fmt.Errorf("%w: %d electrodes but %d potential rows", ErrDimensionMismatch, len(positions), len(pots))
	}

	nt := len(pots[0])
	if nt == 0 {
		return nil, fmt.Errorf("%w: potential rows are empty", ErrDimensionMismatch)
	}
	for i, row := range pots {
		if len(row) != nt {
			return nil, fmt.Errorf("%w: potential row %d has %d timepoints, expected %d", ErrDimensionMismatch, i, len(row), nt)
		}
	}

	// Coincident electrodes produce duplicated kernel rows and an
	// unsolvable system, so they are rejected up front.
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			if squaredDistance(positions[i], positions[j]) < coincidentTol {
				return nil, fmt.Errorf("%w: electrodes %d and %d", ErrDuplicateElectrode, i, j)
			}
		}
	}

	posCopy := make([][]float64, len(positions))
	for i, p := range positions {
		posCopy[i] = make([]float64, dim)
		copy(posCopy[i], p)
	}

	data := make([]float64, len(pots)*nt)
	for i, row := range pots {
		copy(data[i*nt:(i+1)*nt], row)
	}

	return &Recording{
		positions: posCopy,
		pots:      mat.NewDense(len(pots), nt, data),
		dim:       dim,
	}, nil
}

// Len returns the number of electrodes.
func (r *Recording) Len() int { return len(r.positions) }

// Dim returns the spatial dimensionality of the electrode layout.
func (r *Recording) Dim() int { return r.dim }

// Timepoints returns the number of recorded timepoints per electrode.
func (r *Recording) Timepoints() int {
	_, c := r.pots.Dims()
	return c
}

// Position returns the coordinates of electrode i. The returned slice is
// owned by the recording and must not be modified.
func (r *Recording) Position(i int) []float64 { return r.positions[i] }

// Pots returns the n_ele x n_timepoints potential matrix. The returned
// matrix is owned by the recording and must not be modified.
func (r *Recording) Pots() *mat.Dense { return r.pots }

// Bounds returns the per-axis minimum and maximum of the electrode cloud.
func (r *Recording) Bounds() (min, max []float64) {
	min = make([]float64, r.dim)
	max = make([]float64, r.dim)
	for d := 0; d < r.dim; d++ {
		min[d] = math.Inf(1)
		max[d] = math.Inf(-1)
	}
	for _, p := range r.positions {
		for d := 0; d < r.dim; d++ {
			if p[d] < min[d] {
				min[d] = p[d]
			}
			if p[d] > max[d] {
				max[d] = p[d]
			}
		}
	}
	return min, max
}

// Distance returns the Euclidean distance between two points of equal
// dimensionality.
func Distance(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for d := range a {
		diff := a[d] - b[d]
		s += diff * diff
	}
	return s
}
