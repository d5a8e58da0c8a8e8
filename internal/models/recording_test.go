package models

import (
	"errors"
	"math"
	"testing"
)

// TestNewRecordingValidation checks the shape and duplicate guards.
func TestNewRecordingValidation(t *testing.T) {
	cases := []struct {
		name      string
		positions [][]float64
		pots      [][]float64
		wantErr   error
	}{
		{
			name:      "no electrodes",
			positions: nil,
			pots:      nil,
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "unsupported dimensionality",
			positions: [][]float64{{1}},
			pots:      [][]float64{{0}},
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "ragged positions",
			positions: [][]float64{{0, 0}, {1, 1, 1}},
			pots:      [][]float64{{0}, {0}},
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "potential row count mismatch",
			positions: [][]float64{{0, 0}, {1, 1}},
			pots:      [][]float64{{0}},
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "ragged potentials",
			positions: [][]float64{{0, 0}, {1, 1}},
			pots:      [][]float64{{0, 1}, {0}},
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "coincident electrodes",
			positions: [][]float64{{0.5, 0.5}, {0.5, 0.5}},
			pots:      [][]float64{{0}, {1}},
			wantErr:   ErrDuplicateElectrode,
		},
		{
			name:      "valid 2D",
			positions: [][]float64{{0, 0}, {1, 0}, {0, 1}},
			pots:      [][]float64{{-1, 0}, {0, 1}, {1, 2}},
		},
		{
			name:      "valid 3D",
			positions: [][]float64{{0, 0, 0}, {1, 1, 1}},
			pots:      [][]float64{{0}, {1}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := NewRecording(tc.positions, tc.pots)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if rec.Len() != len(tc.positions) {
				t.Errorf("Expected %d electrodes, got %d", len(tc.positions), rec.Len())
			}
			if rec.Dim() != len(tc.positions[0]) {
				t.Errorf("Expected dimension %d, got %d", len(tc.positions[0]), rec.Dim())
			}
			if rec.Timepoints() != len(tc.pots[0]) {
				t.Errorf("Expected %d timepoints, got %d", len(tc.pots[0]), rec.Timepoints())
			}
		})
	}
}

// TestRecordingCopiesInputs verifies construction-time immutability: later
// mutation of the caller's slices must not leak into the recording.
func TestRecordingCopiesInputs(t *testing.T) {
	positions := [][]float64{{0, 0}, {1, 2}}
	pots := [][]float64{{3}, {4}}

	rec, err := NewRecording(positions, pots)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	positions[1][0] = 99
	pots[0][0] = 99

	if got := rec.Position(1)[0]; got != 1 {
		t.Errorf("Position leaked caller mutation: got %v", got)
	}
	if got := rec.Pots().At(0, 0); got != 3 {
		t.Errorf("Potentials leaked caller mutation: got %v", got)
	}
}

// TestRecordingBounds verifies the electrode bounding box.
func TestRecordingBounds(t *testing.T) {
	rec, err := NewRecording(
		[][]float64{{-0.2, -0.2}, {1.2, 1.2}, {0.5, 0.5}},
		[][]float64{{0}, {0}, {0}},
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	min, max := rec.Bounds()
	if min[0] != -0.2 || min[1] != -0.2 {
		t.Errorf("Expected min (-0.2,-0.2), got %v", min)
	}
	if max[0] != 1.2 || max[1] != 1.2 {
		t.Errorf("Expected max (1.2,1.2), got %v", max)
	}
}

// TestDistance verifies the Euclidean helper in 2D and 3D.
func TestDistance(t *testing.T) {
	if d := Distance([]float64{0, 0}, []float64{3, 4}); math.Abs(d-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %v", d)
	}
	if d := Distance([]float64{1, 1, 1}, []float64{1, 1, 1}); d != 0 {
		t.Errorf("Expected distance 0, got %v", d)
	}
}
