package estimator

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"kcsd/pkg/config"
)

// DefaultLambdas returns the conventional candidate set for regularization
// search: decades from 1e-10 to 1e2.
func DefaultLambdas() []float64 {
	exps := floats.Span(make([]float64, 13), -10, 2)
	lambdas := make([]float64, len(exps))
	for i, p := range exps {
		lambdas[i] = math.Pow(10, p)
	}
	return lambdas
}

// CrossValidate selects the regularization parameter by k-fold
// cross-validation over the candidate lambdas, persists the winner as the
// estimator's lambda and returns it. A nil or empty candidate list uses
// DefaultLambdas; folds outside [1, n_ele] means leave-one-out. Candidates
// tied on prediction error resolve to the smallest lambda. Candidates
// whose folds cannot be solved are skipped; if that happens to every
// candidate, ErrNoStableLambda is returned.
func (e *Estimator) CrossValidate(lambdas []float64, folds int) (float64, error) {
	n := e.rec.Len()
	if n < 2 {
		return 0, fmt.Errorf("%w: got %d", ErrTooFewElectrodes, n)
	}
	if len(lambdas) == 0 {
		lambdas = DefaultLambdas()
	}
	for _, l := range lambdas {
		if l < 0 || math.IsNaN(l) {
			return 0, fmt.Errorf("%w: invalid lambda candidate %g", config.ErrConfiguration, l)
		}
	}
	if folds < 1 || folds > n {
		folds = n // leave-one-out
	}

	cands := make([]float64, len(lambdas))
	copy(cands, lambdas)
	sort.Float64s(cands)

	e.reportProgress(0, 0, fmt.Sprintf("Cross-validating %d lambda candidates over %d folds", len(cands), folds))

	// Evaluate candidates in parallel; each fold solve only reads the
	// memoized kernel and the recording.
	type cvResult struct {
		idx   int
		total float64
		err   error
	}
	resultChan := make(chan cvResult)
	sem := make(chan struct{}, e.cfg.Processing.NumCores)

	var wg sync.WaitGroup
	for i, l := range cands {
		wg.Add(1)
		go func(i int, l float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			total, err := e.cvError(l, folds)
			resultChan <- cvResult{idx: i, total: total, err: err}
		}(i, l)
	}
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	totals := make([]float64, len(cands))
	solveErrs := make([]error, len(cands))
	done := 0
	for res := range resultChan {
		totals[res.idx] = res.total
		solveErrs[res.idx] = res.err
		done++
		e.reportProgress(done, len(cands), "")
	}

	// Ascending scan with strict comparison prefers the least
	// regularization among equal-error candidates.
	bestIdx := -1
	bestErr := math.Inf(1)
	for i, total := range totals {
		if solveErrs[i] != nil || math.IsNaN(total) {
			continue
		}
		if total < bestErr {
			bestErr = total
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, fmt.Errorf("%w: first failure: %v", ErrNoStableLambda, firstError(solveErrs))
	}

	best := cands[bestIdx]
	if _, err := ridgeSolve(e.k, best, e.rec.Pots()); err != nil {
		return 0, err
	}
	e.lambda = best
	e.reportProgress(0, 0, fmt.Sprintf("Selected lambda=%g (CV error %.6g)", best, bestErr))
	return best, nil
}

// cvError accumulates the squared prediction error of lambda over the
// given fold count: each fold's electrodes are held out, the weights are
// refit on the rest and the held-out potentials are predicted through the
// corresponding kernel rows.
func (e *Estimator) cvError(lambda float64, folds int) (float64, error) {
	n := e.rec.Len()
	nt := e.rec.Timepoints()
	pots := e.rec.Pots()

	total := 0.0
	for f := 0; f < folds; f++ {
		lo := f * n / folds
		hi := (f + 1) * n / folds
		if lo == hi {
			continue
		}

		train := make([]int, 0, n-(hi-lo))
		for i := 0; i < n; i++ {
			if i < lo || i >= hi {
				train = append(train, i)
			}
		}

		m := len(train)
		subK := mat.NewSymDense(m, nil)
		for a := 0; a < m; a++ {
			for b := a; b < m; b++ {
				subK.SetSym(a, b, e.k.At(train[a], train[b]))
			}
		}
		subV := mat.NewDense(m, nt, nil)
		for a, idx := range train {
			for t := 0; t < nt; t++ {
				subV.Set(a, t, pots.At(idx, t))
			}
		}

		beta, err := ridgeSolve(subK, lambda, subV)
		if err != nil {
			return 0, fmt.Errorf("fold %d: %w", f, err)
		}

		for h := lo; h < hi; h++ {
			for t := 0; t < nt; t++ {
				pred := 0.0
				for a, idx := range train {
					pred += e.k.At(h, idx) * beta.At(a, t)
				}
				diff := pred - pots.At(h, t)
				total += diff * diff
			}
		}
	}
	return total, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
