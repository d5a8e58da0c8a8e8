package estimator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridgeSolve solves (K + lambda*I) beta = v for all columns of v at once.
// The regularized kernel is symmetric positive definite for lambda > 0, so
// Cholesky is tried first; at lambda = 0 a rank-deficient kernel can defeat
// it, in which case a general solve is attempted before failing loudly.
func ridgeSolve(k mat.Symmetric, lambda float64, v mat.Matrix) (*mat.Dense, error) {
	n := k.SymmetricDim()
	sym := mat.NewSymDense(n, nil)
	sym.CopySym(k)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, sym.At(i, i)+lambda)
	}

	var beta mat.Dense
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveTo(&beta, v); err == nil {
			return &beta, nil
		}
	}

	if err := beta.Solve(sym, v); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return nil, fmt.Errorf("%w: lambda=%g cond=%.3g: %v",
				ErrSingularKernel, lambda, mat.Cond(sym, 2), err)
		}
		// Near-singular but solvable; the caller picked this lambda, so
		// the degraded conditioning is theirs to accept.
	}
	return &beta, nil
}
