package estimator

import "errors"

var (
	// ErrTooFewElectrodes indicates cross-validation was requested with
	// fewer than two electrodes, for which leave-one-out is undefined.
	ErrTooFewElectrodes = errors.New("estimator: cross-validation needs at least two electrodes")
	// ErrSingularKernel indicates the regularized kernel matrix could not
	// be solved at the requested lambda.
	ErrSingularKernel = errors.New("estimator: singular kernel matrix")
	// ErrNoStableLambda indicates every cross-validation candidate
	// produced an unsolvable system.
	ErrNoStableLambda = errors.New("estimator: no candidate lambda produced a stable solve")
	// ErrUnknownEstimate indicates an estimate kind other than CSD or POT.
	ErrUnknownEstimate = errors.New("estimator: unknown estimate kind")
)
