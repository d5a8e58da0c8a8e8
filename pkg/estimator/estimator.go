// Package estimator implements the kernel Current Source Density (kCSD)
// inverse method: it places synthetic basis sources on a regular grid
// covering the electrode cloud, maps each source to the potentials it
// would produce at the electrodes through a forward model, assembles the
// resulting kernel matrices, and recovers the CSD (or potential) on an
// evaluation grid by Tikhonov-regularized ridge regression, with
// leave-one-out cross-validation to pick the regularization strength.
//
// The 2D, 3D and Method-of-Images variants share this engine and differ
// only in the injected forward model.
package estimator

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"kcsd/internal/models"
	"kcsd/pkg/basis"
	"kcsd/pkg/config"
	"kcsd/pkg/forward"
	"kcsd/pkg/sources"
)

// Estimate selects what Values reports on the evaluation grid.
type Estimate string

const (
	// CSD estimates the current source density.
	CSD Estimate = "CSD"
	// POT estimates the potential.
	POT Estimate = "POT"
)

// ProgressCallback reports progress of the long-running kernel assembly
// and cross-validation stages. If message is non-empty it is a status
// line, otherwise completed/total describe a progress update.
type ProgressCallback func(completed, total int, message string)

// Estimator owns the recording, the derived source and evaluation grids,
// the memoized kernel matrices and the currently selected regularization
// parameter. The recording and configuration are treated as immutable for
// the estimator's lifetime; Recompute rebuilds all derived state.
type Estimator struct {
	rec   *models.Recording
	cfg   *config.Config
	basis basis.Basis
	model forward.Model

	src       *sources.Grid
	evalPts   [][]float64
	evalShape []int

	// bPot[s,e] is the potential source s produces at electrode e; the
	// kernel matrices are built from it.
	bPot *mat.Dense
	k    *mat.SymDense // n_ele x n_ele electrode kernel
	kPot *mat.Dense    // n_eval x n_ele potential cross kernel
	kCSD *mat.Dense    // n_eval x n_ele CSD cross kernel

	lambda   float64
	progress ProgressCallback
}

// New constructs an estimator for the recording under the given
// configuration (nil means defaults) and computes its grids and kernel
// matrices. The returned estimator uses the configured lambda until
// CrossValidate replaces it.
func New(rec *models.Recording, cfg *config.Config) (*Estimator, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := basis.ParseKind(cfg.Estimation.SrcType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	b, err := basis.New(kind, rec.Dim())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	model, err := buildModel(rec.Dim(), b, cfg)
	if err != nil {
		return nil, err
	}

	e := &Estimator{
		rec:    rec,
		cfg:    cfg,
		basis:  b,
		model:  model,
		lambda: cfg.Estimation.Lambda,
	}
	if err := e.Recompute(); err != nil {
		return nil, err
	}
	return e, nil
}

// buildModel picks the forward model strategy for the recording geometry.
func buildModel(dim int, b basis.Basis, cfg *config.Config) (forward.Model, error) {
	est := cfg.Estimation
	if dim == 3 {
		if est.MoI {
			return nil, fmt.Errorf("%w: Method of Images applies to 2D recordings only", config.ErrConfiguration)
		}
		return forward.NewPlain3D(est.Sigma, b)
	}
	q := forward.DefaultQuadrature()
	if est.MoI {
		return forward.NewMoI2D(est.Sigma, est.SigmaS, est.H, b, q, est.MoIIters)
	}
	return forward.NewPlain2D(est.Sigma, est.H, b, q)
}

// SetProgressCallback registers a callback for progress reporting during
// Recompute and CrossValidate. A nil callback disables reporting.
func (e *Estimator) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

func (e *Estimator) reportProgress(completed, total int, message string) {
	if e.progress != nil {
		e.progress(completed, total, message)
	}
}

// Recompute rebuilds the source grid, the evaluation grid and the kernel
// matrices from the current recording and configuration. New calls it
// once; callers only need it if they mutate the configuration in place.
func (e *Estimator) Recompute() error {
	if err := e.buildSourceGrid(); err != nil {
		return err
	}
	if err := e.buildEvalGrid(); err != nil {
		return err
	}
	return e.assembleKernels()
}

// buildSourceGrid lays the basis sources over the electrode bounding box
// extended by the configured margins.
func (e *Estimator) buildSourceGrid() error {
	min, max := e.rec.Bounds()
	g := e.cfg.Grid
	est := e.cfg.Estimation

	var (
		src *sources.Grid
		err error
	)
	if e.rec.Dim() == 2 {
		src, err = sources.Build2D(min[0], max[0], min[1], max[1],
			g.ExtX, g.ExtY, est.NSrcInit, est.RInit)
	} else {
		src, err = sources.Build3D(min[0], max[0], min[1], max[1], min[2], max[2],
			g.ExtX, g.ExtY, g.ExtZ, est.NSrcInit, est.RInit)
	}
	if err != nil {
		return err
	}
	e.src = src
	e.reportProgress(0, 0, fmt.Sprintf("Source grid: %d sources, spacing %.4g, radius %.4g",
		src.Len(), src.DS, src.R))
	return nil
}

// buildEvalGrid lays the evaluation points over the configured bounds
// (electrode bounding box by default) at the configured spacing (one
// percent of the axis extent by default).
func (e *Estimator) buildEvalGrid() error {
	min, max := e.rec.Bounds()
	dim := e.rec.Dim()
	g := e.cfg.Grid

	lo := []float64{orDefault(g.XMin, min[0]), orDefault(g.YMin, min[1])}
	hi := []float64{orDefault(g.XMax, max[0]), orDefault(g.YMax, max[1])}
	gd := []float64{g.Gdx, g.Gdy}
	if dim == 3 {
		lo = append(lo, orDefault(g.ZMin, min[2]))
		hi = append(hi, orDefault(g.ZMax, max[2]))
		gd = append(gd, g.Gdz)
	}

	axes := make([][]float64, dim)
	e.evalShape = make([]int, dim)
	for d := 0; d < dim; d++ {
		extent := hi[d] - lo[d]
		if extent <= 0 {
			return fmt.Errorf("%w: evaluation grid axis %d has extent %g", config.ErrConfiguration, d, extent)
		}
		step := gd[d]
		if step == 0 {
			step = 0.01 * extent
		}
		n := int(math.Floor(extent/step+1e-9)) + 1
		axis := make([]float64, n)
		for i := range axis {
			axis[i] = lo[d] + float64(i)*step
		}
		axes[d] = axis
		e.evalShape[d] = n
	}

	total := 1
	for _, n := range e.evalShape {
		total *= n
	}
	pts := make([][]float64, 0, total)
	if dim == 2 {
		for _, x := range axes[0] {
			for _, y := range axes[1] {
				pts = append(pts, []float64{x, y})
			}
		}
	} else {
		for _, x := range axes[0] {
			for _, y := range axes[1] {
				for _, z := range axes[2] {
					pts = append(pts, []float64{x, y, z})
				}
			}
		}
	}
	e.evalPts = pts
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// Lambda returns the currently selected regularization parameter.
func (e *Estimator) Lambda() float64 { return e.lambda }

// SourceGrid returns the realized basis-source grid.
func (e *Estimator) SourceGrid() *sources.Grid { return e.src }

// EvalShape returns the per-axis point counts of the evaluation grid.
func (e *Estimator) EvalShape() []int {
	shape := make([]int, len(e.evalShape))
	copy(shape, e.evalShape)
	return shape
}

// EvalPoints returns the evaluation grid points, row-major over the axes
// (x outermost). The returned slices are owned by the estimator and must
// not be modified.
func (e *Estimator) EvalPoints() [][]float64 { return e.evalPts }

// Values estimates the CSD or the potential on the evaluation grid for
// every timepoint of the recording, returning an n_eval x n_timepoints
// matrix whose rows follow EvalPoints ordering.
func (e *Estimator) Values(estimate Estimate) (*mat.Dense, error) {
	var cross *mat.Dense
	switch estimate {
	case CSD:
		cross = e.kCSD
	case POT:
		cross = e.kPot
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEstimate, estimate)
	}

	beta, err := ridgeSolve(e.k, e.lambda, e.rec.Pots())
	if err != nil {
		return nil, err
	}

	var out mat.Dense
	out.Mul(cross, beta)
	return &out, nil
}

// parallelRows splits [0,n) into contiguous chunks and runs fn on each
// from its own goroutine, using the configured core count.
func (e *Estimator) parallelRows(n int, fn func(start, end int)) {
	workers := e.cfg.Processing.NumCores
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}
