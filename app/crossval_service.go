package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ppcheck/domain/core"
	"ppcheck/domain/crossval"
	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/replicate"
	"ppcheck/internal"
	"ppcheck/ports"
)

// CrossValService runs exact leave-one-out cross-validation: one independent
// fit+predict cycle per observation, bounded by a weighted semaphore. Folds
// share nothing, so a cancelled context simply abandons in-flight fits.
type CrossValService struct {
	engine     ports.InferenceEngine
	rng        ports.RNGPort
	log        *internal.Logger
	maxWorkers int64
}

// CrossValRequest defines one leave-one-out run
type CrossValRequest struct {
	Table *dataset.Table
	Spec  model.Spec
	Fit   ports.FitOptions
	RunID core.RunID
}

// NewCrossValService creates the service with the given fold concurrency
func NewCrossValService(engine ports.InferenceEngine, rng ports.RNGPort, log *internal.Logger, maxWorkers int) *CrossValService {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &CrossValService{engine: engine, rng: rng, log: log, maxWorkers: int64(maxWorkers)}
}

// Run performs exactly N fit+predict cycles for an N-row table. Folds whose
// refit does not converge land in Result.Failed; they are never folded into
// the replicate set.
func (s *CrossValService) Run(ctx context.Context, req CrossValRequest) (*crossval.Result, error) {
	if req.Table == nil {
		return nil, fmt.Errorf("%w: no table provided", core.ErrInsufficientData)
	}
	n := req.Table.Len()
	runID := req.RunID
	if runID == "" {
		runID = core.RunID(core.NewID())
	}
	s.log.Info("crossval %s: %d folds, %d workers", runID, n, s.maxWorkers)

	sem := semaphore.NewWeighted(s.maxWorkers)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	result := &crossval.Result{}

	for i := 0; i < n; i++ {
		fold := i
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			fr, err := s.runFold(gctx, req, runID, fold)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if core.IsConvergenceError(err) {
					s.log.Warn("crossval %s: fold %d did not converge: %v", runID, fold, err)
					result.Failed = append(result.Failed, crossval.FailedFold{Index: fold, Err: err.Error()})
					return nil
				}
				return fmt.Errorf("fold %d: %w", fold, err)
			}
			result.Folds = append(result.Folds, *fr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info("crossval %s: %d folds converged, %d failed", runID, len(result.Folds), len(result.Failed))
	return result, nil
}

// runFold holds out one observation, refits on the remainder, and replicates
// the held-out point under the mixed policy. The standardizer is fit on the
// training partition only; the held-out covariate is transformed with the
// training statistics, never its own.
func (s *CrossValService) runFold(ctx context.Context, req CrossValRequest, runID core.RunID, fold int) (*crossval.FoldResult, error) {
	train, held, err := req.Table.Split(fold)
	if err != nil {
		return nil, err
	}
	std, err := dataset.FitStandardizer(train)
	if err != nil {
		return nil, fmt.Errorf("standardize: %w", err)
	}
	stdTrain := std.ApplyTable(train)

	fitOpts := req.Fit
	fitOpts.Seed = req.Fit.Seed + int64(fold)
	draws, diag, err := s.engine.Fit(ctx, req.Spec, stdTrain, fitOpts)
	if err != nil {
		return nil, err
	}

	stream, err := s.rng.Stream(ctx, runID.String(), "crossval", fold, req.Fit.Seed)
	if err != nil {
		return nil, err
	}
	heldStd := dataset.Observation{Count: held.Count, Covariate: std.Apply(held.Covariate)}
	policy := replicate.MixedPolicy{}
	reps := make([]float64, draws.Len())
	for d := 0; d < draws.Len(); d++ {
		reps[d] = policy.Simulate(draws.Draw(d), fold, heldStd, stream)
	}
	return &crossval.FoldResult{
		Index:        fold,
		Held:         held,
		Replicates:   reps,
		Standardizer: std,
		Diagnostics:  diag,
	}, nil
}
