package app

import (
	"context"
	"fmt"
	"time"

	"ppcheck/domain/core"
	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/posterior"
	"ppcheck/domain/replicate"
	"ppcheck/internal"
	"ppcheck/ports"
)

// CheckService runs a full-data posterior predictive check: fit once, then
// replicate under each requested policy and score coverage against the
// observed responses.
type CheckService struct {
	engine ports.InferenceEngine
	rng    ports.RNGPort
	repo   ports.RunRepository
	log    *internal.Logger
}

// CheckRequest defines one posterior predictive check
type CheckRequest struct {
	Dataset  string
	Table    *dataset.Table
	Spec     model.Spec
	Policies []replicate.Policy
	Mass     float64
	Fit      ports.FitOptions
}

// CheckResult is the in-memory outcome of a check, richer than the persisted
// record: it keeps the full replicate matrices for report rendering.
type CheckResult struct {
	Record   *ports.RunRecord
	Draws    *posterior.DrawSet
	Matrices []*replicate.Matrix
}

// NewCheckService creates a check service. The repository may be nil when
// persistence is not configured; results are then returned but not stored.
func NewCheckService(engine ports.InferenceEngine, rng ports.RNGPort, repo ports.RunRepository, log *internal.Logger) *CheckService {
	return &CheckService{engine: engine, rng: rng, repo: repo, log: log}
}

// Run executes the check end to end
func (s *CheckService) Run(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if req.Table == nil {
		return nil, fmt.Errorf("%w: no table provided", core.ErrInsufficientData)
	}
	if len(req.Policies) == 0 {
		req.Policies = []replicate.Policy{replicate.NoOLREPolicy{}, replicate.MixedPolicy{}}
	}
	if req.Mass <= 0 || req.Mass >= 1 {
		req.Mass = 0.9
	}
	runID := core.RunID(core.NewID())
	s.log.Info("check %s: fitting %d observations (olre=%t)", runID, req.Table.Len(), req.Spec.IncludeOLRE)

	std, err := dataset.FitStandardizer(req.Table)
	if err != nil {
		return nil, fmt.Errorf("standardize: %w", err)
	}
	stdTable := std.ApplyTable(req.Table)

	start := time.Now()
	draws, diag, err := s.engine.Fit(ctx, req.Spec, stdTable, req.Fit)
	if err != nil {
		s.log.Error("check %s: fit failed: %v", runID, err)
		return nil, fmt.Errorf("fit: %w", err)
	}
	s.log.Info("check %s: fit done in %.1fs (%s)", runID, time.Since(start).Seconds(), diag.Summary())

	rec := &ports.RunRecord{
		ID:          runID,
		Dataset:     req.Dataset,
		N:           req.Table.Len(),
		Seed:        req.Fit.Seed,
		Diagnostics: diag,
		CreatedAt:   time.Now().UTC(),
	}
	result := &CheckResult{Record: rec, Draws: draws}

	for _, policy := range req.Policies {
		// Streams are named by policy, not by run, so the same seed and
		// data reproduce identical replicates across runs.
		stream, err := s.rng.SeededStream(ctx, "replicate/"+policy.Name(), req.Fit.Seed)
		if err != nil {
			return nil, fmt.Errorf("rng stream for %s: %w", policy.Name(), err)
		}
		matrix, err := replicate.Replicate(policy, draws, stdTable, stream)
		if err != nil {
			return nil, fmt.Errorf("replicate %s: %w", policy.Name(), err)
		}
		cov, err := matrix.CoverageAgainst(req.Table, req.Mass)
		if err != nil {
			return nil, fmt.Errorf("coverage %s: %w", policy.Name(), err)
		}
		ivs, err := matrix.Intervals(req.Mass)
		if err != nil {
			return nil, fmt.Errorf("intervals %s: %w", policy.Name(), err)
		}
		if !policy.Valid() {
			s.log.Warn("check %s: policy %s is a diagnostic foil, its intervals are flagged invalid", runID, policy.Name())
		}
		rec.Policies = append(rec.Policies, ports.PolicyResult{
			Policy:    policy.Name(),
			Valid:     policy.Valid(),
			Coverage:  cov,
			Intervals: ivs,
		})
		result.Matrices = append(result.Matrices, matrix)
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}
	return result, nil
}
