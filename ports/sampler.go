package ports

import (
	"context"

	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/posterior"
)

// FitOptions tunes a single sampling run
type FitOptions struct {
	Warmup        int     `json:"warmup"`
	Samples       int     `json:"samples"`
	Seed          int64   `json:"seed"`
	ProposalScale float64 `json:"proposal_scale"`
	TargetAccept  float64 `json:"target_accept"`
	MaxRetries    int     `json:"max_retries"`
}

// DefaultFitOptions returns sampling settings that converge for the model
// sizes this tool targets
func DefaultFitOptions(seed int64) FitOptions {
	return FitOptions{
		Warmup:        1000,
		Samples:       2000,
		Seed:          seed,
		ProposalScale: 0.5,
		TargetAccept:  0.44,
		MaxRetries:    2,
	}
}

// InferenceEngine fits a model to data and returns posterior draws. The call
// is blocking and self-contained: cancellation via ctx abandons the fit with
// no partial state to clean up. Non-convergence after internal retries is
// returned as an error wrapping core.ErrNonConvergence alongside the final
// diagnostics.
type InferenceEngine interface {
	Fit(ctx context.Context, spec model.Spec, table *dataset.Table, opts FitOptions) (*posterior.DrawSet, posterior.Diagnostics, error)
}
