package crossval

import (
	"fmt"

	"ppcheck/domain/dataset"
	"ppcheck/domain/posterior"
	"ppcheck/domain/replicate"
)

// FoldResult is the outcome of one successful leave-one-out cycle: the model
// was refit without the held-out row and the mixed policy replicated it.
type FoldResult struct {
	Index        int                   `json:"index"`
	Held         dataset.Observation   `json:"held"`
	Replicates   []float64             `json:"replicates"`
	Standardizer dataset.Standardizer  `json:"standardizer"`
	Diagnostics  posterior.Diagnostics `json:"diagnostics"`
}

// FailedFold records a fold whose refit did not converge. Failed folds are
// reported on their own and never merged into the replicate matrix.
type FailedFold struct {
	Index int    `json:"index"`
	Err   string `json:"error"`
}

// Result collects all fold outcomes of one leave-one-out run
type Result struct {
	Folds  []FoldResult `json:"folds"`
	Failed []FailedFold `json:"failed,omitempty"`
}

// N returns the total number of folds attempted
func (r *Result) N() int {
	return len(r.Folds) + len(r.Failed)
}

// FailedIndexes returns the indexes of non-converged folds
func (r *Result) FailedIndexes() []int {
	out := make([]int, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Index)
	}
	return out
}

// Matrix assembles the held-out replicate columns into the same draws x
// observations shape as a full-data replicate matrix, for comparison
// plotting. It fails when any fold is missing or when fold draw counts
// disagree.
func (r *Result) Matrix() (*replicate.Matrix, error) {
	if len(r.Failed) > 0 {
		return nil, fmt.Errorf("cannot assemble matrix: %d folds failed to converge", len(r.Failed))
	}
	if len(r.Folds) == 0 {
		return nil, fmt.Errorf("no folds to assemble")
	}
	draws := len(r.Folds[0].Replicates)
	cols := make([][]float64, len(r.Folds))
	for _, f := range r.Folds {
		if len(f.Replicates) != draws {
			return nil, fmt.Errorf("fold %d has %d draws, expected %d", f.Index, len(f.Replicates), draws)
		}
		if f.Index < 0 || f.Index >= len(r.Folds) {
			return nil, fmt.Errorf("fold index %d out of range", f.Index)
		}
		cols[f.Index] = f.Replicates
	}
	rows := make([][]float64, draws)
	for d := 0; d < draws; d++ {
		row := make([]float64, len(cols))
		for i, col := range cols {
			if col == nil {
				return nil, fmt.Errorf("missing fold for observation %d", i)
			}
			row[i] = col[d]
		}
		rows[d] = row
	}
	return &replicate.Matrix{PolicyName: replicate.PolicyMixed, Valid: true, Rows: rows}, nil
}
