package dataset

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ppcheck/domain/core"
)

// Standardizer centers and scales a covariate using statistics computed from
// a training partition. Fitting and applying are separate steps so held-out
// rows can never contribute to the statistics that transform them.
type Standardizer struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// FitStandardizer computes mean and standard deviation from the training
// table only
func FitStandardizer(train *Table) (Standardizer, error) {
	xs := train.Covariates()
	mean, std := stat.MeanStdDev(xs, nil)
	if std == 0 || math.IsNaN(std) {
		return Standardizer{}, core.ErrZeroVariance
	}
	return Standardizer{Mean: mean, StdDev: std}, nil
}

// Apply transforms a single covariate value with the fitted statistics
func (s Standardizer) Apply(x float64) float64 {
	return (x - s.Mean) / s.StdDev
}

// ApplyTable returns a new table with standardized covariates. Counts are
// carried through untouched.
func (s Standardizer) ApplyTable(t *Table) *Table {
	rows := t.Rows()
	for i := range rows {
		rows[i].Covariate = s.Apply(rows[i].Covariate)
	}
	// Rows are already validated; re-wrapping cannot fail.
	out, _ := NewTable(rows)
	return out
}
