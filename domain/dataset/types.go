package dataset

import (
	"fmt"

	"ppcheck/domain/core"
)

// Observation is one row of data: a count response and a single numeric
// covariate. The per-row latent offset lives in the posterior, not here.
type Observation struct {
	Count     int     `json:"count"`
	Covariate float64 `json:"covariate"`
}

// Table is an ordered collection of observations. Order is irrelevant for
// modeling but replication output is aligned to it by index.
type Table struct {
	rows []Observation
}

// NewTable validates and wraps a slice of observations
func NewTable(rows []Observation) (*Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", core.ErrInsufficientData, len(rows))
	}
	for i, r := range rows {
		if r.Count < 0 {
			return nil, fmt.Errorf("%w: row %d has count %d", core.ErrNegativeCount, i, r.Count)
		}
	}
	copied := make([]Observation, len(rows))
	copy(copied, rows)
	return &Table{rows: copied}, nil
}

// Len returns the number of observations
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the observation at index i
func (t *Table) Row(i int) Observation {
	return t.rows[i]
}

// Rows returns a defensive copy of all observations
func (t *Table) Rows() []Observation {
	out := make([]Observation, len(t.rows))
	copy(out, t.rows)
	return out
}

// Counts returns the response column as floats, index-aligned
func (t *Table) Counts() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = float64(r.Count)
	}
	return out
}

// Covariates returns the covariate column, index-aligned
func (t *Table) Covariates() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Covariate
	}
	return out
}

// Split partitions the table into a training table excluding row holdout and
// the held-out observation. Used by the leave-one-out loop; the source table
// is never mutated.
func (t *Table) Split(holdout int) (*Table, Observation, error) {
	if holdout < 0 || holdout >= len(t.rows) {
		return nil, Observation{}, fmt.Errorf("holdout index %d out of range [0,%d)", holdout, len(t.rows))
	}
	train := make([]Observation, 0, len(t.rows)-1)
	for i, r := range t.rows {
		if i == holdout {
			continue
		}
		train = append(train, r)
	}
	trainTable, err := NewTable(train)
	if err != nil {
		return nil, Observation{}, err
	}
	return trainTable, t.rows[holdout], nil
}
