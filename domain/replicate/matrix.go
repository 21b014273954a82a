package replicate

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"golang.org/x/exp/rand"

	"ppcheck/domain/dataset"
	"ppcheck/domain/posterior"
)

// Matrix holds replicated counts with one row per posterior draw and one
// column per observation, index-aligned with the source table.
type Matrix struct {
	PolicyName string      `json:"policy"`
	Valid      bool        `json:"valid"`
	Rows       [][]float64 `json:"rows"`
}

// Interval is a central credible interval for one observation's replicates
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v falls inside the interval
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lower && v <= iv.Upper
}

// Width returns the interval width
func (iv Interval) Width() float64 {
	return iv.Upper - iv.Lower
}

// Replicate generates a full replicated dataset for every retained posterior
// draw under the given policy. The source table is never mutated; each call
// regenerates from scratch.
func Replicate(policy Policy, draws *posterior.DrawSet, table *dataset.Table, rng *rand.Rand) (*Matrix, error) {
	if draws.Len() == 0 {
		return nil, fmt.Errorf("no posterior draws to replicate from")
	}
	rows := make([][]float64, draws.Len())
	for d := 0; d < draws.Len(); d++ {
		draw := draws.Draw(d)
		row := make([]float64, table.Len())
		for i := 0; i < table.Len(); i++ {
			row[i] = policy.Simulate(draw, i, table.Row(i), rng)
		}
		rows[d] = row
	}
	return &Matrix{PolicyName: policy.Name(), Valid: policy.Valid(), Rows: rows}, nil
}

// Draws returns the number of replicate rows
func (m *Matrix) Draws() int {
	return len(m.Rows)
}

// Observations returns the number of columns
func (m *Matrix) Observations() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// Column extracts the replicate distribution for observation i
func (m *Matrix) Column(i int) []float64 {
	out := make([]float64, len(m.Rows))
	for d, row := range m.Rows {
		out[d] = row[i]
	}
	return out
}

// IntervalAt computes the central credible interval at the given mass for
// observation i (e.g. mass 0.9 yields the 5th-95th percentile interval)
func (m *Matrix) IntervalAt(i int, mass float64) (Interval, error) {
	if mass <= 0 || mass >= 1 {
		return Interval{}, fmt.Errorf("interval mass must be in (0,1), got %g", mass)
	}
	col := m.Column(i)
	tail := (1 - mass) / 2 * 100
	lower, err := stats.Percentile(col, tail)
	if err != nil {
		return Interval{}, fmt.Errorf("lower percentile: %w", err)
	}
	upper, err := stats.Percentile(col, 100-tail)
	if err != nil {
		return Interval{}, fmt.Errorf("upper percentile: %w", err)
	}
	return Interval{Lower: lower, Upper: upper}, nil
}

// Intervals computes per-observation credible intervals at the given mass
func (m *Matrix) Intervals(mass float64) ([]Interval, error) {
	out := make([]Interval, m.Observations())
	for i := range out {
		iv, err := m.IntervalAt(i, mass)
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

// Coverage summarizes how the observed responses sit against per-observation
// credible intervals.
type Coverage struct {
	Mass       float64 `json:"mass"`
	Inside     int     `json:"inside"`
	Outside    int     `json:"outside"`
	MeanWidth  float64 `json:"mean_width"`
	OutsideIdx []int   `json:"outside_idx,omitempty"`
}

// CoverageAgainst computes coverage of the observed table at the given mass
func (m *Matrix) CoverageAgainst(table *dataset.Table, mass float64) (Coverage, error) {
	if table.Len() != m.Observations() {
		return Coverage{}, fmt.Errorf("table length %d does not match replicate columns %d", table.Len(), m.Observations())
	}
	ivs, err := m.Intervals(mass)
	if err != nil {
		return Coverage{}, err
	}
	cov := Coverage{Mass: mass}
	widthSum := 0.0
	for i, iv := range ivs {
		widthSum += iv.Width()
		if iv.Contains(float64(table.Row(i).Count)) {
			cov.Inside++
		} else {
			cov.Outside++
			cov.OutsideIdx = append(cov.OutsideIdx, i)
		}
	}
	cov.MeanWidth = widthSum / float64(len(ivs))
	return cov, nil
}

// ColumnSummary holds the per-observation summary consumed by overlay
// plotting routines.
type ColumnSummary struct {
	Index  int     `json:"index"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Summaries computes per-observation replicate summaries
func (m *Matrix) Summaries() ([]ColumnSummary, error) {
	out := make([]ColumnSummary, m.Observations())
	for i := range out {
		col := m.Column(i)
		mean, err := stats.Mean(col)
		if err != nil {
			return nil, err
		}
		median, err := stats.Median(col)
		if err != nil {
			return nil, err
		}
		sd, err := stats.StandardDeviation(col)
		if err != nil {
			return nil, err
		}
		out[i] = ColumnSummary{Index: i, Mean: mean, Median: median, StdDev: sd}
	}
	return out, nil
}
