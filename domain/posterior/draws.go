package posterior

import "fmt"

// Draw is a single posterior parameter vector. Offsets holds the fitted
// per-observation random effects when the model retained them; it is nil for
// models without an OLRE term.
type Draw struct {
	Alpha   float64
	Beta    float64
	Sigma   float64
	Offsets []float64
}

// DrawSet is a collection of posterior draws produced by one sampling run.
// It is immutable after construction; replication policies read from it and
// never write back.
type DrawSet struct {
	alpha   []float64
	beta    []float64
	sigma   []float64
	offsets [][]float64
}

// NewDrawSet validates draw columns and assembles an immutable set. The
// offsets matrix may be nil for models without observation-level effects;
// when present it must have one row per draw.
func NewDrawSet(alpha, beta, sigma []float64, offsets [][]float64) (*DrawSet, error) {
	n := len(alpha)
	if n == 0 {
		return nil, fmt.Errorf("draw set cannot be empty")
	}
	if len(beta) != n || len(sigma) != n {
		return nil, fmt.Errorf("draw columns misaligned: alpha=%d beta=%d sigma=%d", n, len(beta), len(sigma))
	}
	if offsets != nil && len(offsets) != n {
		return nil, fmt.Errorf("offsets rows (%d) do not match draw count (%d)", len(offsets), n)
	}
	ds := &DrawSet{
		alpha: append([]float64(nil), alpha...),
		beta:  append([]float64(nil), beta...),
		sigma: append([]float64(nil), sigma...),
	}
	if offsets != nil {
		ds.offsets = make([][]float64, n)
		for i, row := range offsets {
			ds.offsets[i] = append([]float64(nil), row...)
		}
	}
	return ds, nil
}

// Len returns the number of retained draws
func (ds *DrawSet) Len() int {
	return len(ds.alpha)
}

// HasOffsets reports whether fitted per-observation effects were retained
func (ds *DrawSet) HasOffsets() bool {
	return ds.offsets != nil
}

// Draw returns the i-th posterior draw by value
func (ds *DrawSet) Draw(i int) Draw {
	d := Draw{Alpha: ds.alpha[i], Beta: ds.beta[i], Sigma: ds.sigma[i]}
	if ds.offsets != nil {
		d.Offsets = ds.offsets[i]
	}
	return d
}

// Sigmas returns a copy of the OLRE standard deviation column
func (ds *DrawSet) Sigmas() []float64 {
	return append([]float64(nil), ds.sigma...)
}

// Alphas returns a copy of the intercept column
func (ds *DrawSet) Alphas() []float64 {
	return append([]float64(nil), ds.alpha...)
}

// Betas returns a copy of the slope column
func (ds *DrawSet) Betas() []float64 {
	return append([]float64(nil), ds.beta...)
}
