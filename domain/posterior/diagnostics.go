package posterior

import "fmt"

// Diagnostics summarizes sampler health for one fit. A fit that fails the
// Converged check must be surfaced to the caller, never silently merged into
// downstream results.
type Diagnostics struct {
	Divergences   int     `json:"divergences"`
	AcceptAlpha   float64 `json:"accept_alpha"`
	AcceptBeta    float64 `json:"accept_beta"`
	AcceptSigma   float64 `json:"accept_sigma"`
	AcceptOffsets float64 `json:"accept_offsets"`
	MinESS        float64 `json:"min_ess"`
	Retries       int     `json:"retries"`
}

// Convergence thresholds. Acceptance rates outside these bounds indicate a
// poorly tuned proposal; MinESS below the floor means the chain mixed too
// slowly to trust interval estimates.
const (
	minAcceptRate = 0.10
	maxAcceptRate = 0.80
	minESSFloor   = 50.0
)

// Converged reports whether the fit is usable
func (d Diagnostics) Converged() bool {
	if d.Divergences > 0 {
		return false
	}
	if d.MinESS < minESSFloor {
		return false
	}
	for _, r := range []float64{d.AcceptAlpha, d.AcceptBeta, d.AcceptSigma} {
		if r < minAcceptRate || r > maxAcceptRate {
			return false
		}
	}
	return true
}

// Summary renders a one-line human-readable diagnostic summary
func (d Diagnostics) Summary() string {
	return fmt.Sprintf("divergences=%d accept(a=%.2f b=%.2f s=%.2f eps=%.2f) minESS=%.0f retries=%d",
		d.Divergences, d.AcceptAlpha, d.AcceptBeta, d.AcceptSigma, d.AcceptOffsets, d.MinESS, d.Retries)
}
