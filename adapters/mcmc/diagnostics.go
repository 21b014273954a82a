package mcmc

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// effectiveSampleSize estimates ESS from a single chain using the initial
// positive sequence of autocorrelations: n / (1 + 2*sum(rho_k)), truncated
// at the first non-positive lag estimate.
func effectiveSampleSize(chain []float64) float64 {
	n := len(chain)
	if n < 4 {
		return float64(n)
	}
	mean, variance := stat.MeanVariance(chain, nil)
	if variance == 0 || math.IsNaN(variance) {
		// A constant chain carries no sampling noise to correct for.
		return float64(n)
	}

	sumRho := 0.0
	maxLag := n / 2
	for lag := 1; lag < maxLag; lag++ {
		rho := autocorrAt(chain, mean, variance, lag)
		if rho <= 0 {
			break
		}
		sumRho += rho
	}
	ess := float64(n) / (1 + 2*sumRho)
	if ess > float64(n) {
		ess = float64(n)
	}
	return ess
}

func autocorrAt(chain []float64, mean, variance float64, lag int) float64 {
	n := len(chain)
	sum := 0.0
	for i := 0; i < n-lag; i++ {
		sum += (chain[i] - mean) * (chain[i+lag] - mean)
	}
	return sum / (float64(n-lag) * variance)
}

// minESS returns the smallest ESS over the scalar parameter chains
func minESS(alpha, beta, sigma []float64, olre bool) float64 {
	min := effectiveSampleSize(alpha)
	if v := effectiveSampleSize(beta); v < min {
		min = v
	}
	if olre {
		if v := effectiveSampleSize(sigma); v < min {
			min = v
		}
	}
	return min
}
