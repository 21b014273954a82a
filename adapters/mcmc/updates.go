package mcmc

import (
	"math"

	"golang.org/x/exp/rand"

	"ppcheck/domain/model"
)

// adaptWindow is the number of iterations between proposal-scale adjustments
// during warmup
const adaptWindow = 50

type proposalScales struct {
	alpha, beta, sigma, offsets float64
}

type acceptCounters struct {
	alphaAcc, alphaTry   int
	betaAcc, betaTry     int
	sigmaAcc, sigmaTry   int
	offsetAcc, offsetTry int

	// Window counters consumed by adaptation, reset each window.
	wAlphaAcc, wAlphaTry   int
	wBetaAcc, wBetaTry     int
	wSigmaAcc, wSigmaTry   int
	wOffsetAcc, wOffsetTry int
}

func (a *acceptCounters) rate(acc, try int) float64 {
	if try == 0 {
		return 0
	}
	return float64(acc) / float64(try)
}

func (a *acceptCounters) resetWindow() {
	a.wAlphaAcc, a.wAlphaTry = 0, 0
	a.wBetaAcc, a.wBetaTry = 0, 0
	a.wSigmaAcc, a.wSigmaTry = 0, 0
	a.wOffsetAcc, a.wOffsetTry = 0, 0
}

// adapt nudges each proposal scale toward the target acceptance rate
func (s *proposalScales) adapt(acc *acceptCounters, target float64, olre bool, n int) {
	s.alpha = adjust(s.alpha, acc.rate(acc.wAlphaAcc, acc.wAlphaTry), target)
	s.beta = adjust(s.beta, acc.rate(acc.wBetaAcc, acc.wBetaTry), target)
	if olre {
		s.sigma = adjust(s.sigma, acc.rate(acc.wSigmaAcc, acc.wSigmaTry), target)
		s.offsets = adjust(s.offsets, acc.rate(acc.wOffsetAcc, acc.wOffsetTry), target)
	}
}

func adjust(scale, rate, target float64) float64 {
	if rate > target {
		scale *= 1.1
	} else {
		scale *= 0.9
	}
	// Clamp to keep the walk from collapsing or blowing up before the
	// window estimate stabilizes.
	return math.Min(math.Max(scale, 1e-4), 10)
}

// poissonLogLik returns the Poisson log-likelihood up to a constant for the
// linear predictor eta_i = alpha + beta*x_i + offset_i
func poissonLogLik(alpha, beta float64, offsets, y, x []float64) float64 {
	ll := 0.0
	for i := range y {
		eta := alpha + beta*x[i]
		if offsets != nil {
			eta += offsets[i]
		}
		ll += y[i]*eta - math.Exp(eta)
	}
	return ll
}

func normalLogPrior(v, mean, sd float64) float64 {
	z := (v - mean) / sd
	return -0.5 * z * z
}

// metStep runs one Metropolis accept/reject on the difference of log
// densities. It reports (accepted, divergent); a NaN log-density counts as a
// divergence and is always rejected.
func metStep(logCur, logProp float64, rng *rand.Rand, warming bool) (bool, int) {
	div := 0
	if math.IsNaN(logProp) {
		if !warming {
			div = 1
		}
		return false, div
	}
	if logProp >= logCur || math.Log(rng.Float64()) < logProp-logCur {
		return true, 0
	}
	return false, 0
}

func (e *Engine) updateAlpha(spec model.Spec, st *chainState, y, x []float64, scale float64, rng *rand.Rand, acc *acceptCounters, warming bool) int {
	prop := st.alpha + rng.NormFloat64()*scale
	logCur := poissonLogLik(st.alpha, st.beta, st.offsets, y, x) +
		normalLogPrior(st.alpha, spec.Priors.InterceptMean, spec.Priors.InterceptSD)
	logProp := poissonLogLik(prop, st.beta, st.offsets, y, x) +
		normalLogPrior(prop, spec.Priors.InterceptMean, spec.Priors.InterceptSD)
	ok, div := metStep(logCur, logProp, rng, warming)
	acc.alphaTry++
	acc.wAlphaTry++
	if ok {
		st.alpha = prop
		acc.alphaAcc++
		acc.wAlphaAcc++
	}
	return div
}

func (e *Engine) updateBeta(spec model.Spec, st *chainState, y, x []float64, scale float64, rng *rand.Rand, acc *acceptCounters, warming bool) int {
	prop := st.beta + rng.NormFloat64()*scale
	logCur := poissonLogLik(st.alpha, st.beta, st.offsets, y, x) +
		normalLogPrior(st.beta, spec.Priors.SlopeMean, spec.Priors.SlopeSD)
	logProp := poissonLogLik(st.alpha, prop, st.offsets, y, x) +
		normalLogPrior(prop, spec.Priors.SlopeMean, spec.Priors.SlopeSD)
	ok, div := metStep(logCur, logProp, rng, warming)
	acc.betaTry++
	acc.wBetaTry++
	if ok {
		st.beta = prop
		acc.betaAcc++
		acc.wBetaAcc++
	}
	return div
}

// updateOffsets performs one random-walk update per observation-level
// offset. Each offset's conditional only touches its own row, so the
// likelihood term stays O(1) per update.
func (e *Engine) updateOffsets(st *chainState, y, x []float64, scale float64, rng *rand.Rand, acc *acceptCounters, warming bool) int {
	sigma := math.Exp(st.logSigma)
	divergences := 0
	for i := range st.offsets {
		cur := st.offsets[i]
		prop := cur + rng.NormFloat64()*scale

		etaBase := st.alpha + st.beta*x[i]
		logCur := y[i]*(etaBase+cur) - math.Exp(etaBase+cur) + normalLogPrior(cur, 0, sigma)
		logProp := y[i]*(etaBase+prop) - math.Exp(etaBase+prop) + normalLogPrior(prop, 0, sigma)

		ok, div := metStep(logCur, logProp, rng, warming)
		divergences += div
		acc.offsetTry++
		acc.wOffsetTry++
		if ok {
			st.offsets[i] = prop
			acc.offsetAcc++
			acc.wOffsetAcc++
		}
	}
	return divergences
}

// updateSigma walks log sigma with a half-Normal prior on sigma. The
// Jacobian of the log transform contributes +logSigma to each density.
func (e *Engine) updateSigma(spec model.Spec, st *chainState, scale float64, rng *rand.Rand, acc *acceptCounters, warming bool) int {
	prop := st.logSigma + rng.NormFloat64()*scale
	logCur := sigmaLogDensity(st.logSigma, st.offsets, spec.Priors.OLRESigmaScale)
	logProp := sigmaLogDensity(prop, st.offsets, spec.Priors.OLRESigmaScale)
	ok, div := metStep(logCur, logProp, rng, warming)
	acc.sigmaTry++
	acc.wSigmaTry++
	if ok {
		st.logSigma = prop
		acc.sigmaAcc++
		acc.wSigmaAcc++
	}
	return div
}

func sigmaLogDensity(logSigma float64, offsets []float64, priorScale float64) float64 {
	sigma := math.Exp(logSigma)
	n := float64(len(offsets))
	sumSq := 0.0
	for _, e := range offsets {
		sumSq += e * e
	}
	// Offset likelihood + half-Normal prior + log-transform Jacobian.
	return -n*logSigma - sumSq/(2*sigma*sigma) -
		sigma*sigma/(2*priorScale*priorScale) + logSigma
}
