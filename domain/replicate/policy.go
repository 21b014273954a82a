package replicate

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"ppcheck/domain/dataset"
	"ppcheck/domain/posterior"
)

// Policy produces one simulated count for an observation under a single
// posterior draw. Implementations must never mutate the draw or the
// observation.
type Policy interface {
	// Name returns the policy name used in reports and persistence
	Name() string

	// Description returns a human-readable description
	Description() string

	// Valid reports whether replicates from this policy are admissible for
	// inference. The fixed-offset policy exists only as a diagnostic foil
	// and returns false.
	Valid() bool

	// Simulate draws one synthetic count for the observation at index i
	Simulate(draw posterior.Draw, i int, obs dataset.Observation, rng *rand.Rand) float64
}

// PolicyName constants for lookup and persistence
const (
	PolicyNoOLRE      = "no_olre"
	PolicyFixedOffset = "fixed_offset"
	PolicyMixed       = "mixed"
)

// ByName resolves a policy from its persisted name
func ByName(name string) (Policy, bool) {
	switch name {
	case PolicyNoOLRE:
		return NoOLREPolicy{}, true
	case PolicyFixedOffset:
		return FixedOffsetPolicy{}, true
	case PolicyMixed:
		return MixedPolicy{}, true
	}
	return nil, false
}

// poissonDraw samples a count from a Poisson with the given rate. A zero
// rate short-circuits to zero so degenerate predictors do not feed the
// sampler a zero-parameter distribution.
func poissonDraw(rate float64, rng *rand.Rand) float64 {
	if rate <= 0 || math.IsNaN(rate) {
		return 0
	}
	return distuv.Poisson{Lambda: rate, Src: rng}.Rand()
}

// NoOLREPolicy ignores the latent offset entirely. Its replicates are
// under-dispersed whenever the data carry excess variance, which is exactly
// what makes it a useful diagnostic baseline.
type NoOLREPolicy struct{}

func (NoOLREPolicy) Name() string { return PolicyNoOLRE }

func (NoOLREPolicy) Description() string {
	return "Simulates from the linear predictor alone, ignoring observation-level effects"
}

func (NoOLREPolicy) Valid() bool { return true }

func (NoOLREPolicy) Simulate(draw posterior.Draw, i int, obs dataset.Observation, rng *rand.Rand) float64 {
	rate := math.Exp(draw.Alpha + draw.Beta*obs.Covariate)
	return poissonDraw(rate, rng)
}

// FixedOffsetPolicy reuses the fitted per-observation offset when
// replicating. The offset was estimated against the very response being
// replicated, so the replicate leaks information about the held-out value
// and its intervals are spuriously tight. Valid() is false: callers must
// flag output from this policy, never present it as a real check.
type FixedOffsetPolicy struct{}

func (FixedOffsetPolicy) Name() string { return PolicyFixedOffset }

func (FixedOffsetPolicy) Description() string {
	return "Reuses fitted observation-level offsets; diagnostic foil only, leaks the response"
}

func (FixedOffsetPolicy) Valid() bool { return false }

func (FixedOffsetPolicy) Simulate(draw posterior.Draw, i int, obs dataset.Observation, rng *rand.Rand) float64 {
	offset := 0.0
	if i < len(draw.Offsets) {
		offset = draw.Offsets[i]
	}
	rate := math.Exp(draw.Alpha + draw.Beta*obs.Covariate + offset)
	return poissonDraw(rate, rng)
}

// MixedPolicy is the correct replication scheme: the hyperparameter sigma is
// taken from the posterior draw, but the per-observation offset is sampled
// fresh, independent of whatever value was fitted at that index. The offset
// is a nuisance parameter marginalized by sampling, not a fixed quantity.
type MixedPolicy struct{}

func (MixedPolicy) Name() string { return PolicyMixed }

func (MixedPolicy) Description() string {
	return "Resamples observation-level offsets from Normal(0, sigma) per draw"
}

func (MixedPolicy) Valid() bool { return true }

func (MixedPolicy) Simulate(draw posterior.Draw, i int, obs dataset.Observation, rng *rand.Rand) float64 {
	offset := 0.0
	// sigma == 0 degenerates to the no-OLRE case exactly: no fresh draw is
	// taken, so the RNG stream stays aligned with NoOLREPolicy under a
	// shared seed.
	if draw.Sigma > 0 {
		offset = rng.NormFloat64() * draw.Sigma
	}
	rate := math.Exp(draw.Alpha + draw.Beta*obs.Covariate + offset)
	return poissonDraw(rate, rng)
}
