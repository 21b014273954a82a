package replicate

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"ppcheck/domain/dataset"
	"ppcheck/domain/posterior"
)

func newTestTable(t *testing.T, counts []int, covs []float64) *dataset.Table {
	t.Helper()
	rows := make([]dataset.Observation, len(counts))
	for i := range counts {
		rows[i] = dataset.Observation{Count: counts[i], Covariate: covs[i]}
	}
	table, err := dataset.NewTable(rows)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

// constantDrawSet builds a draw set where every draw carries the same
// parameters, with optional jitter on alpha to mimic posterior spread
func constantDrawSet(t *testing.T, n, draws int, alpha, beta, sigma float64, offsets []float64, jitter float64, seed uint64) *posterior.DrawSet {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	alphas := make([]float64, draws)
	betas := make([]float64, draws)
	sigmas := make([]float64, draws)
	var offs [][]float64
	if offsets != nil {
		offs = make([][]float64, draws)
	}
	for d := 0; d < draws; d++ {
		alphas[d] = alpha + rng.NormFloat64()*jitter
		betas[d] = beta
		sigmas[d] = sigma
		if offsets != nil {
			offs[d] = offsets
		}
	}
	ds, err := posterior.NewDrawSet(alphas, betas, sigmas, offs)
	if err != nil {
		t.Fatalf("NewDrawSet failed: %v", err)
	}
	return ds
}

// TestMixedPolicy_ZeroSigmaMatchesNoOLRE verifies the degenerate case: with
// sigma = 0 the mixed policy must produce exactly the no-OLRE output under a
// shared seed, because no fresh offset draw may be taken.
func TestMixedPolicy_ZeroSigmaMatchesNoOLRE(t *testing.T) {
	table := newTestTable(t,
		[]int{3, 1, 4, 1, 5, 9, 2, 6},
		[]float64{-1, -0.5, 0, 0.3, 0.7, 1, 1.4, 2})
	draws := constantDrawSet(t, table.Len(), 200, 1.2, 0.4, 0, nil, 0.05, 7)

	seed := uint64(99)
	mixed, err := Replicate(MixedPolicy{}, draws, table, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("mixed replicate: %v", err)
	}
	base, err := Replicate(NoOLREPolicy{}, draws, table, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("no-olre replicate: %v", err)
	}

	for d := range mixed.Rows {
		for i := range mixed.Rows[d] {
			if mixed.Rows[d][i] != base.Rows[d][i] {
				t.Fatalf("draw %d obs %d: mixed=%g no-olre=%g, expected exact equality at sigma=0",
					d, i, mixed.Rows[d][i], base.Rows[d][i])
			}
		}
	}
}

// TestFixedOffsetPolicy_TighterThanMixed checks the documented over-optimism
// property: intervals from the fixed-offset policy are narrower on average
// than mixed-replication intervals, because the fitted offsets were estimated
// against the replicated responses.
func TestFixedOffsetPolicy_TighterThanMixed(t *testing.T) {
	counts := []int{2, 15, 1, 40, 3, 8, 22, 1, 60, 5}
	covs := make([]float64, len(counts))
	table := newTestTable(t, counts, covs)

	// Offsets fitted to the data: they absorb each response's deviation
	// from the shared intercept, which is exactly the leak.
	alpha := 1.8
	sigma := 1.1
	offsets := make([]float64, len(counts))
	for i, c := range counts {
		offsets[i] = math.Log(float64(c)+0.5) - alpha
	}
	draws := constantDrawSet(t, table.Len(), 400, alpha, 0, sigma, offsets, 0.05, 11)

	fixed, err := Replicate(FixedOffsetPolicy{}, draws, table, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("fixed replicate: %v", err)
	}
	mixed, err := Replicate(MixedPolicy{}, draws, table, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("mixed replicate: %v", err)
	}

	fixedCov, err := fixed.CoverageAgainst(table, 0.9)
	if err != nil {
		t.Fatalf("fixed coverage: %v", err)
	}
	mixedCov, err := mixed.CoverageAgainst(table, 0.9)
	if err != nil {
		t.Fatalf("mixed coverage: %v", err)
	}

	if fixedCov.MeanWidth >= mixedCov.MeanWidth {
		t.Errorf("fixed-offset mean width %.2f should be below mixed mean width %.2f",
			fixedCov.MeanWidth, mixedCov.MeanWidth)
	}
	if fixed.Valid {
		t.Error("fixed-offset matrix must be flagged invalid")
	}
	if !mixed.Valid {
		t.Error("mixed matrix must be flagged valid")
	}
}

// TestPolicies_DuplicatedExtremeScenario runs the concrete diagnostic
// scenario: ten observations with a duplicated extreme value. The no-OLRE
// policy must miss at least two observations at 90%, mixed at most one, and
// fixed-offset none.
func TestPolicies_DuplicatedExtremeScenario(t *testing.T) {
	counts := []int{1, 2, 1, 3, 2, 2, 1, 2, 20, 20}
	covs := make([]float64, len(counts))
	table := newTestTable(t, counts, covs)

	// Posterior as a no-pooling fit would see it: intercept near the log
	// of the mean response, sigma sized to absorb the extremes.
	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= float64(len(counts))
	alpha := math.Log(mean)
	sigma := 1.2
	offsets := make([]float64, len(counts))
	for i, c := range counts {
		offsets[i] = math.Log(float64(c)+0.5) - alpha
	}
	draws := constantDrawSet(t, table.Len(), 500, alpha, 0, sigma, offsets, 0.1, 23)

	outside := func(p Policy, seed uint64) int {
		t.Helper()
		m, err := Replicate(p, draws, table, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("%s replicate: %v", p.Name(), err)
		}
		cov, err := m.CoverageAgainst(table, 0.9)
		if err != nil {
			t.Fatalf("%s coverage: %v", p.Name(), err)
		}
		return cov.Outside
	}

	if got := outside(NoOLREPolicy{}, 3); got < 2 {
		t.Errorf("no-OLRE policy missed %d observations, expected at least 2", got)
	}
	if got := outside(MixedPolicy{}, 4); got > 1 {
		t.Errorf("mixed policy missed %d observations, expected at most 1", got)
	}
	if got := outside(FixedOffsetPolicy{}, 5); got != 0 {
		t.Errorf("fixed-offset policy missed %d observations, expected exactly 0", got)
	}
}

// TestMixedPolicy_NominalCoverage simulates data from a known generative
// process and checks that mixed-replication intervals cover the true values
// at roughly the nominal rate.
func TestMixedPolicy_NominalCoverage(t *testing.T) {
	src := rand.New(rand.NewSource(61))
	truth := struct{ alpha, beta, sigma float64 }{1.0, 0.4, 0.7}

	n := 60
	counts := make([]int, n)
	covs := make([]float64, n)
	for i := 0; i < n; i++ {
		covs[i] = src.NormFloat64()
		eta := truth.alpha + truth.beta*covs[i] + src.NormFloat64()*truth.sigma
		// Inline Poisson draw via thinning is overkill here; reuse the
		// policy's own machinery with a one-draw set instead.
		counts[i] = int(poissonDraw(math.Exp(eta), src))
	}
	table := newTestTable(t, counts, covs)

	draws := constantDrawSet(t, n, 400, truth.alpha, truth.beta, truth.sigma, nil, 0.05, 71)
	m, err := Replicate(MixedPolicy{}, draws, table, rand.New(rand.NewSource(81)))
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	cov, err := m.CoverageAgainst(table, 0.9)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}

	rate := float64(cov.Inside) / float64(n)
	if rate < 0.75 {
		t.Errorf("coverage %.2f far below the nominal 0.90", rate)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{PolicyNoOLRE, PolicyFixedOffset, PolicyMixed} {
		p, ok := ByName(name)
		if !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
		if p.Name() != name {
			t.Errorf("ByName(%q) returned policy named %q", name, p.Name())
		}
	}
	if _, ok := ByName("bogus"); ok {
		t.Error("ByName should reject unknown policies")
	}
}

func TestPolicyValidity(t *testing.T) {
	if !(NoOLREPolicy{}).Valid() {
		t.Error("no-OLRE policy should be valid")
	}
	if !(MixedPolicy{}).Valid() {
		t.Error("mixed policy should be valid")
	}
	if (FixedOffsetPolicy{}).Valid() {
		t.Error("fixed-offset policy must not be valid")
	}
}
