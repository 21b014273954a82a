package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppcheck/adapters/rng"
	"ppcheck/domain/core"
	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/posterior"
	"ppcheck/domain/replicate"
	"ppcheck/internal"
	"ppcheck/ports"
)

// fakeEngine returns canned draws instantly. Folds are told apart by the
// seed offset the services add, so tests can fail a chosen fold.
type fakeEngine struct {
	mu        sync.Mutex
	calls     int
	baseSeed  int64
	failSeeds map[int64]bool
	draws     int
}

func newFakeEngine(baseSeed int64, draws int) *fakeEngine {
	return &fakeEngine{baseSeed: baseSeed, failSeeds: map[int64]bool{}, draws: draws}
}

func (f *fakeEngine) failFold(fold int) {
	f.failSeeds[f.baseSeed+int64(fold)] = true
}

func (f *fakeEngine) Fit(ctx context.Context, spec model.Spec, table *dataset.Table, opts ports.FitOptions) (*posterior.DrawSet, posterior.Diagnostics, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	diag := posterior.Diagnostics{AcceptAlpha: 0.4, AcceptBeta: 0.4, AcceptSigma: 0.4, MinESS: 300}
	if f.failSeeds[opts.Seed] {
		bad := posterior.Diagnostics{Divergences: 12, MinESS: 4}
		return nil, bad, core.NewConvergenceError(bad.Divergences, bad.MinESS)
	}

	n := f.draws
	alpha := make([]float64, n)
	beta := make([]float64, n)
	sigma := make([]float64, n)
	var offsets [][]float64
	if spec.IncludeOLRE {
		offsets = make([][]float64, n)
	}
	for i := 0; i < n; i++ {
		alpha[i] = 1.0
		beta[i] = 0.2
		if spec.IncludeOLRE {
			sigma[i] = 0.6
			offsets[i] = make([]float64, table.Len())
		}
	}
	draws, err := posterior.NewDrawSet(alpha, beta, sigma, offsets)
	return draws, diag, err
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable([]dataset.Observation{
		{Count: 2, Covariate: 1.0},
		{Count: 5, Covariate: 2.0},
		{Count: 1, Covariate: 3.0},
		{Count: 7, Covariate: 4.0},
		{Count: 3, Covariate: 5.0},
		{Count: 4, Covariate: 60.0},
	})
	require.NoError(t, err)
	return table
}

func TestCheckService_Run(t *testing.T) {
	engine := newFakeEngine(10, 50)
	svc := NewCheckService(engine, rng.NewStreamFactory(), nil, internal.NewLogger(internal.LogLevelError))

	result, err := svc.Run(context.Background(), CheckRequest{
		Dataset: "test.csv",
		Table:   testTable(t),
		Spec:    model.NewSpec(model.DefaultPriors(), true),
		Policies: []replicate.Policy{
			replicate.NoOLREPolicy{},
			replicate.FixedOffsetPolicy{},
			replicate.MixedPolicy{},
		},
		Mass: 0.9,
		Fit:  ports.FitOptions{Warmup: 10, Samples: 10, Seed: 10},
	})
	require.NoError(t, err)

	require.Len(t, result.Record.Policies, 3)
	byName := map[string]ports.PolicyResult{}
	for _, p := range result.Record.Policies {
		byName[p.Policy] = p
	}
	assert.True(t, byName[replicate.PolicyNoOLRE].Valid)
	assert.True(t, byName[replicate.PolicyMixed].Valid)
	assert.False(t, byName[replicate.PolicyFixedOffset].Valid, "fixed-offset results must be flagged invalid")

	for _, p := range result.Record.Policies {
		assert.Equal(t, 6, p.Coverage.Inside+p.Coverage.Outside, "coverage must account for every observation")
		assert.Len(t, p.Intervals, 6)
	}
	require.Len(t, result.Matrices, 3)
	for _, m := range result.Matrices {
		assert.Equal(t, 50, m.Draws())
		assert.Equal(t, 6, m.Observations())
	}
	assert.Equal(t, 1, engine.calls, "full-data check fits exactly once")
}

func TestCheckService_Reproducible(t *testing.T) {
	run := func() *CheckResult {
		engine := newFakeEngine(7, 40)
		svc := NewCheckService(engine, rng.NewStreamFactory(), nil, internal.NewLogger(internal.LogLevelError))
		result, err := svc.Run(context.Background(), CheckRequest{
			Dataset:  "test.csv",
			Table:    testTable(t),
			Spec:     model.NewSpec(model.DefaultPriors(), true),
			Policies: []replicate.Policy{replicate.MixedPolicy{}},
			Fit:      ports.FitOptions{Warmup: 10, Samples: 10, Seed: 7},
		})
		require.NoError(t, err)
		return result
	}
	// Replicate streams are derived from run-independent stage names plus
	// the seed, so coverage must be identical across runs.
	a, b := run(), run()
	assert.NotEqual(t, a.Record.ID, b.Record.ID)
	assert.Equal(t, a.Record.Policies[0].Coverage.Inside, b.Record.Policies[0].Coverage.Inside)
}

func TestCrossValService_ExactlyNFolds(t *testing.T) {
	table := testTable(t)
	engine := newFakeEngine(100, 30)
	svc := NewCrossValService(engine, rng.NewStreamFactory(), internal.NewLogger(internal.LogLevelError), 3)

	result, err := svc.Run(context.Background(), CrossValRequest{
		Table: table,
		Spec:  model.NewSpec(model.DefaultPriors(), true),
		Fit:   ports.FitOptions{Warmup: 10, Samples: 10, Seed: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, table.Len(), result.N(), "one fold per observation")
	assert.Equal(t, table.Len(), engine.calls, "one fit per observation")
	assert.Empty(t, result.Failed)
	require.Len(t, result.Folds, table.Len())

	fullStd, err := dataset.FitStandardizer(table)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, f := range result.Folds {
		assert.False(t, seen[f.Index], "fold index %d duplicated", f.Index)
		seen[f.Index] = true
		assert.Len(t, f.Replicates, 30)
		assert.Equal(t, table.Row(f.Index), f.Held)
		// Each fold's statistics come from its own training partition and
		// generally differ from the full-sample statistics.
		assert.NotEqual(t, fullStd.Mean, f.Standardizer.Mean,
			"fold %d standardizer should exclude the held-out row", f.Index)
	}

	matrix, err := result.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 30, matrix.Draws())
	assert.Equal(t, table.Len(), matrix.Observations())
}

func TestCrossValService_FailedFoldReportedSeparately(t *testing.T) {
	table := testTable(t)
	engine := newFakeEngine(200, 30)
	engine.failFold(2)
	svc := NewCrossValService(engine, rng.NewStreamFactory(), internal.NewLogger(internal.LogLevelError), 2)

	result, err := svc.Run(context.Background(), CrossValRequest{
		Table: table,
		Spec:  model.NewSpec(model.DefaultPriors(), true),
		Fit:   ports.FitOptions{Warmup: 10, Samples: 10, Seed: 200},
	})
	require.NoError(t, err, "a non-converged fold is not a run-level error")

	require.Len(t, result.Failed, 1)
	assert.Equal(t, 2, result.Failed[0].Index)
	assert.Len(t, result.Folds, table.Len()-1)
	for _, f := range result.Folds {
		assert.NotEqual(t, 2, f.Index, "failed fold must not appear among converged folds")
	}
	_, err = result.Matrix()
	assert.Error(t, err, "failed folds must not be merged into the matrix")
}

func TestCrossValService_Cancellation(t *testing.T) {
	table := testTable(t)
	engine := newFakeEngine(300, 10)
	svc := NewCrossValService(engine, rng.NewStreamFactory(), internal.NewLogger(internal.LogLevelError), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, CrossValRequest{
		Table: table,
		Spec:  model.NewSpec(model.DefaultPriors(), false),
		Fit:   ports.FitOptions{Warmup: 10, Samples: 10, Seed: 300},
	})
	assert.Error(t, err)
}
