package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func testConfig(allowShort bool) Config {
	return Config{
		RiskFreeRate:       0.0,
		AllowShort:         allowShort,
		FrontierPoints:     10,
		MaxConditionNumber: 1e12,
	}
}

func threeAssetInputs() ([]domain.AssetStats, domain.CovarianceMatrix) {
	stats := []domain.AssetStats{
		{Symbol: "A", AnnualReturn: 0.12, AnnualVol: 0.20},
		{Symbol: "B", AnnualReturn: 0.08, AnnualVol: math.Sqrt(0.03)},
		{Symbol: "C", AnnualReturn: 0.10, AnnualVol: math.Sqrt(0.025)},
	}
	cov := domain.CovarianceMatrix{
		Symbols: []string{"A", "B", "C"},
		Values: [][]float64{
			{0.04, 0.01, 0.005},
			{0.01, 0.03, 0.008},
			{0.005, 0.008, 0.025},
		},
	}
	return stats, cov
}

func portfolioVol(w domain.WeightVector, cov domain.CovarianceMatrix) float64 {
	var variance float64
	for i, si := range cov.Symbols {
		for j, sj := range cov.Symbols {
			variance += w[si] * w[sj] * cov.At(i, j)
		}
	}
	return math.Sqrt(variance)
}

func TestGMVP_LongOnly(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(false), zerolog.Nop())

	weights, err := opt.GMVP(stats, cov)
	require.NoError(t, err)
	require.Len(t, weights, 3)

	assert.InDelta(t, 1.0, weights.Sum(), 1e-6, "weights should sum to 1")
	for symbol, w := range weights {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s should be non-negative", symbol)
		assert.LessOrEqual(t, w, 1.0, "weight for %s should be <= 1", symbol)
	}
}

func TestGMVP_FavorsLowerVarianceAsset(t *testing.T) {
	// Classic two-asset scenario: B has much lower variance than A, so the
	// minimum variance portfolio leans toward B.
	stats := []domain.AssetStats{
		{Symbol: "A", AnnualReturn: 0.0067, AnnualVol: math.Sqrt(6.3333e-4)},
		{Symbol: "B", AnnualReturn: 0.0067, AnnualVol: math.Sqrt(2.3333e-4)},
	}
	cov := domain.CovarianceMatrix{
		Symbols: []string{"A", "B"},
		Values: [][]float64{
			{6.3333e-4, -2.1667e-4},
			{-2.1667e-4, 2.3333e-4},
		},
	}

	for _, allowShort := range []bool{true, false} {
		opt := New(testConfig(allowShort), zerolog.Nop())
		weights, err := opt.GMVP(stats, cov)
		require.NoError(t, err)

		assert.InDelta(t, 1.0, weights.Sum(), 1e-6)
		assert.Greater(t, weights["B"], weights["A"], "lower-variance asset should carry more weight (allowShort=%t)", allowShort)
	}
}

func TestGMVP_SingularCovariance(t *testing.T) {
	// Two perfectly correlated assets: the second row is twice the first.
	stats := []domain.AssetStats{
		{Symbol: "A", AnnualReturn: 0.10, AnnualVol: 0.1},
		{Symbol: "B", AnnualReturn: 0.12, AnnualVol: 0.2},
	}
	cov := domain.CovarianceMatrix{
		Symbols: []string{"A", "B"},
		Values: [][]float64{
			{0.01, 0.02},
			{0.02, 0.04},
		},
	}

	opt := New(testConfig(false), zerolog.Nop())
	_, err := opt.GMVP(stats, cov)
	require.Error(t, err)

	var illConditioned *domain.IllConditionedCovarianceError
	assert.True(t, errors.As(err, &illConditioned), "expected IllConditionedCovarianceError, got %v", err)
}

func TestTangency_ClosedFormMatchesFormula(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(true), zerolog.Nop())

	weights, err := opt.Tangency(stats, cov)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, weights.Sum(), 1e-9, "closed form satisfies the budget exactly")

	// With rf = 0 the tangency portfolio must not have a lower Sharpe than
	// the GMVP.
	gmvp, err := opt.GMVP(stats, cov)
	require.NoError(t, err)

	ret := func(w domain.WeightVector) float64 {
		var r float64
		for _, s := range stats {
			r += w[s.Symbol] * s.AnnualReturn
		}
		return r
	}
	tanSharpe := ret(weights) / portfolioVol(weights, cov)
	gmvpSharpe := ret(gmvp) / portfolioVol(gmvp, cov)
	assert.GreaterOrEqual(t, tanSharpe, gmvpSharpe-1e-9)
}

func TestTangency_LongOnly(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(false), zerolog.Nop())

	weights, err := opt.Tangency(stats, cov)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, weights.Sum(), 1e-6)
	for symbol, w := range weights {
		assert.GreaterOrEqual(t, w, -1e-12, "weight for %s should be non-negative", symbol)
	}
}

func TestFrontier_GMVPMinimality(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(true), zerolog.Nop())

	gmvp, err := opt.GMVP(stats, cov)
	require.NoError(t, err)
	gmvpVol := portfolioVol(gmvp, cov)

	result, err := opt.Frontier(stats, cov)
	require.NoError(t, err)
	require.NotEmpty(t, result.Points)

	for _, p := range result.Points {
		assert.GreaterOrEqual(t, p.Volatility, gmvpVol-1e-8,
			"no frontier point may beat the GMVP's volatility (target %.4f)", p.TargetReturn)
	}
}

func TestFrontier_UpperBranchMonotonic(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(true), zerolog.Nop())

	result, err := opt.Frontier(stats, cov)
	require.NoError(t, err)
	require.NotEmpty(t, result.Points)

	// Points are ordered by target return; beyond the GMVP both return and
	// volatility must be non-decreasing along the efficient branch.
	lastVol := math.Inf(-1)
	for _, p := range result.Points {
		if !p.Efficient {
			continue
		}
		assert.GreaterOrEqual(t, p.Volatility, lastVol-1e-9,
			"efficient branch volatility must not decrease (target %.4f)", p.TargetReturn)
		lastVol = p.Volatility
	}
}

func TestFrontier_VolatilityRoundTrip(t *testing.T) {
	stats, cov := threeAssetInputs()

	for _, allowShort := range []bool{true, false} {
		opt := New(testConfig(allowShort), zerolog.Nop())
		result, err := opt.Frontier(stats, cov)
		require.NoError(t, err)
		require.NotEmpty(t, result.Points)

		for _, p := range result.Points {
			assert.InDelta(t, p.Volatility, portfolioVol(p.Weights, cov), 1e-6,
				"reported volatility must match sqrt(w'Σw) (allowShort=%t)", allowShort)
			assert.InDelta(t, 1.0, p.Weights.Sum(), 1e-6)
		}
	}
}

func TestFrontier_InfeasibleTargetSkipped(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(false), zerolog.Nop())

	// Long-only portfolios cannot exceed the best single-asset return
	// (0.12); sweep well past it.
	result, err := opt.FrontierRange(stats, cov, 0.09, 0.30)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Points, "feasible targets must still be solved")
	require.NotEmpty(t, result.Skipped, "targets above the best asset return must be reported")

	for _, s := range result.Skipped {
		assert.Greater(t, s.TargetReturn, 0.12, "only unattainable targets may be skipped")
		assert.NotEmpty(t, s.Reason)
	}
}

func TestFrontier_TargetsHitWithShorting(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(true), zerolog.Nop())

	result, err := opt.FrontierRange(stats, cov, 0.09, 0.11)
	require.NoError(t, err)
	require.Len(t, result.Points, 10)

	for _, p := range result.Points {
		assert.InDelta(t, p.TargetReturn, p.Return, 1e-9,
			"equality-constrained closed form hits the target exactly")
	}
}

func TestSimulateRandomPortfolios(t *testing.T) {
	stats, cov := threeAssetInputs()
	opt := New(testConfig(false), zerolog.Nop())

	result, err := opt.SimulateRandomPortfolios(stats, cov, 500)
	require.NoError(t, err)
	require.Len(t, result.Samples, 500)

	for _, sp := range result.Samples[:20] {
		assert.InDelta(t, 1.0, sp.Weights.Sum(), 1e-9)
		assert.Greater(t, sp.Volatility, 0.0)
	}

	assert.GreaterOrEqual(t, result.BestSharpe.Sharpe, result.MinVariance.Sharpe)
	for _, sp := range result.Samples {
		assert.LessOrEqual(t, result.MinVariance.Volatility, sp.Volatility)
	}

	// Fixed seed: a second run is identical
	again, err := opt.SimulateRandomPortfolios(stats, cov, 500)
	require.NoError(t, err)
	assert.Equal(t, result.BestSharpe.Return, again.BestSharpe.Return)
}

func TestOptimizer_SolverSelection(t *testing.T) {
	longOnly := New(testConfig(false), zerolog.Nop())
	assert.Equal(t, "penalty_qp", longOnly.Solver().Name())

	shorting := New(testConfig(true), zerolog.Nop())
	assert.Equal(t, "closed_form", shorting.Solver().Name())
}

func TestOptimizer_MissingExpectedReturn(t *testing.T) {
	_, cov := threeAssetInputs()
	stats := []domain.AssetStats{
		{Symbol: "A", AnnualReturn: 0.12},
		{Symbol: "B", AnnualReturn: 0.08},
		{Symbol: "X", AnnualReturn: 0.10},
	}

	opt := New(testConfig(false), zerolog.Nop())
	_, err := opt.GMVP(stats, cov)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing expected return")
}
