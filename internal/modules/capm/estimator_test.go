package capm

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func TestEstimate_SelfRegression(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	bench := []float64{0.011, -0.004, 0.017, 0.002, -0.009, 0.006}
	result, err := est.Estimate("SPY", bench, bench)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Beta, 1e-12)
	assert.InDelta(t, 0.0, result.Alpha, 1e-12)
	assert.InDelta(t, 1.0, result.RSquared, 1e-12)
	assert.InDelta(t, 0.0, result.ResidualVariance, 1e-20)
}

func TestEstimate_KnownSlope(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	bench := []float64{0.01, -0.02, 0.03, 0.005, -0.015}
	asset := make([]float64, len(bench))
	for i, b := range bench {
		asset[i] = 0.001 + 1.5*b
	}

	result, err := est.Estimate("AAA", asset, bench)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, result.Beta, 1e-9)
	assert.InDelta(t, 0.001, result.Alpha, 1e-9)
	assert.InDelta(t, 1.0, result.RSquared, 1e-9)
}

func TestEstimate_RiskFreeShiftsBothSides(t *testing.T) {
	// A constant excess-return shift cannot change the slope, only the
	// intercept.
	zero := NewEstimator("SPY", 0.0, 252, zerolog.Nop())
	nonzero := NewEstimator("SPY", 0.0252, 252, zerolog.Nop())

	bench := []float64{0.01, -0.02, 0.03, 0.005, -0.015}
	asset := []float64{0.014, -0.031, 0.046, 0.009, -0.021}

	a, err := zero.Estimate("AAA", asset, bench)
	require.NoError(t, err)
	b, err := nonzero.Estimate("AAA", asset, bench)
	require.NoError(t, err)

	assert.InDelta(t, a.Beta, b.Beta, 1e-12)
}

func TestEstimate_DegenerateBenchmark(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	bench := []float64{0.01, 0.01, 0.01, 0.01}
	asset := []float64{0.02, -0.01, 0.03, 0.00}

	_, err := est.Estimate("AAA", asset, bench)
	require.Error(t, err)

	var degenerate *domain.DegenerateBenchmarkError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, "SPY", degenerate.Benchmark)
}

func TestEstimate_InsufficientData(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	_, err := est.Estimate("AAA", []float64{0.01}, []float64{0.02})
	require.Error(t, err)

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "AAA", insufficient.Symbol)
}

func TestEstimate_Misaligned(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	_, err := est.Estimate("AAA", []float64{0.01, 0.02}, []float64{0.02, 0.01, 0.00})
	require.Error(t, err)

	var misaligned *domain.AlignmentError
	assert.True(t, errors.As(err, &misaligned))
}

func TestEstimateAll(t *testing.T) {
	est := NewEstimator("SPY", 0.0, 252, zerolog.Nop())

	bench := []float64{0.01, -0.02, 0.03, 0.005, -0.015}
	rm := domain.ReturnMatrix{
		Symbols: []string{"AAA", "BBB"},
		Data: map[string][]float64{
			"AAA": {0.015, -0.030, 0.045, 0.0075, -0.0225}, // beta 1.5
			"BBB": {0.005, -0.010, 0.015, 0.0025, -0.0075}, // beta 0.5
		},
	}

	estimates, err := est.EstimateAll(rm, bench)
	require.NoError(t, err)
	require.Len(t, estimates, 2)

	assert.Equal(t, "AAA", estimates[0].Symbol)
	assert.InDelta(t, 1.5, estimates[0].Beta, 1e-9)
	assert.Equal(t, "BBB", estimates[1].Symbol)
	assert.InDelta(t, 0.5, estimates[1].Beta, 1e-9)
}
