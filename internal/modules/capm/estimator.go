// Package capm estimates CAPM betas by regressing asset excess returns
// against benchmark excess returns.
package capm

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/frontier/internal/domain"
)

// MinObservations is the smallest sample for which the regression is defined.
const MinObservations = 2

// Estimator runs the per-asset OLS regressions.
type Estimator struct {
	benchmark      string
	periodRiskFree float64
	log            zerolog.Logger
}

// NewEstimator creates a beta estimator. riskFreeRate is annual and gets
// de-annualized to the per-period rate used on both sides of the regression.
func NewEstimator(benchmark string, riskFreeRate float64, periodsPerYear int, log zerolog.Logger) *Estimator {
	return &Estimator{
		benchmark:      benchmark,
		periodRiskFree: riskFreeRate / float64(periodsPerYear),
		log:            log.With().Str("component", "capm").Logger(),
	}
}

// Estimate regresses one asset's excess returns on the benchmark's:
// asset_excess = alpha + beta * benchmark_excess + residual.
func (e *Estimator) Estimate(symbol string, asset, benchmark []float64) (domain.BetaEstimate, error) {
	if len(asset) != len(benchmark) {
		return domain.BetaEstimate{}, &domain.AlignmentError{
			Symbol:  symbol,
			Against: e.benchmark,
			Want:    len(benchmark),
			Got:     len(asset),
		}
	}
	if len(asset) < MinObservations {
		return domain.BetaEstimate{}, &domain.InsufficientDataError{
			Symbol:       symbol,
			Observations: len(asset),
			Required:     MinObservations,
		}
	}

	assetExcess := e.excess(asset)
	benchExcess := e.excess(benchmark)

	if stat.Variance(benchExcess, nil) == 0 {
		return domain.BetaEstimate{}, &domain.DegenerateBenchmarkError{Benchmark: e.benchmark}
	}

	alpha, beta := stat.LinearRegression(benchExcess, assetExcess, nil, false)
	rsq := stat.RSquared(benchExcess, assetExcess, nil, alpha, beta)

	// Residual variance with two fitted parameters (n-2 degrees of freedom).
	var ssr float64
	for i := range assetExcess {
		res := assetExcess[i] - alpha - beta*benchExcess[i]
		ssr += res * res
	}
	resVar := 0.0
	if len(assetExcess) > 2 {
		resVar = ssr / float64(len(assetExcess)-2)
	}

	return domain.BetaEstimate{
		Symbol:           symbol,
		Benchmark:        e.benchmark,
		Beta:             beta,
		Alpha:            alpha,
		RSquared:         rsq,
		ResidualVariance: resVar,
	}, nil
}

// EstimateAll runs the regression for every column of the return matrix
// against the benchmark series.
func (e *Estimator) EstimateAll(rm domain.ReturnMatrix, benchmark []float64) ([]domain.BetaEstimate, error) {
	estimates := make([]domain.BetaEstimate, 0, len(rm.Symbols))
	for _, symbol := range rm.Symbols {
		est, err := e.Estimate(symbol, rm.Data[symbol], benchmark)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, est)
	}

	e.log.Debug().
		Int("num_assets", len(estimates)).
		Str("benchmark", e.benchmark).
		Msg("Estimated CAPM betas")

	return estimates, nil
}

func (e *Estimator) excess(returns []float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - e.periodRiskFree
	}
	return out
}
