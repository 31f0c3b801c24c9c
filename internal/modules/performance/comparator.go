// Package performance evaluates realized portfolio figures for a weight
// vector and compares them against the benchmark.
package performance

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

// Comparator computes annualized portfolio return, volatility and Sharpe.
type Comparator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewComparator creates a performance comparator.
func NewComparator(riskFreeRate float64, log zerolog.Logger) *Comparator {
	return &Comparator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "performance").Logger(),
	}
}

// Evaluate computes w'μ, sqrt(w'Σw) and the Sharpe ratio for a weight
// vector. A zero-volatility allocation is a valid degenerate case: Sharpe is
// NaN, not an error.
func (c *Comparator) Evaluate(weights domain.WeightVector, stats []domain.AssetStats, cov domain.CovarianceMatrix) (domain.Performance, error) {
	mu := make(map[string]float64, len(stats))
	for _, s := range stats {
		mu[s.Symbol] = s.AnnualReturn
	}

	var ret float64
	w := make([]float64, cov.Dim())
	for i, symbol := range cov.Symbols {
		weight, ok := weights[symbol]
		if !ok {
			return domain.Performance{}, fmt.Errorf("weight vector is missing %s", symbol)
		}
		annual, ok := mu[symbol]
		if !ok {
			return domain.Performance{}, fmt.Errorf("statistics are missing %s", symbol)
		}
		w[i] = weight
		ret += weight * annual
	}

	var variance float64
	for i := range w {
		for j := range w {
			variance += w[i] * w[j] * cov.At(i, j)
		}
	}
	vol := math.Sqrt(math.Max(variance, 0))

	sharpe := math.NaN()
	if vol > 0 {
		sharpe = (ret - c.riskFreeRate) / vol
	}

	return domain.Performance{
		Return:     ret,
		Volatility: vol,
		Sharpe:     sharpe,
	}, nil
}

// BenchmarkPerformance derives the benchmark's performance from its own
// annualized statistics.
func (c *Comparator) BenchmarkPerformance(stats domain.AssetStats) domain.Performance {
	sharpe := math.NaN()
	if stats.AnnualVol > 0 {
		sharpe = (stats.AnnualReturn - c.riskFreeRate) / stats.AnnualVol
	}
	return domain.Performance{
		Return:     stats.AnnualReturn,
		Volatility: stats.AnnualVol,
		Sharpe:     sharpe,
	}
}

// Compare relates a portfolio to the benchmark by simple differences. The
// Sharpe difference is NaN when either side is undefined.
func (c *Comparator) Compare(portfolio, benchmark domain.Performance) domain.Comparison {
	sharpeDiff := math.NaN()
	if portfolio.SharpeDefined() && benchmark.SharpeDefined() {
		sharpeDiff = portfolio.Sharpe - benchmark.Sharpe
	}

	return domain.Comparison{
		Portfolio:        portfolio,
		Benchmark:        benchmark,
		ExcessReturn:     portfolio.Return - benchmark.Return,
		ExcessVolatility: portfolio.Volatility - benchmark.Volatility,
		SharpeDifference: sharpeDiff,
	}
}
