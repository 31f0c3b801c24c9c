// Package domain contains the pure value objects shared by the analytics
// modules. Everything here is produced by pure functions of its inputs; no
// entity owns or mutates another.
package domain

import (
	"math"
	"time"
)

// PricePoint is a single observation in a price series.
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// PriceSeries is an ordered price history for one asset. Dates are strictly
// increasing and prices positive.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// PriceTable holds aligned price histories: one shared date grid, one price
// column per symbol. All columns have len(Dates) entries.
type PriceTable struct {
	Dates   []string             `json:"dates"`
	Symbols []string             `json:"symbols"`
	Data    map[string][]float64 `json:"data"`
}

// NewPriceTable aligns per-asset series onto a single date grid. All series
// must share the exact same grid; any length or date mismatch is an
// AlignmentError.
func NewPriceTable(series []PriceSeries) (PriceTable, error) {
	table := PriceTable{Data: make(map[string][]float64)}
	if len(series) == 0 {
		return table, nil
	}

	ref := series[0]
	table.Dates = make([]string, len(ref.Points))
	for i, p := range ref.Points {
		table.Dates[i] = p.Date
	}

	for _, s := range series {
		if len(s.Points) != len(table.Dates) {
			return PriceTable{}, &AlignmentError{
				Symbol:  s.Symbol,
				Want:    len(table.Dates),
				Got:     len(s.Points),
				Against: ref.Symbol,
			}
		}
		col := make([]float64, len(s.Points))
		for i, p := range s.Points {
			if p.Date != table.Dates[i] {
				return PriceTable{}, &AlignmentError{
					Symbol:  s.Symbol,
					Date:    p.Date,
					Against: ref.Symbol,
				}
			}
			col[i] = p.Close
		}
		table.Symbols = append(table.Symbols, s.Symbol)
		table.Data[s.Symbol] = col
	}

	return table, nil
}

// ReturnMatrix holds per-period log returns, one column per symbol, all
// columns equal length (len = observations).
type ReturnMatrix struct {
	Symbols []string             `json:"symbols"`
	Data    map[string][]float64 `json:"data"`
}

// Observations returns the number of return observations per column.
func (rm ReturnMatrix) Observations() int {
	for _, col := range rm.Data {
		return len(col)
	}
	return 0
}

// Column returns the return series for a symbol, or nil if absent.
func (rm ReturnMatrix) Column(symbol string) []float64 {
	return rm.Data[symbol]
}

// AssetStats holds annualized statistics for one asset.
type AssetStats struct {
	Symbol       string  `json:"symbol"`
	AnnualReturn float64 `json:"annual_return"`
	AnnualVol    float64 `json:"annual_vol"`
}

// CovarianceMatrix is the annualized sample covariance of asset log returns.
// Symmetric by construction; Values[i][j] is the covariance between
// Symbols[i] and Symbols[j].
type CovarianceMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// At returns the covariance between the i-th and j-th symbols.
func (c CovarianceMatrix) At(i, j int) float64 {
	return c.Values[i][j]
}

// Variance returns the diagonal entry for the i-th symbol.
func (c CovarianceMatrix) Variance(i int) float64 {
	return c.Values[i][i]
}

// Dim returns the number of assets.
func (c CovarianceMatrix) Dim() int {
	return len(c.Symbols)
}

// CorrelationMatrix is the covariance normalized by per-asset standard
// deviations. Diagonal entries are 1.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// WeightVector maps each symbol to its portfolio weight. For a fully
// invested portfolio the weights sum to 1; long-only configurations also
// require each weight >= 0.
type WeightVector map[string]float64

// Sum returns the total invested fraction.
func (w WeightVector) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// FrontierPoint is one sampled point on the efficient frontier.
type FrontierPoint struct {
	TargetReturn float64      `json:"target_return"`
	Return       float64      `json:"return"`
	Volatility   float64      `json:"volatility"`
	Weights      WeightVector `json:"weights"`
	// Efficient is false for points on the lower branch (return below the
	// running maximum as volatility increases).
	Efficient bool `json:"efficient"`
}

// FrontierResult is the sampled frontier plus diagnostics for targets that
// could not be attained under the active constraint set.
type FrontierResult struct {
	Points  []FrontierPoint `json:"points"`
	Skipped []SkippedTarget `json:"skipped,omitempty"`
}

// SkippedTarget records one infeasible frontier target.
type SkippedTarget struct {
	TargetReturn float64 `json:"target_return"`
	Reason       string  `json:"reason"`
}

// BetaEstimate holds the CAPM regression result for one asset against the
// benchmark.
type BetaEstimate struct {
	Symbol           string  `json:"symbol"`
	Benchmark        string  `json:"benchmark"`
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`
	RSquared         float64 `json:"r_squared"`
	ResidualVariance float64 `json:"residual_variance"`
}

// Performance holds annualized realized portfolio figures. Sharpe is NaN
// when volatility is exactly zero (undefined, not an error).
type Performance struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// SharpeDefined reports whether the Sharpe ratio is a usable number.
func (p Performance) SharpeDefined() bool {
	return !math.IsNaN(p.Sharpe) && !math.IsInf(p.Sharpe, 0)
}

// Comparison relates a portfolio's performance to the benchmark's.
type Comparison struct {
	Portfolio        Performance `json:"portfolio"`
	Benchmark        Performance `json:"benchmark"`
	ExcessReturn     float64     `json:"excess_return"`
	ExcessVolatility float64     `json:"excess_volatility"`
	SharpeDifference float64     `json:"sharpe_difference"`
}

// SimulatedPortfolio is one random portfolio from the Monte Carlo sweep.
type SimulatedPortfolio struct {
	Weights    WeightVector `json:"weights"`
	Return     float64      `json:"return"`
	Volatility float64      `json:"volatility"`
	Sharpe     float64      `json:"sharpe"`
}

// MonteCarloResult summarizes a random-portfolio simulation.
type MonteCarloResult struct {
	Samples     []SimulatedPortfolio `json:"samples"`
	BestSharpe  SimulatedPortfolio   `json:"best_sharpe"`
	MinVariance SimulatedPortfolio   `json:"min_variance"`
}

// Report is the full output of one analysis run.
type Report struct {
	ID          string                  `json:"id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Symbols     []string                `json:"symbols"`
	Benchmark   string                  `json:"benchmark"`
	Stats       []AssetStats            `json:"stats"`
	Covariance  CovarianceMatrix        `json:"covariance"`
	Correlation CorrelationMatrix       `json:"correlation"`
	GMVP        WeightVector            `json:"gmvp"`
	Tangency    WeightVector            `json:"tangency"`
	Frontier    FrontierResult          `json:"frontier"`
	MonteCarlo  MonteCarloResult        `json:"monte_carlo"`
	Betas       []BetaEstimate          `json:"betas"`
	GMVPResult  Comparison              `json:"gmvp_vs_benchmark"`
	TangencyRes Comparison              `json:"tangency_vs_benchmark"`
}
