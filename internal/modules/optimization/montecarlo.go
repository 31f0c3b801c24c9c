package optimization

import (
	"math"
	"math/rand"

	"github.com/aristath/frontier/internal/domain"
)

// SimulateRandomPortfolios samples n random fully-invested long-only
// portfolios and reports return, volatility and Sharpe per sample, plus the
// best-Sharpe and minimum-variance picks. The seed is fixed so repeated runs
// are deterministic.
func (o *Optimizer) SimulateRandomPortfolios(stats []domain.AssetStats, cov domain.CovarianceMatrix, n int) (domain.MonteCarloResult, error) {
	mu, sigma, err := o.prepare(stats, cov)
	if err != nil {
		return domain.MonteCarloResult{}, err
	}

	rng := rand.New(rand.NewSource(42))
	result := domain.MonteCarloResult{
		Samples:     make([]domain.SimulatedPortfolio, 0, n),
		BestSharpe:  domain.SimulatedPortfolio{Sharpe: math.Inf(-1)},
		MinVariance: domain.SimulatedPortfolio{Volatility: math.Inf(1)},
	}

	for s := 0; s < n; s++ {
		w := randomWeights(len(mu), rng)
		ret := portfolioReturn(w, mu)
		vol := math.Sqrt(portfolioVariance(w, sigma))

		sharpe := math.NaN()
		if vol > 0 {
			sharpe = (ret - o.cfg.RiskFreeRate) / vol
		}

		weights := make(domain.WeightVector, len(cov.Symbols))
		for i, symbol := range cov.Symbols {
			weights[symbol] = w[i]
		}

		sp := domain.SimulatedPortfolio{
			Weights:    weights,
			Return:     ret,
			Volatility: vol,
			Sharpe:     sharpe,
		}
		result.Samples = append(result.Samples, sp)

		if sharpe > result.BestSharpe.Sharpe {
			result.BestSharpe = sp
		}
		if vol < result.MinVariance.Volatility {
			result.MinVariance = sp
		}
	}

	return result, nil
}

// randomWeights draws n weights uniformly over the simplex (normalized
// exponential draws, equivalent to a flat Dirichlet).
func randomWeights(n int, rng *rand.Rand) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		w[i] = rng.ExpFloat64()
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
