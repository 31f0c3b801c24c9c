// Package optimization solves the constrained portfolio problems: global
// minimum variance, maximum Sharpe (tangency), efficient frontier sampling
// and random-portfolio simulation.
package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// Budget constraint tolerance: every returned weight vector sums to 1 within
// this bound.
const BudgetTolerance = 1e-6

// Solver solves the three mean-variance problems over a vector of expected
// returns and a covariance matrix. Implementations must not mutate inputs.
type Solver interface {
	// Name identifies the solver in logs and errors.
	Name() string
	// MinVariance minimizes w'Σw subject to 1'w = 1.
	MinVariance(mu []float64, sigma *mat.SymDense) ([]float64, error)
	// MaxSharpe maximizes (w'μ - rf) / sqrt(w'Σw) subject to 1'w = 1.
	MaxSharpe(mu []float64, sigma *mat.SymDense, riskFree float64) ([]float64, error)
	// MinVarianceAt minimizes w'Σw subject to 1'w = 1 and w'μ = target.
	MinVarianceAt(mu []float64, sigma *mat.SymDense, target float64) ([]float64, error)
}

// portfolioReturn computes w'μ.
func portfolioReturn(w, mu []float64) float64 {
	var ret float64
	for i := range w {
		ret += w[i] * mu[i]
	}
	return ret
}

// portfolioVariance computes w'Σw.
func portfolioVariance(w []float64, sigma *mat.SymDense) float64 {
	var variance float64
	n := len(w)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return variance
}

// symDenseFrom builds a fresh symmetric matrix from row-major values. Each
// caller gets its own copy so concurrent solves never share scratch state.
func symDenseFrom(values [][]float64) *mat.SymDense {
	n := len(values)
	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sigma.SetSym(i, j, (values[i][j]+values[j][i])/2)
		}
	}
	return sigma
}
