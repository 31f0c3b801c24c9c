package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
)

// ClosedFormSolver solves the equality-constrained problems analytically via
// a Cholesky factorization of Σ. Weights may be negative, so this solver is
// only selected when short selling is allowed.
type ClosedFormSolver struct{}

// NewClosedFormSolver creates an analytic solver.
func NewClosedFormSolver() *ClosedFormSolver {
	return &ClosedFormSolver{}
}

// Name implements Solver.
func (s *ClosedFormSolver) Name() string { return "closed_form" }

// factorize produces a Cholesky factorization of sigma, failing with
// IllConditionedCovarianceError when the matrix is not positive definite.
func (s *ClosedFormSolver) factorize(sigma *mat.SymDense) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, &domain.IllConditionedCovarianceError{
			ConditionNumber: math.Inf(1),
			Threshold:       0,
		}
	}
	return &chol, nil
}

// solve returns Σ⁻¹b.
func (s *ClosedFormSolver) solve(chol *mat.Cholesky, b []float64) ([]float64, error) {
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(len(b), b)); err != nil {
		return nil, &domain.IllConditionedCovarianceError{
			ConditionNumber: math.Inf(1),
			Threshold:       0,
		}
	}
	out := make([]float64, len(b))
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// MinVariance implements the GMVP closed form: w = Σ⁻¹1 / (1'Σ⁻¹1).
func (s *ClosedFormSolver) MinVariance(mu []float64, sigma *mat.SymDense) ([]float64, error) {
	chol, err := s.factorize(sigma)
	if err != nil {
		return nil, err
	}

	ones := make([]float64, len(mu))
	for i := range ones {
		ones[i] = 1
	}

	x, err := s.solve(chol, ones)
	if err != nil {
		return nil, err
	}

	return normalize(x)
}

// MaxSharpe implements the tangency closed form:
// w = Σ⁻¹(μ - rf·1) / (1'Σ⁻¹(μ - rf·1)).
func (s *ClosedFormSolver) MaxSharpe(mu []float64, sigma *mat.SymDense, riskFree float64) ([]float64, error) {
	chol, err := s.factorize(sigma)
	if err != nil {
		return nil, err
	}

	excess := make([]float64, len(mu))
	for i := range excess {
		excess[i] = mu[i] - riskFree
	}

	x, err := s.solve(chol, excess)
	if err != nil {
		return nil, err
	}

	return normalize(x)
}

// MinVarianceAt solves the two-constraint problem with the classic
// Lagrangian: with A = 1'Σ⁻¹1, B = 1'Σ⁻¹μ, C = μ'Σ⁻¹μ and D = AC - B²,
// the minimizer is w = [(C - Bt)·Σ⁻¹1 + (At - B)·Σ⁻¹μ] / D.
func (s *ClosedFormSolver) MinVarianceAt(mu []float64, sigma *mat.SymDense, target float64) ([]float64, error) {
	chol, err := s.factorize(sigma)
	if err != nil {
		return nil, err
	}

	n := len(mu)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	invOnes, err := s.solve(chol, ones)
	if err != nil {
		return nil, err
	}
	invMu, err := s.solve(chol, mu)
	if err != nil {
		return nil, err
	}

	var a, b, c float64
	for i := 0; i < n; i++ {
		a += invOnes[i]
		b += invMu[i]
		c += mu[i] * invMu[i]
	}
	d := a*c - b*b
	if math.Abs(d) < 1e-12 {
		return nil, &domain.InfeasibleTargetError{
			TargetReturn: target,
			Reason:       "expected returns are collinear with the budget constraint",
		}
	}

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = ((c-b*target)*invOnes[i] + (a*target-b)*invMu[i]) / d
	}

	return w, nil
}

// normalize scales x so its entries sum to 1.
func normalize(x []float64) ([]float64, error) {
	var sum float64
	for _, v := range x {
		sum += v
	}
	if math.Abs(sum) < 1e-12 {
		return nil, &domain.ConvergenceError{
			Strategy:   "closed_form",
			Iterations: 0,
			Residual:   math.Abs(sum),
			Status:     "degenerate normalization",
		}
	}
	w := make([]float64, len(x))
	for i := range x {
		w[i] = x[i] / sum
	}
	return w, nil
}
