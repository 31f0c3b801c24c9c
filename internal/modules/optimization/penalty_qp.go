package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/frontier/internal/domain"
)

const (
	defaultMaxIterations = 1000
	penaltyWeight        = 1000.0

	// returnTolerance bounds the accepted gap between a frontier target and
	// the achieved return; larger gaps mean the constraint set made the
	// target unattainable.
	returnTolerance = 5e-3
)

// PenaltyQPSolver solves the long-only problems numerically: equality
// constraints become quadratic penalty terms and the resulting smooth
// objective is minimized with BFGS, falling back to Nelder-Mead. Weights are
// projected onto [0, 1] and renormalized to the budget.
type PenaltyQPSolver struct {
	maxIterations int
}

// NewPenaltyQPSolver creates a numerical solver with a bounded iteration
// budget.
func NewPenaltyQPSolver(maxIterations int) *PenaltyQPSolver {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &PenaltyQPSolver{maxIterations: maxIterations}
}

// Name implements Solver.
func (s *PenaltyQPSolver) Name() string { return "penalty_qp" }

// MinVariance minimizes w'Σw with the budget penalty.
func (s *PenaltyQPSolver) MinVariance(mu []float64, sigma *mat.SymDense) ([]float64, error) {
	n := len(mu)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectUnitBox(x)
			obj := portfolioVariance(xp, sigma)
			sum := sumOf(xp)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectUnitBox(x)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xp[j]
				}
			}
			addBudgetPenaltyGradient(grad, xp)
		},
	}

	x, err := s.minimize(problem, n, "min_variance")
	if err != nil {
		return nil, err
	}
	return s.finish(x), nil
}

// MaxSharpe maximizes (w'μ - rf) / sqrt(w'Σw) by minimizing its negation
// with the budget penalty.
func (s *PenaltyQPSolver) MaxSharpe(mu []float64, sigma *mat.SymDense, riskFree float64) ([]float64, error) {
	n := len(mu)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectUnitBox(x)
			ret := portfolioReturn(xp, mu)
			stdDev := math.Sqrt(math.Max(portfolioVariance(xp, sigma), 1e-10))
			sum := sumOf(xp)

			obj := -(ret - riskFree) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectUnitBox(x)
			ret := portfolioReturn(xp, mu)
			variance := math.Max(portfolioVariance(xp, sigma), 1e-10)
			stdDev := math.Sqrt(variance)

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * sigma.At(i, j) * xp[j]
				}
				grad[i] = -mu[i]/stdDev + (ret-riskFree)*dVariance/(2*stdDev*variance)
			}
			addBudgetPenaltyGradient(grad, xp)
		},
	}

	x, err := s.minimize(problem, n, "max_sharpe")
	if err != nil {
		return nil, err
	}
	return s.finish(x), nil
}

// MinVarianceAt minimizes w'Σw with budget and target-return penalties. The
// achieved return must land within returnTolerance of the target, otherwise
// the target is reported infeasible under the long-only constraint.
func (s *PenaltyQPSolver) MinVarianceAt(mu []float64, sigma *mat.SymDense, target float64) ([]float64, error) {
	n := len(mu)

	// Long-only portfolios cannot return more than the best asset or less
	// than the worst; reject unattainable targets before solving.
	minMu, maxMu := muRange(mu)
	if target < minMu-returnTolerance || target > maxMu+returnTolerance {
		return nil, &domain.InfeasibleTargetError{
			TargetReturn: target,
			Reason:       "outside attainable return range for long-only weights",
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectUnitBox(x)
			ret := portfolioReturn(xp, mu)
			sum := sumOf(xp)

			obj := portfolioVariance(xp, sigma)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += penaltyWeight * (ret - target) * (ret - target)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := projectUnitBox(x)
			ret := portfolioReturn(xp, mu)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xp[j]
				}
				grad[i] += 2 * penaltyWeight * (ret - target) * mu[i]
			}
			addBudgetPenaltyGradient(grad, xp)
		},
	}

	x, err := s.minimize(problem, n, "efficient_return")
	if err != nil {
		return nil, err
	}
	w := s.finish(x)

	if achieved := portfolioReturn(w, mu); math.Abs(achieved-target) > returnTolerance {
		return nil, &domain.InfeasibleTargetError{
			TargetReturn: target,
			Reason:       "constraints prevented reaching the target return",
		}
	}

	return w, nil
}

// minimize runs BFGS with a Nelder-Mead fallback, as both handle the penalty
// objective; failure to converge within the iteration budget is a
// ConvergenceError, never a silently returned iterate.
func (s *PenaltyQPSolver) minimize(problem optimize.Problem, n int, strategy string) ([]float64, error) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	settings := &optimize.Settings{MajorIterations: s.maxIterations}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, &domain.ConvergenceError{
				Strategy:   strategy,
				Iterations: s.maxIterations,
				Residual:   math.NaN(),
				Status:     err.Error(),
			}
		}
		if !converged(result.Status) {
			return nil, &domain.ConvergenceError{
				Strategy:   strategy,
				Iterations: result.Stats.MajorIterations,
				Residual:   result.F,
				Status:     result.Status.String(),
			}
		}
	}

	return result.X, nil
}

// finish projects onto [0,1], clamps residual negatives and renormalizes so
// the weights sum to exactly 1.
func (s *PenaltyQPSolver) finish(x []float64) []float64 {
	w := projectUnitBox(x)
	for i := range w {
		w[i] = math.Max(0, w[i])
	}
	sum := sumOf(w)
	if sum <= 0 {
		// Degenerate projection; fall back to equal weights.
		for i := range w {
			w[i] = 1.0 / float64(len(w))
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.FunctionThreshold:
		return true
	}
	return false
}

func projectUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

func addBudgetPenaltyGradient(grad, x []float64) {
	sum := sumOf(x)
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}

func sumOf(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}

func muRange(mu []float64) (float64, float64) {
	minMu, maxMu := math.Inf(1), math.Inf(-1)
	for _, v := range mu {
		minMu = math.Min(minMu, v)
		maxMu = math.Max(maxMu, v)
	}
	return minMu, maxMu
}
