package domain

import "fmt"

// AlignmentError indicates that an asset's price series does not share the
// common date grid. Data-shape errors abort the whole computation.
type AlignmentError struct {
	Symbol  string
	Against string
	Date    string
	Want    int
	Got     int
}

func (e *AlignmentError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("misaligned series for %s: date %s does not match grid of %s", e.Symbol, e.Date, e.Against)
	}
	return fmt.Sprintf("misaligned series for %s: %d observations, grid of %s has %d", e.Symbol, e.Got, e.Against, e.Want)
}

// InsufficientDataError indicates too few observations for an estimator.
type InsufficientDataError struct {
	Symbol       string
	Observations int
	Required     int
}

func (e *InsufficientDataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("insufficient data for %s: %d observations, need at least %d", e.Symbol, e.Observations, e.Required)
	}
	return fmt.Sprintf("insufficient data: %d observations, need at least %d", e.Observations, e.Required)
}

// IllConditionedCovarianceError indicates a singular or near-singular
// covariance matrix that would produce degenerate weight vectors.
type IllConditionedCovarianceError struct {
	ConditionNumber float64
	Threshold       float64
}

func (e *IllConditionedCovarianceError) Error() string {
	return fmt.Sprintf("covariance matrix is ill-conditioned: condition number %.4g exceeds threshold %.4g", e.ConditionNumber, e.Threshold)
}

// ConvergenceError indicates a solver exhausted its iteration budget without
// reaching a solution. It carries enough context to decide whether to retry
// with relaxed tolerances.
type ConvergenceError struct {
	Strategy   string
	Iterations int
	Residual   float64
	Status     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s optimization did not converge after %d iterations (residual %.4g, status %s)", e.Strategy, e.Iterations, e.Residual, e.Status)
}

// DegenerateBenchmarkError indicates a zero-variance benchmark series, which
// makes the CAPM regression undefined.
type DegenerateBenchmarkError struct {
	Benchmark string
}

func (e *DegenerateBenchmarkError) Error() string {
	return fmt.Sprintf("benchmark %s has zero excess-return variance, regression undefined", e.Benchmark)
}

// InfeasibleTargetError indicates a frontier target return outside the
// attainable range under the active constraint set. It is recovered locally:
// the point is skipped and recorded, the rest of the frontier proceeds.
type InfeasibleTargetError struct {
	TargetReturn float64
	Reason       string
}

func (e *InfeasibleTargetError) Error() string {
	return fmt.Sprintf("target return %.6f is infeasible: %s", e.TargetReturn, e.Reason)
}
