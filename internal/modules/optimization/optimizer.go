package optimization

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/risk"
)

// Config holds the optimizer's numerical policy.
type Config struct {
	RiskFreeRate       float64
	AllowShort         bool
	FrontierPoints     int
	MaxConditionNumber float64
	MaxIterations      int
}

// Optimizer computes optimal weight vectors from per-asset statistics and a
// covariance matrix. The solver strategy follows the constraint set: closed
// form when shorting is allowed, penalty QP for long-only.
type Optimizer struct {
	cfg    Config
	solver Solver
	log    zerolog.Logger
}

// New creates an optimizer and selects the solver for the configured
// constraint set.
func New(cfg Config, log zerolog.Logger) *Optimizer {
	var solver Solver
	if cfg.AllowShort {
		solver = NewClosedFormSolver()
	} else {
		solver = NewPenaltyQPSolver(cfg.MaxIterations)
	}
	if cfg.FrontierPoints < 2 {
		cfg.FrontierPoints = 2
	}

	return &Optimizer{
		cfg:    cfg,
		solver: solver,
		log: log.With().
			Str("component", "optimizer").
			Str("solver", solver.Name()).
			Logger(),
	}
}

// Solver exposes the active strategy, mainly for logging and tests.
func (o *Optimizer) Solver() Solver { return o.solver }

// GMVP computes the global minimum variance portfolio.
func (o *Optimizer) GMVP(stats []domain.AssetStats, cov domain.CovarianceMatrix) (domain.WeightVector, error) {
	mu, sigma, err := o.prepare(stats, cov)
	if err != nil {
		return nil, err
	}

	w, err := o.solver.MinVariance(mu, sigma)
	if err != nil {
		return nil, fmt.Errorf("gmvp: %w", err)
	}

	return o.toWeights(cov.Symbols, w)
}

// Tangency computes the maximum Sharpe ratio portfolio.
func (o *Optimizer) Tangency(stats []domain.AssetStats, cov domain.CovarianceMatrix) (domain.WeightVector, error) {
	mu, sigma, err := o.prepare(stats, cov)
	if err != nil {
		return nil, err
	}

	w, err := o.solver.MaxSharpe(mu, sigma, o.cfg.RiskFreeRate)
	if err != nil {
		return nil, fmt.Errorf("tangency: %w", err)
	}

	return o.toWeights(cov.Symbols, w)
}

// Frontier samples the efficient frontier from the GMVP's return up to the
// best single-asset expected return. Infeasible targets are skipped and
// reported in the result; convergence failures abort.
func (o *Optimizer) Frontier(stats []domain.AssetStats, cov domain.CovarianceMatrix) (domain.FrontierResult, error) {
	mu, sigma, err := o.prepare(stats, cov)
	if err != nil {
		return domain.FrontierResult{}, err
	}

	gmvp, err := o.solver.MinVariance(mu, sigma)
	if err != nil {
		return domain.FrontierResult{}, fmt.Errorf("frontier anchor: %w", err)
	}
	_, maxMu := muRange(mu)

	return o.sampleFrontier(cov, mu, portfolioReturn(gmvp, mu), maxMu)
}

// FrontierRange samples the frontier over an explicit target-return range.
func (o *Optimizer) FrontierRange(stats []domain.AssetStats, cov domain.CovarianceMatrix, lo, hi float64) (domain.FrontierResult, error) {
	mu, _, err := o.prepare(stats, cov)
	if err != nil {
		return domain.FrontierResult{}, err
	}
	return o.sampleFrontier(cov, mu, lo, hi)
}

// sampleFrontier solves one minimum-variance problem per target return. The
// per-target solves are independent and run in parallel; each worker builds
// its own covariance copy and results are collected by target index, so
// completion order never matters.
func (o *Optimizer) sampleFrontier(cov domain.CovarianceMatrix, mu []float64, lo, hi float64) (domain.FrontierResult, error) {
	n := o.cfg.FrontierPoints
	targets := make([]float64, n)
	for i := range targets {
		targets[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}

	points := make([]*domain.FrontierPoint, n)
	skipped := make([]*domain.SkippedTarget, n)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			sigma := symDenseFrom(cov.Values)

			w, err := o.solver.MinVarianceAt(mu, sigma, target)
			if err != nil {
				var infeasible *domain.InfeasibleTargetError
				if errors.As(err, &infeasible) {
					skipped[i] = &domain.SkippedTarget{
						TargetReturn: infeasible.TargetReturn,
						Reason:       infeasible.Reason,
					}
					return nil
				}
				return fmt.Errorf("frontier target %.6f: %w", target, err)
			}

			weights, err := o.toWeights(cov.Symbols, w)
			if err != nil {
				return fmt.Errorf("frontier target %.6f: %w", target, err)
			}

			points[i] = &domain.FrontierPoint{
				TargetReturn: target,
				Return:       portfolioReturn(w, mu),
				Volatility:   math.Sqrt(math.Max(portfolioVariance(w, sigma), 0)),
				Weights:      weights,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.FrontierResult{}, err
	}

	result := domain.FrontierResult{}
	for _, p := range points {
		if p != nil {
			result.Points = append(result.Points, *p)
		}
	}
	for _, s := range skipped {
		if s != nil {
			result.Skipped = append(result.Skipped, *s)
		}
	}

	markEfficient(result.Points)

	o.log.Debug().
		Int("points", len(result.Points)).
		Int("skipped", len(result.Skipped)).
		Float64("from", lo).
		Float64("to", hi).
		Msg("Sampled efficient frontier")

	return result, nil
}

// markEfficient flags the upper branch: walking the points in order of
// increasing volatility, a point is efficient when its return is not below
// any lower-volatility point's return.
func markEfficient(points []domain.FrontierPoint) {
	byVol := make([]*domain.FrontierPoint, len(points))
	for i := range points {
		byVol[i] = &points[i]
	}
	sort.Slice(byVol, func(i, j int) bool { return byVol[i].Volatility < byVol[j].Volatility })

	best := math.Inf(-1)
	for _, p := range byVol {
		if p.Return >= best {
			p.Efficient = true
			best = p.Return
		}
	}
}

// prepare validates inputs, checks matrix conditioning and assembles the mu
// vector ordered by the covariance symbols.
func (o *Optimizer) prepare(stats []domain.AssetStats, cov domain.CovarianceMatrix) ([]float64, *mat.SymDense, error) {
	n := cov.Dim()
	if n == 0 {
		return nil, nil, &domain.InsufficientDataError{Observations: 0, Required: 1}
	}
	if len(stats) != n {
		return nil, nil, fmt.Errorf("statistics cover %d assets, covariance matrix covers %d", len(stats), n)
	}

	byCov := make(map[string]float64, len(stats))
	for _, s := range stats {
		byCov[s.Symbol] = s.AnnualReturn
	}

	mu := make([]float64, n)
	for i, symbol := range cov.Symbols {
		ret, ok := byCov[symbol]
		if !ok {
			return nil, nil, fmt.Errorf("missing expected return for %s", symbol)
		}
		mu[i] = ret
	}

	if cond := risk.ConditionNumber(cov); cond > o.cfg.MaxConditionNumber {
		return nil, nil, &domain.IllConditionedCovarianceError{
			ConditionNumber: cond,
			Threshold:       o.cfg.MaxConditionNumber,
		}
	}

	return mu, symDenseFrom(cov.Values), nil
}

// toWeights maps an ordered weight slice back onto symbols, enforcing the
// budget constraint.
func (o *Optimizer) toWeights(symbols []string, w []float64) (domain.WeightVector, error) {
	weights := make(domain.WeightVector, len(symbols))
	var sum float64
	for i, symbol := range symbols {
		weights[symbol] = w[i]
		sum += w[i]
	}
	if math.Abs(sum-1.0) > BudgetTolerance {
		return nil, &domain.ConvergenceError{
			Strategy:   o.solver.Name(),
			Iterations: o.cfg.MaxIterations,
			Residual:   math.Abs(sum - 1.0),
			Status:     "budget constraint violated",
		}
	}
	return weights, nil
}
