// Package analysis orchestrates the full pipeline: price history → returns →
// covariance → optimal portfolios → CAPM betas → benchmark comparison.
package analysis

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/capm"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/performance"
	"github.com/aristath/frontier/internal/modules/returns"
	"github.com/aristath/frontier/internal/modules/risk"
)

// Service runs portfolio analyses for the configured universe.
type Service struct {
	cfg        *config.Config
	repo       *historical.Repository
	cleaner    *historical.Cleaner
	calculator *returns.Calculator
	estimator  *risk.Estimator
	optimizer  *optimization.Optimizer
	capm       *capm.Estimator
	comparator *performance.Comparator
	cache      *Cache
	log        zerolog.Logger

	mu     sync.RWMutex
	latest *domain.Report
}

// NewService wires the analysis pipeline. cache may be nil, in which case
// every run computes fresh.
func NewService(cfg *config.Config, repo *historical.Repository, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		repo:       repo,
		cleaner:    historical.NewCleaner(log),
		calculator: returns.NewCalculator(cfg.PeriodsPerYear, log),
		estimator:  risk.NewEstimator(cfg.PeriodsPerYear, false, log),
		optimizer: optimization.New(optimization.Config{
			RiskFreeRate:       cfg.RiskFreeRate,
			AllowShort:         cfg.AllowShort,
			FrontierPoints:     cfg.FrontierPoints,
			MaxConditionNumber: cfg.MaxConditionNumber,
		}, log),
		capm:       capm.NewEstimator(cfg.Benchmark, cfg.RiskFreeRate, cfg.PeriodsPerYear, log),
		comparator: performance.NewComparator(cfg.RiskFreeRate, log),
		cache:      cache,
		log:        log.With().Str("component", "analysis").Logger(),
	}
}

// Run analyzes the configured universe, serving from cache when possible.
func (s *Service) Run() (domain.Report, error) {
	if len(s.cfg.Tickers) == 0 {
		return domain.Report{}, fmt.Errorf("no tickers configured")
	}
	if s.cfg.Benchmark == "" {
		return domain.Report{}, fmt.Errorf("no benchmark configured")
	}

	key := cacheKey(s.cfg.Tickers, s.cfg.Benchmark, s.paramsFingerprint())
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			s.log.Debug().Str("report_id", report.ID).Msg("Using cached analysis report")
			s.setLatest(report)
			return report, nil
		}
	}

	report, err := s.Analyze(s.cfg.Tickers, s.cfg.Benchmark)
	if err != nil {
		return domain.Report{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(key, report, TTLReport); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache analysis report")
		}
	}

	return report, nil
}

// Analyze runs the full pipeline for an explicit universe and benchmark.
func (s *Service) Analyze(symbols []string, benchmark string) (domain.Report, error) {
	started := time.Now()

	// Benchmark shares the date grid with the assets
	all := append(append([]string(nil), symbols...), benchmark)
	table, err := s.repo.GetTable(all, "", "")
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to load price table: %w", err)
	}
	table, cleanStats := s.cleaner.Clean(table)

	rm, err := s.calculator.LogReturns(table)
	if err != nil {
		return domain.Report{}, err
	}
	allStats, err := s.calculator.Statistics(rm)
	if err != nil {
		return domain.Report{}, err
	}

	assetRM, benchReturns := splitBenchmark(rm, benchmark)
	assetStats, benchStats := splitStats(allStats, benchmark)

	cov, err := s.estimator.Covariance(assetRM)
	if err != nil {
		return domain.Report{}, err
	}
	corr := s.estimator.Correlation(cov)

	gmvp, err := s.optimizer.GMVP(assetStats, cov)
	if err != nil {
		return domain.Report{}, err
	}
	tangency, err := s.optimizer.Tangency(assetStats, cov)
	if err != nil {
		return domain.Report{}, err
	}
	frontier, err := s.optimizer.Frontier(assetStats, cov)
	if err != nil {
		return domain.Report{}, err
	}
	monteCarlo, err := s.optimizer.SimulateRandomPortfolios(assetStats, cov, s.cfg.MonteCarloSamples)
	if err != nil {
		return domain.Report{}, err
	}

	betas, err := s.capm.EstimateAll(assetRM, benchReturns)
	if err != nil {
		return domain.Report{}, err
	}

	benchPerf := s.comparator.BenchmarkPerformance(benchStats)
	gmvpPerf, err := s.comparator.Evaluate(gmvp, assetStats, cov)
	if err != nil {
		return domain.Report{}, err
	}
	tangencyPerf, err := s.comparator.Evaluate(tangency, assetStats, cov)
	if err != nil {
		return domain.Report{}, err
	}

	report := domain.Report{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Symbols:     append([]string(nil), symbols...),
		Benchmark:   benchmark,
		Stats:       assetStats,
		Covariance:  cov,
		Correlation: corr,
		GMVP:        gmvp,
		Tangency:    tangency,
		Frontier:    frontier,
		MonteCarlo:  monteCarlo,
		Betas:       betas,
		GMVPResult:  s.comparator.Compare(gmvpPerf, benchPerf),
		TangencyRes: s.comparator.Compare(tangencyPerf, benchPerf),
	}

	s.log.Info().
		Str("report_id", report.ID).
		Int("num_symbols", len(symbols)).
		Int("frontier_points", len(frontier.Points)).
		Int("frontier_skipped", len(frontier.Skipped)).
		Int("missing_filled", cleanStats.MissingFilled).
		Int("outliers_clamped", cleanStats.OutliersClamped).
		Dur("duration", time.Since(started)).
		Msg("Analysis complete")

	s.setLatest(report)

	return report, nil
}

// Latest returns the most recent report produced in this process, if any.
func (s *Service) Latest() (domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.Report{}, false
	}
	return *s.latest, true
}

func (s *Service) setLatest(report domain.Report) {
	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()
}

// paramsFingerprint encodes the config fields that change results.
func (s *Service) paramsFingerprint() string {
	return fmt.Sprintf("%d|%.6f|%t|%d|%d|%.4g",
		s.cfg.PeriodsPerYear,
		s.cfg.RiskFreeRate,
		s.cfg.AllowShort,
		s.cfg.FrontierPoints,
		s.cfg.MonteCarloSamples,
		s.cfg.MaxConditionNumber,
	)
}

// splitBenchmark removes the benchmark column from the return matrix.
func splitBenchmark(rm domain.ReturnMatrix, benchmark string) (domain.ReturnMatrix, []float64) {
	out := domain.ReturnMatrix{Data: make(map[string][]float64, len(rm.Symbols))}
	var bench []float64
	for _, symbol := range rm.Symbols {
		if symbol == benchmark {
			bench = rm.Data[symbol]
			continue
		}
		out.Symbols = append(out.Symbols, symbol)
		out.Data[symbol] = rm.Data[symbol]
	}
	return out, bench
}

// splitStats separates the benchmark's statistics from the assets'.
func splitStats(stats []domain.AssetStats, benchmark string) ([]domain.AssetStats, domain.AssetStats) {
	assets := make([]domain.AssetStats, 0, len(stats))
	var bench domain.AssetStats
	for _, s := range stats {
		if s.Symbol == benchmark {
			bench = s
			continue
		}
		assets = append(assets, s)
	}
	return assets, bench
}
