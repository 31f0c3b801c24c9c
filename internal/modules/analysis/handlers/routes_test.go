package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/aristath/frontier/internal/modules/historical"
)

func testRouter(t *testing.T, cfg *config.Config) *chi.Mux {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := historical.NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.Init())

	rng := rand.New(rand.NewSource(11))
	symbols := append(append([]string(nil), cfg.Tickers...), cfg.Benchmark)
	for s, symbol := range symbols {
		price := 100.0
		points := make([]domain.PricePoint, 0, 28)
		for d := 0; d < 28; d++ {
			price *= math.Exp(0.0003*float64(s+1) + 0.01*rng.NormFloat64())
			points = append(points, domain.PricePoint{
				Date:  fmt.Sprintf("2024-01-%02d", d+1),
				Close: price,
			})
		}
		require.NoError(t, repo.SaveSeries(domain.PriceSeries{Symbol: symbol, Points: points}))
	}

	service := analysis.NewService(cfg, repo, nil, zerolog.Nop())

	r := chi.NewRouter()
	New(service, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func analysisConfig() *config.Config {
	return &config.Config{
		Tickers:            []string{"AAA", "BBB"},
		Benchmark:          "SPY",
		PeriodsPerYear:     252,
		RiskFreeRate:       0.0,
		FrontierPoints:     10,
		MonteCarloSamples:  100,
		MaxConditionNumber: 1e12,
	}
}

func TestHandleRun(t *testing.T) {
	router := testRouter(t, analysisConfig())

	req := httptest.NewRequest(http.MethodPost, "/analysis/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, []string{"AAA", "BBB"}, report.Symbols)
	assert.InDelta(t, 1.0, report.GMVP.Sum(), 1e-6)
}

func TestHandleLatest_BeforeAnyRun(t *testing.T) {
	router := testRouter(t, analysisConfig())

	req := httptest.NewRequest(http.MethodGet, "/analysis/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLatest_AfterRun(t *testing.T) {
	router := testRouter(t, analysisConfig())

	run := httptest.NewRequest(http.MethodPost, "/analysis/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, run)
	require.Equal(t, http.StatusOK, rec.Code)

	latest := httptest.NewRequest(http.MethodGet, "/analysis/latest", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, latest)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRun_NoUniverse(t *testing.T) {
	cfg := analysisConfig()
	cfg.Tickers = nil
	router := testRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/analysis/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&domain.AlignmentError{Symbol: "AAA"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&domain.InsufficientDataError{Symbol: "AAA"}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.IllConditionedCovarianceError{}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.ConvergenceError{}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.DegenerateBenchmarkError{}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}
