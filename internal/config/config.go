// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults pinned from the reference configuration.
const (
	DefaultPeriodsPerYear     = 252
	DefaultFrontierPoints     = 50
	DefaultMonteCarloSamples  = 5000
	DefaultMaxConditionNumber = 1e12
)

// Config holds application configuration. It is immutable after Load and
// passed explicitly into each component; there is no ambient state.
type Config struct {
	Tickers            []string // Analysis universe
	Benchmark          string   // Benchmark symbol for CAPM and comparisons
	PeriodsPerYear     int      // Trading periods per year (252 for daily data)
	RiskFreeRate       float64  // Annualized risk-free rate
	AllowShort         bool     // Permit negative weights (closed-form solver)
	FrontierPoints     int      // Number of sampled frontier targets
	MonteCarloSamples  int      // Random portfolios per simulation
	MaxConditionNumber float64  // Covariance condition-number guard

	DataDir  string // Base directory for databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool
}

// Load reads configuration from the environment (.env file honored when
// present) and applies defaults.
func Load() (*Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Tickers:            splitList(getEnv("FRONTIER_TICKERS", "")),
		Benchmark:          getEnv("FRONTIER_BENCHMARK", ""),
		PeriodsPerYear:     getEnvInt("FRONTIER_PERIODS_PER_YEAR", DefaultPeriodsPerYear),
		RiskFreeRate:       getEnvFloat("FRONTIER_RISK_FREE_RATE", 0.0),
		AllowShort:         getEnvBool("FRONTIER_ALLOW_SHORT", false),
		FrontierPoints:     getEnvInt("FRONTIER_POINTS", DefaultFrontierPoints),
		MonteCarloSamples:  getEnvInt("FRONTIER_MC_SAMPLES", DefaultMonteCarloSamples),
		MaxConditionNumber: getEnvFloat("FRONTIER_MAX_CONDITION", DefaultMaxConditionNumber),
		DataDir:            getEnv("FRONTIER_DATA_DIR", "./data"),
		Port:               getEnvInt("FRONTIER_PORT", 8090),
		LogLevel:           getEnv("FRONTIER_LOG_LEVEL", "info"),
		DevMode:            getEnvBool("FRONTIER_DEV_MODE", false),
	}

	absDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	cfg.DataDir = absDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods per year must be positive, got %d", c.PeriodsPerYear)
	}
	if c.FrontierPoints < 2 {
		return fmt.Errorf("frontier points must be at least 2, got %d", c.FrontierPoints)
	}
	if c.MaxConditionNumber <= 0 {
		return fmt.Errorf("max condition number must be positive, got %g", c.MaxConditionNumber)
	}
	if c.MonteCarloSamples < 0 {
		return fmt.Errorf("monte carlo samples must not be negative, got %d", c.MonteCarloSamples)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
