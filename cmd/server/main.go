// Package main is the entry point for the Frontier portfolio analytics
// service. It wires the price history store, the analysis pipeline and the
// HTTP API, and keeps the analysis cache warm with a nightly refresh job.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/analysis"
	analysishandlers "github.com/aristath/frontier/internal/modules/analysis/handlers"
	"github.com/aristath/frontier/internal/modules/historical"
	historyhandlers "github.com/aristath/frontier/internal/modules/historical/handlers"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("tickers", len(cfg.Tickers)).
		Str("benchmark", cfg.Benchmark).
		Bool("allow_short", cfg.AllowShort).
		Msg("Starting Frontier")

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileHistory,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	repo := historical.NewRepository(historyDB.Conn(), log)
	if err := repo.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}

	cache := analysis.NewCache(cacheDB.Conn(), log)
	if err := cache.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	service := analysis.NewService(cfg, repo, cache, log)

	sched := scheduler.New(log)
	if len(cfg.Tickers) > 0 && cfg.Benchmark != "" {
		if err := sched.AddJob("@daily", scheduler.NewRefreshAnalysisJob(service)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register refresh job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:              log,
		Config:           cfg,
		AnalysisHandlers: analysishandlers.New(service, log),
		HistoryHandlers:  historyhandlers.New(repo, log),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
