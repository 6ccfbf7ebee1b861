// Kestrel - Behavioral risk monitoring for wagering platforms.
// Copyright (c) 2025 opensource.wellness
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/opensource-wellness/kestrel/internal/api"
	"github.com/opensource-wellness/kestrel/internal/assess"
	"github.com/opensource-wellness/kestrel/internal/bus"
	"github.com/opensource-wellness/kestrel/internal/cache"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/ledger"
	"github.com/opensource-wellness/kestrel/internal/report"
	"github.com/opensource-wellness/kestrel/internal/repository"
	"github.com/opensource-wellness/kestrel/internal/rolling"
	"github.com/opensource-wellness/kestrel/internal/screening"
	"github.com/opensource-wellness/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env if present, before reading any environment
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize rolling counter service
	counters := rolling.NewService(repo, cacheImpl)
	slog.Info("rolling counter service initialized")

	// Initialize Screening Engine
	engine, err := screening.NewEngine(cfg.Monitor.Workers)
	if err != nil {
		slog.Error("failed to initialize screening engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := screening.EnsureRules(ctx, repo, engine); err != nil {
		slog.Error("failed to load screen rules", "error", err)
		os.Exit(1)
	}
	slog.Info("screening engine initialized", "rules_count", engine.RulesCount())

	// Initialize services
	ledgerSvc := ledger.NewService(repo, busImpl, counters, logger)
	processor := assess.NewProcessor(repo, counters, engine, cacheImpl, busImpl, logger)
	reports := report.NewGenerator(repo)
	slog.Info("assessment pipeline initialized")

	// Initialize background worker
	asyncWorker := worker.NewWorker(busImpl, processor)
	if err := asyncWorker.Start(cfg.Monitor); err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, ledgerSvc, counters, processor, reports, engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop background worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// loadConfig builds the configuration in three layers: defaults, an
// optional TOML file named by KESTREL_CONFIG, then environment
// overrides.
func loadConfig() (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_MODE") == "production" {
		cfg = domain.ProductionConfig()
		slog.Info("running in production mode")
	}

	if path := os.Getenv("KESTREL_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		slog.Info("config file loaded", "path", path)
	}

	// Environment overrides for the most common deployment knobs
	if host := os.Getenv("KESTREL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("KESTREL_PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Server.Port); err != nil {
			return nil, fmt.Errorf("invalid KESTREL_PORT %q: %w", port, err)
		}
	}
	if dsn := os.Getenv("KESTREL_SQLITE_PATH"); dsn != "" {
		cfg.Repository.SQLitePath = dsn
	}
	if addr := os.Getenv("KESTREL_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if url := os.Getenv("KESTREL_NATS_URL"); url != "" {
		cfg.EventBus.NATSUrl = url
	}

	return cfg, nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==============================================")
	fmt.Println("                 KESTREL")
	fmt.Println("      Behavioral Risk Monitoring Engine")
	fmt.Println("       Watching over every wager.")
	fmt.Println("  ==============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /users                    - Create a user")
	fmt.Println("    POST /wagers                   - Place a wager")
	fmt.Println("    POST /wagers/{id}/settle       - Settle a wager")
	fmt.Println("    POST /users/{id}/assess        - Run a risk assessment")
	fmt.Println("    GET  /users/at-risk            - List users needing attention")
	fmt.Println("    GET  /users/{id}/behaviors     - List detected behaviors")
	fmt.Println("    POST /users/{id}/reports       - Generate a behavior report")
	fmt.Println("    GET  /users/{id}/interventions - List interventions")
	fmt.Println("    GET  /activities               - List alternative activities")
	fmt.Println("    GET  /rules                    - List screen rules")
	fmt.Println("    POST /rules/reload             - Hot-reload screen rules")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println("    GET  /metrics                  - Prometheus metrics")
	fmt.Println()
}
