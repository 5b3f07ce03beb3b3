// Kestrel - Chargeback analytics for LATAM payment operations.
// Copyright (c) 2025 opensource.finance
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

	"github.com/opensource-finance/kestrel/internal/advisor"
	"github.com/opensource-finance/kestrel/internal/alerts"
	"github.com/opensource-finance/kestrel/internal/analytics"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/fraud"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/sweeper"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
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
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
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

	// Initialize Analytics Engine
	engine := analytics.NewEngine(cfg.Analytics)
	slog.Info("analytics engine initialized",
		"segment_threshold", cfg.Analytics.SegmentRatioThreshold,
	)

	// Initialize Fraud Detector
	detector := fraud.NewDetector(cfg.Analytics)
	slog.Info("fraud detector initialized",
		"repeat_offender_min", cfg.Analytics.RepeatOffenderMinDisputes,
		"bin_window_hours", cfg.Analytics.BINClusterWindowHours,
	)

	// Initialize Alert Evaluator (compiles any custom CEL rules)
	evaluator, err := alerts.NewEvaluator(cfg.Analytics)
	if err != nil {
		slog.Error("failed to initialize alert evaluator", "error", err)
		os.Exit(1)
	}
	slog.Info("alert evaluator initialized",
		"ratio_threshold", cfg.Analytics.MerchantRatioAlertThreshold,
		"custom_rules", len(cfg.Analytics.CustomAlertRules),
	)

	// Initialize Advisor
	adv := advisor.NewAdvisor(cfg.Analytics)
	slog.Info("advisor initialized")

	// Initialize background alert sweeper
	var sweep *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sweep = sweeper.New(repo, busImpl, evaluator, cfg.Sweeper.Interval)
		sweep.Start()
		slog.Info("alert sweeper started", "interval", cfg.Sweeper.Interval)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Repo:      repo,
		Cache:     cacheImpl,
		Bus:       busImpl,
		Engine:    engine,
		Detector:  detector,
		Evaluator: evaluator,
		Advisor:   adv,
		Version:   Version,
		CacheCfg:  cfg.Cache,
	})

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

	// Stop the sweeper first so no publish races the bus teardown
	if sweep != nil {
		sweep.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║      Chargeback Analytics Engine          ║")
	fmt.Println("  ║   Know your disputes before they bite.    ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET /merchants/chargeback-ratio - Ranked merchant ratios")
	fmt.Println("    GET /reason-codes               - Reason code breakdown")
	fmt.Println("    GET /segments/high-risk         - High-risk segments")
	fmt.Println("    GET /trends                     - Chargeback trends")
	fmt.Println("    GET /win-rate                   - Dispute win rates")
	fmt.Println("    GET /fraud-patterns             - Fraud pattern detection")
	fmt.Println("    GET /alerts                     - Active alerts")
	fmt.Println("    GET /recommendations            - Remediation advice")
	fmt.Println("    GET /health                     - Health check")
	fmt.Println()
}
