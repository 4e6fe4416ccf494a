// Tariffkit - Travel insurance quotation in one request.
// Copyright (c) 2025 reisewerk
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reisewerk/tariffkit/internal/advisor"
	"github.com/reisewerk/tariffkit/internal/api"
	"github.com/reisewerk/tariffkit/internal/bus"
	"github.com/reisewerk/tariffkit/internal/cache"
	"github.com/reisewerk/tariffkit/internal/docgen"
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/quote"
	"github.com/reisewerk/tariffkit/internal/repository"
	"github.com/reisewerk/tariffkit/internal/tariffquery"
	"github.com/reisewerk/tariffkit/internal/worker"
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
	if os.Getenv("TARIFFKIT_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting tariffkit",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("TARIFFKIT_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

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

	// Load the rate schedule: workbook first if present, the database
	// copy is authoritative afterwards
	tables, err := loadRateSchedule(ctx, cfg, repo)
	if err != nil {
		slog.Error("failed to load rate schedule", "error", err)
		os.Exit(1)
	}
	slog.Info("rate schedule loaded", "tables", len(tables))

	// Initialize Quote Service
	service := quote.NewService(tables, repo, cacheImpl, busImpl, Version)

	// Initialize Tariff Query Engine
	queryEngine, err := tariffquery.NewEngine()
	if err != nil {
		slog.Error("failed to initialize tariff query engine", "error", err)
		os.Exit(1)
	}

	// Load saved queries from database (no hardcoded defaults - configure via API)
	if err := loadQueriesFromDatabase(ctx, repo, queryEngine); err != nil {
		slog.Error("failed to load tariff queries", "error", err)
		os.Exit(1)
	}
	slog.Info("tariff query engine initialized", "query_count", len(queryEngine.GetLoadedQueries()))

	// Initialize Advisor (disabled without reference text and API key)
	adv := advisor.New(cfg.Advisor)
	slog.Info("advisor initialized", "enabled", adv.Enabled())

	// Initialize Offer Document Generator
	docs := docgen.NewGenerator(cfg.Document)
	slog.Info("document generator initialized", "available", docs.Available())

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("TARIFFKIT_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, service)

		// Agency IDs to process (comma-separated, empty means global)
		agencyIDs := []string{}
		if envAgencies := os.Getenv("TARIFFKIT_AGENCIES"); envAgencies != "" {
			for _, id := range strings.Split(envAgencies, ",") {
				if id = strings.TrimSpace(id); id != "" {
					agencyIDs = append(agencyIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			AgencyIDs:   agencyIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "agency_count", len(agencyIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, service, queryEngine, adv, docs, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("tariffkit is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("tariffkit shutdown complete")
}

// applyEnvOverrides adjusts the config from environment variables so a
// container deployment never needs a config file.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("TARIFFKIT_WORKBOOK"); v != "" {
		cfg.Schedule.WorkbookPath = v
	}
	if v := os.Getenv("TARIFFKIT_TEMPLATE"); v != "" {
		cfg.Document.TemplatePath = v
	}
	if v := os.Getenv("TARIFFKIT_REFERENCE"); v != "" {
		cfg.Advisor.ReferencePath = v
	}
	if v := os.Getenv("TARIFFKIT_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("TARIFFKIT_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("TARIFFKIT_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("TARIFFKIT_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}

// loadRateSchedule ingests the xlsx workbook when present, persists it,
// and otherwise serves the schedule last saved to the database.
func loadRateSchedule(ctx context.Context, cfg *domain.Config, repo domain.Repository) (domain.RateTableSet, error) {
	path := cfg.Schedule.WorkbookPath
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			tables, err := repository.LoadWorkbook(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load workbook %s: %w", path, err)
			}
			for _, table := range tables {
				if err := repo.SaveRateTable(ctx, table); err != nil {
					slog.Warn("failed to persist rate table", "product", table.Product, "error", err)
				}
			}
			slog.Info("rate workbook ingested", "path", path, "tables", len(tables))
			return tables, nil
		}
		slog.Info("rate workbook not found, using database copy", "path", path)
	}

	tables, err := repo.ListRateTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate tables from database: %w", err)
	}
	if len(tables) == 0 {
		slog.Warn("no rate tables loaded - ingest a workbook or POST /tables/reload after seeding")
	}
	return tables, nil
}

// GlobalAgencyID is used for saved queries that apply to all agencies.
const GlobalAgencyID = "*"

// loadQueriesFromDatabase loads saved tariff queries into the engine.
// All queries must be configured via POST /tariffs/queries - no hardcoded defaults.
func loadQueriesFromDatabase(ctx context.Context, repo domain.Repository, engine *tariffquery.Engine) error {
	queries, err := repo.ListTariffQueries(ctx, GlobalAgencyID)
	if err != nil {
		slog.Warn("failed to list tariff queries from database", "error", err)
		return nil // Start with empty queries - they can be added via API
	}

	if len(queries) > 0 {
		slog.Info("loading tariff queries from database", "count", len(queries))
		return engine.ReloadQueries(queries)
	}

	slog.Info("no tariff queries in database - configure via POST /tariffs/queries")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              ✈  TARIFFKIT                 ║")
	fmt.Println("  ║     Travel Insurance Quotation Engine     ║")
	fmt.Println("  ║      Every tariff in one request.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /quote                  - Compute a tariff comparison")
	fmt.Println("    GET  /quotes/{id}            - Get quote by ID")
	fmt.Println("    POST /quotes/{id}/document   - Generate the offer document")
	fmt.Println("    GET  /tables                 - List loaded rate tables")
	fmt.Println("    POST /tables/reload          - Hot-reload the rate schedule")
	fmt.Println("    POST /tariffs/query          - Query a rate table")
	fmt.Println("    GET  /tariffs/queries        - List saved queries")
	fmt.Println("    POST /tariffs/queries        - Create a saved query")
	fmt.Println("    POST /tariffs/queries/reload - Hot-reload saved queries")
	fmt.Println("    POST /advice                 - Ask the tariff advisor")
	fmt.Println("    GET  /health                 - Health check")
	fmt.Println()
}
