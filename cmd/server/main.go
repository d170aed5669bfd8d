/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back office server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, OFFICE_CONFIG file, OFFICE_* env)
  2. Apply command-line overrides
  3. Initialize logger and SQLite store
  4. Wire services, tokens, metrics and the API handler
  5. Start the stats scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    HTTP listen address (overrides OFFICE_ADDR)
  -db      SQLite database path (overrides OFFICE_DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the stats scheduler
  4. Close database connection

EXAMPLES:
  # Run with file database
  OFFICE_JWT_SECRET=change-me ./server -db="./data/office.db"

  # Run a throwaway demo with scenario loaders
  OFFICE_JWT_SECRET=dev OFFICE_ENABLE_SCENARIOS=true ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Every setting and its default
  - api/server.go: Router configuration
  - cmd/add-staff: Bootstrap accounts and issue tokens
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/backoffice/api"
	"github.com/warp/backoffice/config"
	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/metrics"
	"github.com/warp/backoffice/sheet"
	"github.com/warp/backoffice/store/sqlite"
)

func main() {
	// Flags
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("server")

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, sqlite.WithLocation(cfg.Location()))
	if err != nil {
		log.Fatal(ctx, "failed to initialize database", logger.Error(err), logger.String("db_path", cfg.DBPath))
	}
	defer store.Close()

	tokens, err := api.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal(ctx, "failed to configure tokens", logger.Error(err))
	}

	svc := api.NewServices(store, api.Limits{
		PageSize:     cfg.PageSize,
		TopAddresses: cfg.TopAddressLimit,
		TrendMonths:  cfg.TrendMonths,
		Ranking:      cfg.RankingLimit,
	})
	m := metrics.NewManager()

	opts := []api.HandlerOption{
		api.WithLogger(logger.Named("api")),
		api.WithMetrics(m),
		api.WithLocation(cfg.Location()),
		api.WithLabels(sheet.NewLabels(cfg.Locale)),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithHealthCheck(store.Ping),
	}
	if cfg.EnableScenarios {
		log.Warn(ctx, "demo scenario loaders enabled; loading one wipes the database")
		opts = append(opts, api.WithScenarios(store))
	}
	handler := api.NewHandler(svc, tokens, opts...)

	// Background gauge refresh
	scheduler := api.NewStatsScheduler(svc, m, logger.Named("stats"))
	scheduler.Interval = cfg.StatsInterval
	scheduler.Enabled = cfg.StatsInterval > 0
	scheduler.Location = cfg.Location()
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // spreadsheet exports
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info(ctx, "server starting",
			logger.String("addr", cfg.Addr),
			logger.String("db_path", cfg.DBPath),
			logger.String("time_zone", cfg.TimeZone),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, "server failed", logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shutdown", logger.Error(err))
		return
	}

	log.Info(ctx, "server stopped")
}
