package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/rulegrid/internal/app"
	"github.com/JonMunkholm/rulegrid/internal/config"
	"github.com/JonMunkholm/rulegrid/internal/core"
	_ "github.com/JonMunkholm/rulegrid/internal/core/rules" // Register all rules
	"github.com/JonMunkholm/rulegrid/internal/logging"
	"github.com/JonMunkholm/rulegrid/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"monitor_enabled", cfg.Monitor.Enabled,
		"app_version", cfg.Migration.AppVersion,
	)

	ctx := context.Background()
	store, closeStore, err := app.OpenStore(ctx, cfg.Database, false)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	client, err := app.NewReportingClient(cfg.Reporting)
	if err != nil {
		slog.Error("failed to create reporting client", "error", err)
		os.Exit(1)
	}

	service := core.NewService(store, client)
	dispatcher := core.NewDispatcher(service, cfg.Migration.AppVersion)

	// Log registered rules
	slog.Info("rules registered",
		"count", core.RuleCount(),
		"granularities", len(core.Granularities()),
	)
	for _, g := range core.Granularities() {
		slog.Debug("granularity", "name", g, "rules", len(core.ByGranularity(g)))
	}

	// Bring stored sheets up to the running version before serving
	migrateCtx := core.ContextWithTrigger(ctx, "startup")
	if _, err := dispatcher.Dispatch(migrateCtx, core.CommandMigrate, core.Request{}); err != nil {
		slog.Error("startup migration failed", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, dispatcher, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Monitor.Enabled {
		go core.StartMonitor(jobCtx, dispatcher, core.MonitorConfig{
			Granularities: cfg.Monitor.Granularities,
			Interval:      cfg.Monitor.Interval,
			RunTimeout:    cfg.Monitor.RunTimeout,
		})
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
