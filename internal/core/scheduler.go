package core

// scheduler.go runs the monitor: a periodic launch of every configured
// granularity through the dispatcher.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// It logs failures of individual launches but keeps running.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// MonitorConfig holds configuration for the monitor scheduler.
type MonitorConfig struct {
	Granularities []string      // Granularities launched each cycle; empty means all registered
	Interval      time.Duration // How often to run (default: 1h)
	RunTimeout    time.Duration // Upper bound on one launch (default: 10m)
}

// StartMonitor launches every configured granularity immediately, then
// every Interval, until ctx is cancelled.
func StartMonitor(ctx context.Context, d *Dispatcher, cfg MonitorConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}

	slog.Info("monitor scheduler started",
		"granularities", cfg.Granularities,
		"interval", cfg.Interval.String(),
	)

	runMonitorCycle(ctx, d, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor scheduler stopped")
			return
		case <-ticker.C:
			runMonitorCycle(ctx, d, cfg)
		}
	}
}

// runMonitorCycle performs one launch per granularity.
func runMonitorCycle(ctx context.Context, d *Dispatcher, cfg MonitorConfig) {
	granularities := cfg.Granularities
	if len(granularities) == 0 {
		granularities = Granularities()
	}

	start := time.Now()
	ctx = ContextWithTrigger(ctx, "scheduler")
	failed := 0

	for _, g := range granularities {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
		resp, err := d.Dispatch(runCtx, CommandLaunch, Request{Granularity: g})
		cancel()

		if err != nil {
			failed++
			var missing *MissingConfigurationError
			if errors.As(err, &missing) {
				slog.Warn("monitor launch skipped", "granularity", g, "missing_setting", missing.Name)
				continue
			}
			slog.Error("monitor launch failed", "granularity", g, "error", err)
			continue
		}
		slog.Info("monitor launch completed",
			"granularity", g,
			"pass_id", resp.Report.PassID,
			"anomalies", resp.Report.Anomalies,
		)
	}

	slog.Info("monitor cycle completed",
		"granularities", len(granularities),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
