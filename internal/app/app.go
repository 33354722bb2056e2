// Package app wires configuration into the stores and clients shared by the
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/rulegrid/internal/config"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
	"github.com/JonMunkholm/rulegrid/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenStore connects to PostgreSQL and ensures the schema exists. With no
// database URL it returns an in-memory store when allowMemory is set. The
// returned close func is never nil.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, allowMemory bool) (storage.Store, func(), error) {
	if cfg.URL == "" {
		if !allowMemory {
			return nil, func() {}, fmt.Errorf("DATABASE_URL is required")
		}
		slog.Debug("no database configured, using in-memory store")
		return storage.NewMemory(), func() {}, nil
	}

	pool, err := OpenPool(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}

	store := storage.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, func() {}, err
	}
	return store, pool.Close, nil
}

// OpenPool parses the connection string, applies pool limits and pings the
// database.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// NewReportingClient returns the static entity file source when one is
// configured and the reporting API client otherwise.
func NewReportingClient(cfg config.ReportingConfig) (reporting.Client, error) {
	if cfg.EntityFile != "" {
		src, err := reporting.LoadStaticSource(cfg.EntityFile)
		if err != nil {
			return nil, err
		}
		slog.Info("using static entity source", "file", cfg.EntityFile)
		return src, nil
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("REPORTING_BASE_URL or ENTITY_FILE is required")
	}
	return reporting.NewHTTPClient(cfg.BaseURL, cfg.Token, cfg.Timeout), nil
}
