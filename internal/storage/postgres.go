package storage

import (
	"context"
	"encoding/json"
	"fmt"

	db "github.com/JonMunkholm/rulegrid/internal/database"
	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/jackc/pgx/v5"
)

// Postgres is a Store backed by the sheets, rule_results and settings
// tables. Each grid is stored as one JSONB document, so a write replaces the
// whole grid atomically.
type Postgres struct {
	conn db.DBTX
	q    *db.Queries
}

// NewPostgres returns a Store over dbtx (a *pgxpool.Pool or pgx.Tx).
func NewPostgres(dbtx db.DBTX) *Postgres {
	return &Postgres{conn: dbtx, q: db.New(dbtx)}
}

// beginner is satisfied by *pgxpool.Pool, and by pgx.Tx as a savepoint.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Atomic runs fn in one transaction. A store already over a pgx.Tx nests
// fn in a savepoint.
func (p *Postgres) Atomic(ctx context.Context, fn func(tx Store) error) error {
	b, ok := p.conn.(beginner)
	if !ok {
		return fmt.Errorf("begin transaction: %T cannot begin", p.conn)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(&Postgres{conn: tx, q: p.q.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the backing tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if err := p.q.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) ReadGrid(ctx context.Context, name string) (grid.Grid, error) {
	raw, found, err := p.q.GetSheet(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	var g grid.Grid
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode sheet %s: %w", name, err)
	}
	return g, nil
}

func (p *Postgres) WriteGrid(ctx context.Context, name string, g grid.Grid) error {
	if g == nil {
		g = grid.Grid{}
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode sheet %s: %w", name, err)
	}
	if err := p.q.UpsertSheet(ctx, name, raw); err != nil {
		return fmt.Errorf("write sheet %s: %w", name, err)
	}
	return nil
}

func (p *Postgres) ListGrids(ctx context.Context) ([]string, error) {
	names, err := p.q.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return names, nil
}

func (p *Postgres) SaveResult(ctx context.Context, key string, value []byte) error {
	if err := p.q.UpsertResult(ctx, key, value); err != nil {
		return fmt.Errorf("save result %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) LoadResult(ctx context.Context, key string) ([]byte, bool, error) {
	v, found, err := p.q.GetResult(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load result %s: %w", key, err)
	}
	return v, found, nil
}

func (p *Postgres) Setting(ctx context.Context, name string) (string, bool, error) {
	v, found, err := p.q.GetSetting(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", name, err)
	}
	return v, found, nil
}

func (p *Postgres) SetSetting(ctx context.Context, name, value string) error {
	if err := p.q.UpsertSetting(ctx, name, value); err != nil {
		return fmt.Errorf("write setting %s: %w", name, err)
	}
	return nil
}
