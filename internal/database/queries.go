package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const getSheet = `SELECT cells FROM sheets WHERE name = $1`

// GetSheet returns the raw JSON cells of a sheet. found is false when the
// sheet does not exist.
func (q *Queries) GetSheet(ctx context.Context, name string) (cells []byte, found bool, err error) {
	err = q.db.QueryRow(ctx, getSheet, name).Scan(&cells)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cells, true, nil
}

const upsertSheet = `
INSERT INTO sheets (name, cells, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (name) DO UPDATE SET cells = EXCLUDED.cells, updated_at = now()`

// UpsertSheet replaces a sheet's cells in a single statement.
func (q *Queries) UpsertSheet(ctx context.Context, name string, cells []byte) error {
	_, err := q.db.Exec(ctx, upsertSheet, name, string(cells))
	return err
}

const listSheets = `SELECT name FROM sheets ORDER BY name`

// ListSheets returns every sheet name, sorted.
func (q *Queries) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listSheets)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

const getResult = `SELECT value FROM rule_results WHERE key = $1`

// GetResult returns a stored result value. found is false when absent.
func (q *Queries) GetResult(ctx context.Context, key string) (value []byte, found bool, err error) {
	err = q.db.QueryRow(ctx, getResult, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

const upsertResult = `
INSERT INTO rule_results (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// UpsertResult stores a result value under key.
func (q *Queries) UpsertResult(ctx context.Context, key string, value []byte) error {
	_, err := q.db.Exec(ctx, upsertResult, key, string(value))
	return err
}

const getSetting = `SELECT value FROM settings WHERE name = $1`

// GetSetting returns a named setting. found is false when absent.
func (q *Queries) GetSetting(ctx context.Context, name string) (value string, found bool, err error) {
	err = q.db.QueryRow(ctx, getSetting, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

const upsertSetting = `
INSERT INTO settings (name, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// UpsertSetting stores a named setting.
func (q *Queries) UpsertSetting(ctx context.Context, name, value string) error {
	_, err := q.db.Exec(ctx, upsertSetting, name, value)
	return err
}
