// Package storage defines the persistence interfaces used by the monitor
// service and provides in-memory and PostgreSQL implementations.
package storage

import (
	"context"

	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// SettingVersion is the settings key holding the last applied migration
// version.
const SettingVersion = "version"

// GridStore reads and replaces whole named grids. ReadGrid returns a nil
// grid and no error for an unknown name.
type GridStore interface {
	ReadGrid(ctx context.Context, name string) (grid.Grid, error)
	WriteGrid(ctx context.Context, name string, g grid.Grid) error
	ListGrids(ctx context.Context) ([]string, error)
}

// ResultStore is an opaque key-value store for per-entity rule results.
type ResultStore interface {
	SaveResult(ctx context.Context, key string, value []byte) error
	LoadResult(ctx context.Context, key string) ([]byte, bool, error)
}

// SettingsStore holds named configuration values.
type SettingsStore interface {
	Setting(ctx context.Context, name string) (string, bool, error)
	SetSetting(ctx context.Context, name, value string) error
}

// Store is the full persistence surface.
type Store interface {
	GridStore
	ResultStore
	SettingsStore
}

// Transactor is implemented by stores that can group writes. Atomic runs fn
// against a Store whose writes all land when fn returns nil and none land
// when it returns an error. Reads through that Store see its own writes.
type Transactor interface {
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// Atomic runs fn through store's transaction when it is a Transactor and
// directly against store otherwise.
func Atomic(ctx context.Context, store Store, fn func(tx Store) error) error {
	if t, ok := store.(Transactor); ok {
		return t.Atomic(ctx, fn)
	}
	return fn(store)
}

// VersionStore adapts a SettingsStore to migrate.VersionStore.
type VersionStore struct {
	Settings SettingsStore
}

// CurrentVersion returns the stored version, or "" if none is stored.
func (v VersionStore) CurrentVersion(ctx context.Context) (string, error) {
	s, _, err := v.Settings.Setting(ctx, SettingVersion)
	return s, err
}

// SetCurrentVersion stores version.
func (v VersionStore) SetCurrentVersion(ctx context.Context, version string) error {
	return v.Settings.SetSetting(ctx, SettingVersion, version)
}
