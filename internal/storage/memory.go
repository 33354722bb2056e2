package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// Memory is a Store kept in process memory. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	grids    map[string]grid.Grid
	results  map[string][]byte
	settings map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		grids:    make(map[string]grid.Grid),
		results:  make(map[string][]byte),
		settings: make(map[string]string),
	}
}

func (m *Memory) ReadGrid(_ context.Context, name string) (grid.Grid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grids[name].Clone(), nil
}

func (m *Memory) WriteGrid(_ context.Context, name string, g grid.Grid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids[name] = g.Clone()
	return nil
}

func (m *Memory) ListGrids(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.grids))
	for name := range m.grids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) SaveResult(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) LoadResult(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.results[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *Memory) Setting(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[name]
	return v, ok, nil
}

func (m *Memory) SetSetting(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[name] = value
	return nil
}

// Atomic runs fn against a staging area over m and copies the staged writes
// into m only when fn succeeds. Writes made by others while fn runs are not
// isolated from it.
func (m *Memory) Atomic(_ context.Context, fn func(tx Store) error) error {
	tx := &memoryTx{base: m, staged: NewMemory()}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, g := range tx.staged.grids {
		m.grids[name] = g
	}
	for key, v := range tx.staged.results {
		m.results[key] = v
	}
	for name, v := range tx.staged.settings {
		m.settings[name] = v
	}
	return nil
}

// memoryTx reads staged writes first and falls through to base.
type memoryTx struct {
	base   *Memory
	staged *Memory
}

func (t *memoryTx) ReadGrid(ctx context.Context, name string) (grid.Grid, error) {
	t.staged.mu.RLock()
	g, ok := t.staged.grids[name]
	t.staged.mu.RUnlock()
	if ok {
		return g.Clone(), nil
	}
	return t.base.ReadGrid(ctx, name)
}

func (t *memoryTx) WriteGrid(ctx context.Context, name string, g grid.Grid) error {
	return t.staged.WriteGrid(ctx, name, g)
}

func (t *memoryTx) ListGrids(ctx context.Context) ([]string, error) {
	base, _ := t.base.ListGrids(ctx)
	staged, _ := t.staged.ListGrids(ctx)
	seen := make(map[string]bool, len(base))
	for _, name := range base {
		seen[name] = true
	}
	for _, name := range staged {
		if !seen[name] {
			base = append(base, name)
		}
	}
	sort.Strings(base)
	return base, nil
}

func (t *memoryTx) SaveResult(ctx context.Context, key string, value []byte) error {
	return t.staged.SaveResult(ctx, key, value)
}

func (t *memoryTx) LoadResult(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := t.staged.LoadResult(ctx, key); ok {
		return v, true, nil
	}
	return t.base.LoadResult(ctx, key)
}

func (t *memoryTx) Setting(ctx context.Context, name string) (string, bool, error) {
	if v, ok, _ := t.staged.Setting(ctx, name); ok {
		return v, true, nil
	}
	return t.base.Setting(ctx, name)
}

func (t *memoryTx) SetSetting(ctx context.Context, name, value string) error {
	return t.staged.SetSetting(ctx, name, value)
}
