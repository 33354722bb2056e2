package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Func is one upgrade step. Steps must be idempotent: a crash between a
// step finishing and its version being persisted runs it again.
type Func func(ctx context.Context) error

// VersionStore persists the last applied version.
type VersionStore interface {
	CurrentVersion(ctx context.Context) (string, error)
	SetCurrentVersion(ctx context.Context, version string) error
}

type step struct {
	raw     string
	version Version
	fn      Func
}

// Runner applies registered steps between the stored and target versions.
type Runner struct {
	store VersionStore
	steps []step
}

// NewRunner validates every step version and returns a runner with steps
// sorted ascending.
func NewRunner(store VersionStore, steps map[string]Func) (*Runner, error) {
	r := &Runner{store: store}
	for raw, fn := range steps {
		v, err := ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", raw, err)
		}
		r.steps = append(r.steps, step{raw: raw, version: v, fn: fn})
	}
	sort.Slice(r.steps, func(i, j int) bool {
		return r.steps[i].version.Compare(r.steps[j].version) < 0
	})
	return r, nil
}

// Versions returns the registered step versions in apply order.
func (r *Runner) Versions() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.raw
	}
	return out
}

// Apply runs every step with stored < version <= target, in ascending
// order, persisting each step's version as soon as it succeeds. If no step
// ran and the stored version differs from target, target is stored. It
// returns the versions that were applied.
func (r *Runner) Apply(ctx context.Context, target string) ([]string, error) {
	tv, err := ParseVersion(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	storedRaw, err := r.store.CurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}
	current, err := ParseVersion(storedRaw)
	if err != nil {
		return nil, fmt.Errorf("stored: %w", err)
	}

	var applied []string
	for _, s := range r.steps {
		if s.version.Compare(current) <= 0 || s.version.Compare(tv) > 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		slog.Info("applying migration", "version", s.raw, "from", current.String())
		if err := s.fn(ctx); err != nil {
			return applied, fmt.Errorf("migration %s: %w", s.raw, err)
		}
		if err := r.store.SetCurrentVersion(ctx, s.raw); err != nil {
			return applied, fmt.Errorf("persist version %s: %w", s.raw, err)
		}
		current = s.version
		applied = append(applied, s.raw)
	}

	if len(applied) == 0 && storedRaw != target {
		if err := r.store.SetCurrentVersion(ctx, target); err != nil {
			return nil, fmt.Errorf("persist version %s: %w", target, err)
		}
		slog.Info("version updated without migrations", "from", storedRaw, "to", target)
	}
	return applied, nil
}
