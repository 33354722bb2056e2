// Package admin provides administrative operations over stored sheets.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/storage"
)

// ResetTimeout is the maximum duration for reset operations.
const ResetTimeout = 30 * time.Second

const resultsPrefix = "results:"

// Reset clears stored sheets. Settings grids are never touched.
type Reset struct {
	Store storage.GridStore
}

type resetFn func(ctx context.Context) error

// ResetResults empties every stored result sheet, or only the named rules'
// sheets when rules is non-empty. It returns the sheets cleared.
// Per-entity result records are left in place; the next launch overwrites them.
func (r *Reset) ResetResults(ctx context.Context, rules ...string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	names, err := r.Store.ListGrids(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}

	wanted := make(map[string]bool, len(rules))
	for _, rule := range rules {
		wanted[resultsPrefix+rule] = true
	}

	var (
		cleared []string
		resets  []resetFn
	)
	for _, name := range names {
		if !strings.HasPrefix(name, resultsPrefix) {
			continue
		}
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		cleared = append(cleared, name)
		resets = append(resets, func(ctx context.Context) error {
			return r.Store.WriteGrid(ctx, name, grid.Grid{})
		})
	}

	if err := r.runResets(ctx, resets); err != nil {
		return nil, err
	}
	slog.Info("result sheets reset", "count", len(cleared))
	return cleared, nil
}

func (r *Reset) runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
