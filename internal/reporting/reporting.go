// Package reporting talks to the reporting API that owns the list of
// tracked entities and their performance metrics.
package reporting

import (
	"context"

	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// Metrics maps a metric field (e.g. "cost", "clicks") to its value.
type Metrics map[string]float64

// Client is the reporting surface rules and the reconciliation engine use.
// Rows satisfies grid.EntitySource.
type Client interface {
	Rows(ctx context.Context, granularity string) ([]grid.Entity, error)
	Metrics(ctx context.Context, granularity string, fields []string) (map[string]Metrics, error)
}
