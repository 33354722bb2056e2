package reporting

import (
	"context"
	"fmt"
	"os"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"gopkg.in/yaml.v3"
)

// StaticEntity is one entity in a static source file.
type StaticEntity struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Metrics Metrics `yaml:"metrics"`
}

// StaticSource serves entities and metrics from a fixed, in-memory set.
// It is used for local runs and tests.
//
// File format:
//
//	granularities:
//	  campaign:
//	    - id: "101"
//	      name: Spring Sale
//	      metrics: {cost: 120.5, clicks: 30, impressions: 1000}
type StaticSource struct {
	Granularities map[string][]StaticEntity `yaml:"granularities"`
}

// LoadStaticSource reads a YAML static source file.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity file: %w", err)
	}
	return ParseStaticSource(data)
}

// ParseStaticSource parses YAML static source content.
func ParseStaticSource(data []byte) (*StaticSource, error) {
	var src StaticSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("parse entity file: %w", err)
	}
	for g, entities := range src.Granularities {
		seen := make(map[string]bool, len(entities))
		for i, e := range entities {
			if e.ID == "" {
				return nil, fmt.Errorf("granularity %s: entity %d has no id", g, i)
			}
			if seen[e.ID] {
				return nil, fmt.Errorf("granularity %s: duplicate entity id %q", g, e.ID)
			}
			seen[e.ID] = true
		}
	}
	return &src, nil
}

// Rows returns the entities at granularity in file order.
func (s *StaticSource) Rows(_ context.Context, granularity string) ([]grid.Entity, error) {
	entities := s.Granularities[granularity]
	out := make([]grid.Entity, len(entities))
	for i, e := range entities {
		out[i] = grid.Entity{ID: e.ID, Name: e.Name}
	}
	return out, nil
}

// Metrics returns the requested fields for every entity at granularity.
// Missing fields are omitted.
func (s *StaticSource) Metrics(_ context.Context, granularity string, fields []string) (map[string]Metrics, error) {
	out := make(map[string]Metrics)
	for _, e := range s.Granularities[granularity] {
		m := make(Metrics, len(fields))
		for _, f := range fields {
			if v, ok := e.Metrics[f]; ok {
				m[f] = v
			}
		}
		out[e.ID] = m
	}
	return out, nil
}
