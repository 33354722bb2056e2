package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
)

// RuleEnv is the capability set handed to a rule callback.
type RuleEnv interface {
	// GetRule returns the resolved settings of another registered rule.
	GetRule(name string) (*grid.ParamValueTable, error)
	// Client returns the reporting client for metric lookups.
	Client() reporting.Client
	// AccountID returns the reporting account being monitored.
	AccountID() string
}

// RuleFunc evaluates a rule over every entity of its granularity.
type RuleFunc func(ctx context.Context, env RuleEnv, settings *grid.ParamValueTable) (*Result, error)

// RuleDefinition contains everything needed to reconcile and run a rule.
type RuleDefinition struct {
	grid.RuleSpec

	// UniqueKeyPrefix namespaces the rule's saved results: each entity's
	// result is stored under "<prefix>-<entity id>".
	UniqueKeyPrefix string

	Callback RuleFunc
}

// ResultKey returns the result store key for entityID.
func (d RuleDefinition) ResultKey(entityID string) string {
	return d.UniqueKeyPrefix + "-" + entityID
}

// Validate checks the declaration once, at registration.
func (d RuleDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if d.Name == grid.IdentityBlock {
		return fmt.Errorf("rule name %q is reserved", d.Name)
	}
	if d.Granularity == "" {
		return fmt.Errorf("rule %s: no granularity", d.Name)
	}
	if d.UniqueKeyPrefix == "" {
		return fmt.Errorf("rule %s: no unique key prefix", d.Name)
	}
	if d.Callback == nil {
		return fmt.Errorf("rule %s: no callback", d.Name)
	}

	keys := make(map[string]bool, len(d.Params))
	labels := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Key == "" || p.Label == "" {
			return fmt.Errorf("rule %s: parameter with empty key or label", d.Name)
		}
		if keys[p.Key] {
			return fmt.Errorf("rule %s: duplicate parameter key %q", d.Name, p.Key)
		}
		if labels[p.Label] {
			return fmt.Errorf("rule %s: duplicate parameter label %q", d.Name, p.Label)
		}
		keys[p.Key] = true
		labels[p.Label] = true
	}
	for k := range d.Defaults {
		if !keys[k] {
			return fmt.Errorf("rule %s: default for undeclared parameter %q", d.Name, k)
		}
	}
	return nil
}

// ResultRow is one entity's outcome. Values align with Result.Columns.
type ResultRow struct {
	EntityID  string
	Values    []string
	Anomalous bool
}

// Result is what a rule callback produces.
type Result struct {
	Columns []string
	Rows    []ResultRow
}

// LaunchReport summarizes one launch pass.
type LaunchReport struct {
	PassID      string         `json:"passId"`
	Granularity string         `json:"granularity"`
	Rules       int            `json:"rules"`
	Entities    int            `json:"entities"`
	Anomalies   map[string]int `json:"anomalies"`
	DroppedRows int            `json:"droppedRows"`
}

// RuleInfo is the listing view of a registered rule.
type RuleInfo struct {
	Name        string            `json:"name"`
	Granularity string            `json:"granularity"`
	Helper      string            `json:"helper,omitempty"`
	Params      []ParamInfo       `json:"params"`
	Defaults    map[string]string `json:"defaults"`
}

// ParamInfo is the listing view of a rule parameter.
type ParamInfo struct {
	Key   string            `json:"key"`
	Label string            `json:"label"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Info returns the listing view of d.
func (d RuleDefinition) Info() RuleInfo {
	params := make([]ParamInfo, len(d.Params))
	for i, p := range d.Params {
		params[i] = ParamInfo{Key: p.Key, Label: p.Label, Meta: p.Meta}
	}
	return RuleInfo{
		Name:        d.Name,
		Granularity: d.Granularity,
		Helper:      d.Helper,
		Params:      params,
		Defaults:    d.Defaults,
	}
}
