package rules

import (
	"context"
	"sort"
	"testing"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
	"github.com/google/go-cmp/cmp"
)

type testEnv struct {
	client reporting.Client
}

func (e testEnv) GetRule(name string) (*grid.ParamValueTable, error) { return nil, core.ErrUnknownRule }
func (e testEnv) Client() reporting.Client                           { return e.client }
func (e testEnv) AccountID() string                                  { return "acct-test" }

func source(granularity string, entities ...reporting.StaticEntity) testEnv {
	return testEnv{client: &reporting.StaticSource{
		Granularities: map[string][]reporting.StaticEntity{granularity: entities},
	}}
}

// settingsFor builds a settings table for rule from its compiled-in
// defaults plus per-entity overrides.
func settingsFor(t *testing.T, rule string, overrides map[string]grid.Record) *grid.ParamValueTable {
	t.Helper()
	def, ok := core.Get(rule)
	if !ok {
		t.Fatalf("rule %s not registered", rule)
	}
	table := grid.NewParamValueTable(def.Keys())
	table.Set(grid.DefaultRow, grid.Record(def.Defaults))
	for _, id := range sortedKeys(overrides) {
		table.Set(id, overrides[id])
	}
	return table
}

func sortedKeys(m map[string]grid.Record) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestRulesRegistered(t *testing.T) {
	for _, name := range []string{"spend_cap", "ctr_floor", "conversion_drop"} {
		def, ok := core.Get(name)
		if !ok {
			t.Errorf("rule %s not registered", name)
			continue
		}
		if err := def.Validate(); err != nil {
			t.Errorf("rule %s: %v", name, err)
		}
	}
}

func TestSpendCap(t *testing.T) {
	env := source("campaign",
		reporting.StaticEntity{ID: "1", Metrics: reporting.Metrics{"cost": 1500}},
		reporting.StaticEntity{ID: "2", Metrics: reporting.Metrics{"cost": 1500}},
		reporting.StaticEntity{ID: "3", Metrics: reporting.Metrics{"cost": 900}},
		reporting.StaticEntity{ID: "4", Metrics: reporting.Metrics{"cost": 5000}},
	)
	settings := settingsFor(t, "spend_cap", map[string]grid.Record{
		"1": {},
		"2": {"max_spend": "$2,000"},
		"3": {},
		"4": {"enabled": "no"},
	})

	res, err := checkSpendCap(context.Background(), env, settings)
	if err != nil {
		t.Fatalf("checkSpendCap: %v", err)
	}
	want := []core.ResultRow{
		{EntityID: "1", Values: []string{"1500", "1000"}, Anomalous: true},
		{EntityID: "2", Values: []string{"1500", "2000"}, Anomalous: false},
		{EntityID: "3", Values: []string{"900", "1000"}, Anomalous: false},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCTRFloor(t *testing.T) {
	env := source("campaign",
		reporting.StaticEntity{ID: "1", Metrics: reporting.Metrics{"clicks": 5, "impressions": 2000}},
		reporting.StaticEntity{ID: "2", Metrics: reporting.Metrics{"clicks": 50, "impressions": 2000}},
		reporting.StaticEntity{ID: "3", Metrics: reporting.Metrics{"clicks": 0, "impressions": 10}},
	)
	settings := settingsFor(t, "ctr_floor", map[string]grid.Record{
		"1": {},
		"2": {},
		"3": {},
	})

	res, err := checkCTRFloor(context.Background(), env, settings)
	if err != nil {
		t.Fatalf("checkCTRFloor: %v", err)
	}
	want := []core.ResultRow{
		{EntityID: "1", Values: []string{"2000", "0.25%", "1.00%"}, Anomalous: true},
		{EntityID: "2", Values: []string{"2000", "2.50%", "1.00%"}, Anomalous: false},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestConversionDrop(t *testing.T) {
	env := source("ad_group",
		reporting.StaticEntity{ID: "a", Metrics: reporting.Metrics{"conversions": 10, "prev_conversions": 40}},
		reporting.StaticEntity{ID: "b", Metrics: reporting.Metrics{"conversions": 30, "prev_conversions": 40}},
		reporting.StaticEntity{ID: "c", Metrics: reporting.Metrics{"conversions": 0, "prev_conversions": 2}},
	)
	settings := settingsFor(t, "conversion_drop", map[string]grid.Record{
		"a": {},
		"b": {"max_drop": "20%"},
		"c": {},
	})

	res, err := checkConversionDrop(context.Background(), env, settings)
	if err != nil {
		t.Fatalf("checkConversionDrop: %v", err)
	}
	want := []core.ResultRow{
		{EntityID: "a", Values: []string{"10", "40", "75.00%"}, Anomalous: true},
		{EntityID: "b", Values: []string{"30", "40", "25.00%"}, Anomalous: true},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestEntityIDsSkipsSentinels(t *testing.T) {
	table := grid.NewParamValueTable([]string{"k"})
	table.Set(grid.DefaultRow, grid.Record{"k": "1"})
	table.Set("x", grid.Record{})
	if diff := cmp.Diff([]string{"x"}, entityIDs(table)); diff != "" {
		t.Errorf("entityIDs mismatch (-want +got):\n%s", diff)
	}
}
