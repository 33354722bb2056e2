package rules

import (
	"context"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
)

func init() {
	registerConversionDrop()
}

func registerConversionDrop() {
	core.Register(core.RuleDefinition{
		RuleSpec: grid.RuleSpec{
			Name:        "conversion_drop",
			Granularity: "ad_group",
			Helper:      "Flags ad groups whose conversions fell by more than Max Drop against the previous period",
			Params: []grid.ParamDefinition{
				enabledParam,
				{Key: "max_drop", Label: "Max Drop", Meta: map[string]string{"type": "percent"}},
				{Key: "min_baseline", Label: "Min Baseline", Meta: map[string]string{"type": "integer"}},
			},
			Defaults: map[string]string{
				"enabled":      "yes",
				"max_drop":     "50%",
				"min_baseline": "10",
			},
		},
		UniqueKeyPrefix: "convdrop",
		Callback:        checkConversionDrop,
	})
}

func checkConversionDrop(ctx context.Context, env core.RuleEnv, settings *grid.ParamValueTable) (*core.Result, error) {
	metrics, err := env.Client().Metrics(ctx, "ad_group", []string{"conversions", "prev_conversions"})
	if err != nil {
		return nil, err
	}

	res := &core.Result{Columns: []string{"Conversions", "Previous", "Drop"}}
	for _, id := range entityIDs(settings) {
		rec := settings.GetOrDefault(id)
		if !isEnabled(rec) {
			continue
		}
		maxDrop, ok := core.ParseNumber(rec["max_drop"])
		if !ok {
			continue
		}
		baseline, _ := core.ParseNumber(rec["min_baseline"])

		m := metrics[id]
		prev := m["prev_conversions"]
		if prev == 0 || prev < baseline {
			continue
		}
		cur := m["conversions"]
		drop := (prev - cur) / prev
		res.Rows = append(res.Rows, core.ResultRow{
			EntityID:  id,
			Values:    []string{core.FormatNumber(cur), core.FormatNumber(prev), core.FormatPercent(drop)},
			Anomalous: drop > maxDrop,
		})
	}
	return res, nil
}
