package rules

import (
	"context"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
)

func init() {
	registerCTRFloor()
}

func registerCTRFloor() {
	core.Register(core.RuleDefinition{
		RuleSpec: grid.RuleSpec{
			Name:        "ctr_floor",
			Granularity: "campaign",
			Helper:      "Flags campaigns whose click-through rate falls below Min CTR once they reach Min Impressions",
			Params: []grid.ParamDefinition{
				enabledParam,
				{Key: "min_ctr", Label: "Min CTR", Meta: map[string]string{"type": "percent"}},
				{Key: "min_impressions", Label: "Min Impressions", Meta: map[string]string{"type": "integer"}},
			},
			Defaults: map[string]string{
				"enabled":         "yes",
				"min_ctr":         "1%",
				"min_impressions": "1000",
			},
		},
		UniqueKeyPrefix: "ctr",
		Callback:        checkCTRFloor,
	})
}

func checkCTRFloor(ctx context.Context, env core.RuleEnv, settings *grid.ParamValueTable) (*core.Result, error) {
	metrics, err := env.Client().Metrics(ctx, "campaign", []string{"clicks", "impressions"})
	if err != nil {
		return nil, err
	}

	res := &core.Result{Columns: []string{"Impressions", "CTR", "Min CTR"}}
	for _, id := range entityIDs(settings) {
		rec := settings.GetOrDefault(id)
		if !isEnabled(rec) {
			continue
		}
		floor, ok := core.ParseNumber(rec["min_ctr"])
		if !ok {
			continue
		}
		minImpressions, _ := core.ParseNumber(rec["min_impressions"])

		m := metrics[id]
		impressions := m["impressions"]
		if impressions == 0 || impressions < minImpressions {
			continue
		}
		ctr := m["clicks"] / impressions
		res.Rows = append(res.Rows, core.ResultRow{
			EntityID:  id,
			Values:    []string{core.FormatNumber(impressions), core.FormatPercent(ctr), core.FormatPercent(floor)},
			Anomalous: ctr < floor,
		})
	}
	return res, nil
}
