package rules

import (
	"context"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
)

func init() {
	registerSpendCap()
}

func registerSpendCap() {
	core.Register(core.RuleDefinition{
		RuleSpec: grid.RuleSpec{
			Name:        "spend_cap",
			Granularity: "campaign",
			Helper:      "Flags campaigns whose cost exceeds Max Spend",
			Params: []grid.ParamDefinition{
				enabledParam,
				{Key: "max_spend", Label: "Max Spend", Meta: map[string]string{"type": "currency"}},
			},
			Defaults: map[string]string{
				"enabled":   "yes",
				"max_spend": "1000",
			},
		},
		UniqueKeyPrefix: "spend",
		Callback:        checkSpendCap,
	})
}

func checkSpendCap(ctx context.Context, env core.RuleEnv, settings *grid.ParamValueTable) (*core.Result, error) {
	metrics, err := env.Client().Metrics(ctx, "campaign", []string{"cost"})
	if err != nil {
		return nil, err
	}

	res := &core.Result{Columns: []string{"Cost", "Max Spend"}}
	for _, id := range entityIDs(settings) {
		rec := settings.GetOrDefault(id)
		if !isEnabled(rec) {
			continue
		}
		limit, ok := core.ParseNumber(rec["max_spend"])
		if !ok {
			continue
		}
		cost := metrics[id]["cost"]
		res.Rows = append(res.Rows, core.ResultRow{
			EntityID:  id,
			Values:    []string{core.FormatNumber(cost), core.FormatNumber(limit)},
			Anomalous: cost > limit,
		})
	}
	return res, nil
}
