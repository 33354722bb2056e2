// # Architecture
//
// This package sits between the pure grid model in internal/grid and the
// transports (HTTP server, CLI, scheduler). It can be used by any of them
// without modification.
//
//   - Rule registry: rules are registered at init time with [Register].
//   - Service: reconcile, launch and migrate against a storage.Store and a
//     reporting.Client.
//   - Dispatcher: maps [Command] names to service operations and serialises
//     them.
//   - Monitor: [StartMonitor] launches configured granularities on a ticker.
//
// # Rule Registry
//
// Each [RuleDefinition] carries the grid declaration and the callback:
//
//	core.Register(core.RuleDefinition{
//	    RuleSpec: grid.RuleSpec{
//	        Name:        "spend_cap",
//	        Granularity: "campaign",
//	        Params:      []grid.ParamDefinition{{Key: "max_spend", Label: "Max Spend"}},
//	        Defaults:    map[string]string{"max_spend": "1000"},
//	    },
//	    UniqueKeyPrefix: "spend",
//	    Callback:        checkSpend,
//	})
//
// # Launch
//
// A launch reconciles the granularity's settings grid, then runs every rule
// at that granularity concurrently. Only after all rules succeed are the
// settings grid, the per-rule result sheets and the per-entity results
// written. A failing rule leaves storage untouched.
package core
