package rules

import (
	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// enabledParam is declared by every rule so operators can switch a rule
// off per entity.
var enabledParam = grid.ParamDefinition{
	Key:   "enabled",
	Label: "Enabled",
	Meta:  map[string]string{"type": "bool"},
}

// entityIDs returns the entity ids of a settings table, sentinel rows excluded.
func entityIDs(settings *grid.ParamValueTable) []string {
	ids := settings.IDs()
	out := ids[:0]
	for _, id := range ids {
		if id == grid.DefaultRow || id == grid.IDRow {
			continue
		}
		out = append(out, id)
	}
	return out
}

// isEnabled reads the Enabled setting; a blank or unreadable cell counts as on.
func isEnabled(rec grid.Record) bool {
	on, ok := core.ParseBool(rec[enabledParam.Key])
	return !ok || on
}
