package grid

import "sort"

// Record maps parameter key to raw cell value.
type Record map[string]string

// Row is one entity's values in parameter declaration order.
type Row struct {
	ID     string
	Values []string
}

// ParamValueTable maps entity ids to parameter records for a single rule.
// The key set is fixed at construction.
type ParamValueTable struct {
	keys   []string
	ids    []string // insertion order, used by Entries
	values map[string]Record
}

// NewParamValueTable builds a table over the given parameter keys.
// If keys is empty, the keys of the first row (sorted) are used.
func NewParamValueTable(keys []string, rows ...Entry) *ParamValueTable {
	if len(keys) == 0 && len(rows) > 0 {
		for k := range rows[0].Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	t := &ParamValueTable{
		keys:   append([]string(nil), keys...),
		values: make(map[string]Record, len(rows)),
	}
	for _, r := range rows {
		t.Set(r.ID, r.Values)
	}
	return t
}

// Entry is an (id, record) pair used to seed a table.
type Entry struct {
	ID     string
	Values Record
}

// Keys returns the parameter keys in declaration order.
func (t *ParamValueTable) Keys() []string {
	return append([]string(nil), t.keys...)
}

// IDs returns every stored entity id in insertion order.
func (t *ParamValueTable) IDs() []string {
	return append([]string(nil), t.ids...)
}

// Has reports whether id has a stored record.
func (t *ParamValueTable) Has(id string) bool {
	_, ok := t.values[id]
	return ok
}

// Get returns the stored record for id. A record of empty strings is
// created and stored on first access to an unknown id.
func (t *ParamValueTable) Get(id string) Record {
	if rec, ok := t.values[id]; ok {
		return rec
	}
	rec := make(Record, len(t.keys))
	for _, k := range t.keys {
		rec[k] = ""
	}
	t.Set(id, rec)
	return rec
}

// GetOrDefault resolves id's values against the default row: a key that is
// absent or empty for id takes the default row's value, and any value still
// missing reads as "". Stored state is not modified.
func (t *ParamValueTable) GetOrDefault(id string) Record {
	own := t.values[id]
	def := t.values[DefaultRow]
	out := make(Record, len(t.keys))
	for _, k := range t.keys {
		if v, ok := own[k]; ok && v != "" {
			out[k] = v
			continue
		}
		out[k] = def[k]
	}
	return out
}

// Set replaces id's record.
func (t *ParamValueTable) Set(id string, rec Record) {
	if _, ok := t.values[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.values[id] = rec
}

// Entries returns every record as ordered values, in insertion order.
func (t *ParamValueTable) Entries() []Row {
	out := make([]Row, 0, len(t.ids))
	for _, id := range t.ids {
		rec := t.values[id]
		vals := make([]string, len(t.keys))
		for i, k := range t.keys {
			vals[i] = rec[k]
		}
		out = append(out, Row{ID: id, Values: vals})
	}
	return out
}

// TransformToParamValues converts a rule grid (header row of labels followed
// by "id, values..." rows) into a ParamValueTable keyed by the declared
// parameters. Each parameter's column is found by matching its label in the
// header; an unmatched label leaves the key absent from every record.
// Rows with an empty identity cell are skipped.
func TransformToParamValues(g Grid, params []ParamDefinition) (*ParamValueTable, error) {
	if len(g) < 2 {
		return nil, &InputShapeError{Rows: len(g), Cols: g.Width()}
	}

	cols := make(map[string]int, len(g[0]))
	for i, label := range g[0] {
		if _, seen := cols[label]; !seen {
			cols[label] = i
		}
	}

	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = p.Key
	}
	t := NewParamValueTable(keys)

	for _, row := range g[1:] {
		id := cellAt(row, 0)
		if id == "" {
			continue
		}
		rec := make(Record, len(params))
		for _, p := range params {
			if i, ok := cols[p.Label]; ok && i < len(row) {
				rec[p.Key] = row[i]
			}
		}
		t.Set(id, rec)
	}
	return t, nil
}
