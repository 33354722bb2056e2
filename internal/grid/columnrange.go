package grid

import (
	"context"
	"fmt"
	"sort"
)

// RuleColumnRange owns the coordinate space of one settings grid: which row
// each entity occupies and which column block each rule occupies. It is
// built fresh from a grid snapshot on every pass.
//
// Rows are stored per block keyed by entity id. An entity's position is
// taken from rowIndex only, so pruning an entity from rowIndex removes it
// from every block at once.
type RuleColumnRange struct {
	rowIndex map[string]int
	nextRow  int

	blocks        []string                       // block order, IdentityBlock first
	rows          map[string]map[string][]string // block -> entity id -> cells
	helpers       map[string]string
	granularities map[string]string

	// columnOrders keeps label -> column position per rule so a rule's
	// columns stay put when its declaration order changes.
	columnOrders map[string]map[string]int
}

// NewRuleColumnRange returns an empty range seeded with the ID and default
// sentinel rows.
func NewRuleColumnRange() *RuleColumnRange {
	return &RuleColumnRange{
		rowIndex:      map[string]int{IDRow: 0, DefaultRow: 1},
		nextRow:       2,
		blocks:        []string{IdentityBlock},
		rows:          map[string]map[string][]string{IdentityBlock: {}},
		helpers:       make(map[string]string),
		granularities: make(map[string]string),
		columnOrders:  make(map[string]map[string]int),
	}
}

// FromGrid is shorthand for NewRuleColumnRange followed by SetRules.
func FromGrid(g Grid) *RuleColumnRange {
	r := NewRuleColumnRange()
	r.SetRules(g)
	return r
}

type blockSpan struct {
	name       string
	start, end int
}

// SetRules loads a raw grid. Row 0 is split into column blocks: a non-empty
// cell that differs from the current block's name starts a new block, and a
// leading blank run is the identity block. Every following row is assigned
// into each block keyed by its identity cell. A second row with a blank
// identity cell is read as the helper row.
func (r *RuleColumnRange) SetRules(g Grid) {
	if len(g) == 0 {
		return
	}
	width := g.Width()
	if width == 0 {
		return
	}

	header := g[0]
	first := cellAt(header, 0)
	if first == "" {
		first = IdentityBlock
	}
	spans := []blockSpan{{name: first, start: 0}}
	for c := 1; c < width; c++ {
		h := cellAt(header, c)
		cur := &spans[len(spans)-1]
		if h == "" || h == cur.name {
			continue
		}
		cur.end = c
		spans = append(spans, blockSpan{name: h, start: c})
	}
	spans[len(spans)-1].end = width

	data := g[1:]
	if len(data) > 0 && cellAt(data[0], 0) == "" {
		for _, sp := range spans {
			if h := cellAt(data[0], sp.start); h != "" {
				r.helpers[sp.name] = h
			}
		}
		data = data[1:]
	}

	for _, row := range data {
		id := cellAt(row, 0)
		for _, sp := range spans {
			r.SetRow(sp.name, id, span(row, sp.start, sp.end))
		}
	}
}

// SetRow stores cells as entity id's row in block. An unknown id is given
// the next unused row index. An empty id is ignored.
func (r *RuleColumnRange) SetRow(block, id string, cells []string) {
	if id == "" {
		return
	}
	if _, ok := r.rowIndex[id]; !ok {
		r.rowIndex[id] = r.nextRow
		r.nextRow++
	}
	rows, ok := r.rows[block]
	if !ok {
		rows = make(map[string][]string)
		r.rows[block] = rows
	}
	if !r.hasBlock(block) {
		r.blocks = append(r.blocks, block)
	}
	rows[id] = append([]string(nil), cells...)
}

func (r *RuleColumnRange) hasBlock(block string) bool {
	for _, b := range r.blocks {
		if b == block {
			return true
		}
	}
	return false
}

// Rule returns the rows of a rule block prefixed with each row's identity
// cell, for ids present in both the rule block and the identity block,
// ordered by row index. It returns nil when the rule has no rows.
func (r *RuleColumnRange) Rule(name string) Grid {
	rows := r.rows[name]
	if len(rows) == 0 {
		return nil
	}
	ident := r.rows[IdentityBlock]
	var out Grid
	for _, id := range r.sortedIDs() {
		cells, ok := rows[id]
		if !ok {
			continue
		}
		idRow, ok := ident[id]
		if !ok {
			continue
		}
		out = append(out, append([]string{cellAt(idRow, 0)}, cells...))
	}
	return out
}

// ParamValues returns the structured settings of rule.
func (r *RuleColumnRange) ParamValues(rule RuleSpec) (*ParamValueTable, error) {
	g := r.Rule(rule.Name)
	if len(g) < 2 {
		// A rule that has not been reconciled yet has no rows; fall back
		// to its compiled-in defaults.
		t := NewParamValueTable(rule.Keys())
		rec := make(Record, len(rule.Params))
		for _, p := range rule.Params {
			rec[p.Key] = rule.Defaults[p.Key]
		}
		t.Set(DefaultRow, rec)
		return t, nil
	}
	return TransformToParamValues(g, rule.Params)
}

// FillRuleValues reconciles one rule against the stored grid and the
// authoritative entity list:
//
//   - stored values are re-read by the previously stored header labels,
//     so renamed or removed parameters drop out;
//   - the ID row gets the current labels, the default row keeps stored
//     values and falls back to the rule's compiled-in defaults;
//   - every authoritative entity gets its stored values or blanks;
//   - row index entries not touched by this call are pruned.
func (r *RuleColumnRange) FillRuleValues(ctx context.Context, rule RuleSpec, src EntitySource) error {
	if rule.Defaults == nil {
		return &MissingDefaultsError{Rule: rule.Name}
	}

	entities, err := src.Rows(ctx, rule.Granularity)
	if err != nil {
		return fmt.Errorf("fetch %s entities for rule %s: %w", rule.Granularity, rule.Name, err)
	}

	labels := r.columnOrder(rule)
	keyByLabel := make(map[string]string, len(rule.Params))
	for _, p := range rule.Params {
		keyByLabel[p.Label] = p.Key
	}
	current := r.currentSettings(rule.Name)

	r.granularities[rule.Name] = rule.Granularity
	if rule.Helper != "" {
		r.helpers[rule.Name] = rule.Helper
	} else {
		delete(r.helpers, rule.Name)
	}

	touched := map[string]bool{IDRow: true, DefaultRow: true}

	r.SetRow(IdentityBlock, IDRow, []string{IDRow, NameHeader(rule.Granularity)})
	r.SetRow(rule.Name, IDRow, labels)

	defaults := make([]string, len(labels))
	for i, label := range labels {
		if v, ok := current[DefaultRow][label]; ok {
			defaults[i] = v
		} else {
			defaults[i] = rule.Defaults[keyByLabel[label]]
		}
	}
	r.SetRow(IdentityBlock, DefaultRow, []string{DefaultRow, r.displayName(DefaultRow)})
	r.SetRow(rule.Name, DefaultRow, defaults)

	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		touched[e.ID] = true
		vals := make([]string, len(labels))
		for i, label := range labels {
			vals[i] = current[e.ID][label]
		}
		r.SetRow(rule.Name, e.ID, vals)
		r.SetRow(IdentityBlock, e.ID, []string{e.ID, e.Name})
	}

	for id := range r.rowIndex {
		if !touched[id] {
			delete(r.rowIndex, id)
		}
	}
	return nil
}

// columnOrder returns rule's labels in column order. The first call for a
// rule seeds the order from the stored header (labels still declared, in
// stored order) followed by new labels in declaration order; later calls
// append labels never seen before.
func (r *RuleColumnRange) columnOrder(rule RuleSpec) []string {
	order, ok := r.columnOrders[rule.Name]
	if !ok {
		order = make(map[string]int)
		declared := make(map[string]bool, len(rule.Params))
		for _, p := range rule.Params {
			declared[p.Label] = true
		}
		for _, label := range r.rows[rule.Name][IDRow] {
			if _, dup := order[label]; declared[label] && !dup {
				order[label] = len(order)
			}
		}
		r.columnOrders[rule.Name] = order
	}
	for _, p := range rule.Params {
		if _, seen := order[p.Label]; !seen {
			order[p.Label] = len(order)
		}
	}

	labels := rule.Labels()
	sort.SliceStable(labels, func(i, j int) bool {
		return order[labels[i]] < order[labels[j]]
	})
	return labels
}

// currentSettings re-indexes a rule block's stored rows by entity id and by
// the stored header label of each column.
func (r *RuleColumnRange) currentSettings(rule string) map[string]map[string]string {
	rows := r.rows[rule]
	header := rows[IDRow]
	out := make(map[string]map[string]string, len(rows))
	for id, cells := range rows {
		if id == IDRow {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, label := range header {
			if label == "" || i >= len(cells) {
				continue
			}
			if _, dup := rec[label]; !dup {
				rec[label] = cells[i]
			}
		}
		out[id] = rec
	}
	return out
}

func (r *RuleColumnRange) displayName(id string) string {
	return cellAt(r.rows[IdentityBlock][id], 1)
}

// DisplayNames returns entity id -> display name for every indexed entity,
// sentinel rows excluded.
func (r *RuleColumnRange) DisplayNames() map[string]string {
	out := make(map[string]string, len(r.rowIndex))
	for id := range r.rowIndex {
		if id == IDRow || id == DefaultRow {
			continue
		}
		out[id] = r.displayName(id)
	}
	return out
}

// Values renders every block into one grid. With a non-empty granularity
// only rules reconciled at that granularity are included; the identity
// block is always included. A block learns its granularity from
// FillRuleValues, so a block only loaded by SetRules is dropped under a
// filter. That is how a rule that is no longer registered leaves the grid
// on write-back; pass "" to render a loaded snapshot as is.
//
// Blocks with zero columns are dropped, missing rows render as blanks, and
// rows follow ascending row index. The row index is re-committed densely in
// output order.
func (r *RuleColumnRange) Values(granularity string) Grid {
	ids := r.sortedIDs()

	type outBlock struct {
		name  string
		width int
	}
	var blocks []outBlock
	for _, name := range r.blocks {
		if name != IdentityBlock && granularity != "" && r.granularities[name] != granularity {
			continue
		}
		w := 0
		for _, id := range ids {
			if n := len(r.rows[name][id]); n > w {
				w = n
			}
		}
		if w == 0 {
			continue
		}
		blocks = append(blocks, outBlock{name: name, width: w})
	}

	var names, helper []string
	for _, b := range blocks {
		label := b.name
		if label == IdentityBlock {
			label = ""
		}
		for c := 0; c < b.width; c++ {
			names = append(names, label)
			if c == 0 {
				helper = append(helper, r.helpers[b.name])
			} else {
				helper = append(helper, "")
			}
		}
	}

	out := make(Grid, 0, len(ids)+2)
	out = append(out, DedupeHeader(names), helper)
	for _, id := range ids {
		row := make([]string, 0, len(names))
		for _, b := range blocks {
			row = append(row, span(r.rows[b.name][id], 0, b.width)...)
		}
		out = append(out, row)
	}

	for i, id := range ids {
		r.rowIndex[id] = i
	}
	r.nextRow = len(ids)
	return out
}

// WriteBack renders the grid for granularity and persists it under name.
// Only rules filled by FillRuleValues during this pass survive a non-empty
// granularity; see Values.
func (r *RuleColumnRange) WriteBack(ctx context.Context, w Writer, name, granularity string) error {
	if err := w.WriteGrid(ctx, name, r.Values(granularity)); err != nil {
		return fmt.Errorf("write grid %s: %w", name, err)
	}
	return nil
}

// RowIndex returns a copy of the entity -> row position map.
func (r *RuleColumnRange) RowIndex() map[string]int {
	out := make(map[string]int, len(r.rowIndex))
	for id, i := range r.rowIndex {
		out[id] = i
	}
	return out
}

// Blocks returns the block names in column order.
func (r *RuleColumnRange) Blocks() []string {
	return append([]string(nil), r.blocks...)
}

func (r *RuleColumnRange) sortedIDs() []string {
	ids := make([]string, 0, len(r.rowIndex))
	for id := range r.rowIndex {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.rowIndex[ids[i]] < r.rowIndex[ids[j]]
	})
	return ids
}
