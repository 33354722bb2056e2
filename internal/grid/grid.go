// Package grid implements the settings-grid reconciliation engine.
//
// A settings grid is a sparse, human-editable 2-D sheet:
//
//	row 0:  rule names, one per column block (blank over the identity block)
//	row 1:  per-block helper text in the first column of each block
//	row 2:  "ID" row holding parameter labels
//	row 3:  "default" row holding fallback values
//	row 4+: one row per tracked entity (identity, display name, values...)
//
// [RuleColumnRange] parses such a sheet into per-rule blocks keyed by entity
// id, reconciles the blocks against the current rule declarations and the
// authoritative entity list, and renders the result back into a sheet.
// [ParamValueTable] is the per-rule structured view consumed by rule
// executors, with default-row fallback.
//
// The package performs no I/O of its own; entity lookup and grid persistence
// are reached through [EntitySource] and [Writer].
package grid

import (
	"context"
	"strings"
	"unicode"
)

// Reserved row and block identifiers.
const (
	// IDRow is the sentinel row holding parameter labels.
	IDRow = "ID"
	// DefaultRow is the sentinel row holding fallback values.
	DefaultRow = "default"
	// IdentityBlock is the sentinel block holding identity + display name.
	IdentityBlock = "none"
)

// Grid is a 2-D block of cell text. Rows may be ragged; missing cells read
// as empty strings.
type Grid [][]string

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Entity is a tracked unit returned by the authoritative entity source.
type Entity struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// EntitySource supplies the authoritative entity list for a granularity.
// The list must not change for the duration of one reconciliation pass.
type EntitySource interface {
	Rows(ctx context.Context, granularity string) ([]Entity, error)
}

// Writer replaces the full contents of a named grid.
type Writer interface {
	WriteGrid(ctx context.Context, name string, g Grid) error
}

// ParamDefinition declares one rule parameter.
type ParamDefinition struct {
	Key   string // Stable key used by rule code
	Label string // Column header text, unique within a rule
	// Meta carries validation/format hints for the host; never read here.
	Meta map[string]string
}

// RuleSpec is the part of a rule declaration the reconciliation engine reads.
type RuleSpec struct {
	Name        string
	Granularity string
	Helper      string
	Params      []ParamDefinition
	// Defaults maps parameter key to compiled-in default. A nil map is a
	// declaration error; an empty map is valid.
	Defaults map[string]string
}

// Keys returns the parameter keys in declaration order.
func (r RuleSpec) Keys() []string {
	keys := make([]string, len(r.Params))
	for i, p := range r.Params {
		keys[i] = p.Key
	}
	return keys
}

// Labels returns the parameter labels in declaration order.
func (r RuleSpec) Labels() []string {
	labels := make([]string, len(r.Params))
	for i, p := range r.Params {
		labels[i] = p.Label
	}
	return labels
}

// DedupeHeader blanks every cell equal to its immediate left neighbour,
// scanning right to left, so ["A","A","B"] becomes ["A","","B"].
func DedupeHeader(row []string) []string {
	out := append([]string(nil), row...)
	for i := len(out) - 1; i > 0; i-- {
		if out[i] == out[i-1] {
			out[i] = ""
		}
	}
	return out
}

// NameHeader returns the display-name header for a granularity,
// e.g. "ad_group" -> "Ad Group Name".
func NameHeader(granularity string) string {
	words := strings.FieldsFunc(granularity, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	words = append(words, "Name")
	return strings.Join(words, " ")
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// span copies row[start:end], padding with blanks past the row's end.
func span(row []string, start, end int) []string {
	out := make([]string, end-start)
	for i := range out {
		out[i] = cellAt(row, start+i)
	}
	return out
}
