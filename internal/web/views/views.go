// Package views renders the server's HTML pages as templ components. Edit
// the .templ files and run templ generate; the _templ.go files are
// generated from them.
package views

import (
	"strings"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// rowClass styles row 0 (rule names) and row 1 (helper text) apart from the
// label, default and entity rows.
func rowClass(i int, row []string) string {
	first := ""
	if len(row) > 0 {
		first = row[0]
	}
	switch {
	case i == 0:
		return "block"
	case i == 1 && first == "":
		return "helper"
	case first == grid.IDRow:
		return "labels"
	case first == grid.DefaultRow:
		return "default"
	}
	return "entity"
}

// padRow returns row extended with blanks to width cells.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func paramLabels(params []core.ParamInfo) string {
	labels := make([]string, len(params))
	for i, p := range params {
		labels[i] = p.Label
	}
	return strings.Join(labels, ", ")
}
