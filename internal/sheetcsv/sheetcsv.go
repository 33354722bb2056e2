// Package sheetcsv moves settings grids in and out of CSV files, so operators
// can edit them in a spreadsheet program.
package sheetcsv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/rulegrid/internal/grid"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// GridWriter stores an edited settings grid. *core.Service satisfies it.
type GridWriter interface {
	ReplaceGrid(ctx context.Context, granularity string, g grid.Grid) error
}

// ReadGrid parses CSV into a grid. Cells are kept exactly as written so an
// exported grid imports back unchanged; number and boolean cells are cleaned
// only when a rule reads them. A leading UTF-8 BOM is skipped, ragged rows
// are padded to the widest row and trailing blank rows are dropped.
func ReadGrid(r io.Reader) (grid.Grid, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	g := make(grid.Grid, 0, len(records))
	for _, rec := range records {
		row := make([]string, width)
		copy(row, rec)
		g = append(g, row)
	}
	for len(g) > 0 && blankRow(g[len(g)-1]) {
		g = g[:len(g)-1]
	}
	return g, nil
}

// WriteGrid writes g as CSV.
func WriteGrid(w io.Writer, g grid.Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(g); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ImportFile reads path and stores it as the settings grid of granularity.
func ImportFile(ctx context.Context, dst GridWriter, granularity, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadGrid(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := dst.ReplaceGrid(ctx, granularity, g); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ImportDir imports every "<granularity>.csv" file in dir, in name order,
// and returns the granularities imported. It stops at the first failure.
func ImportDir(ctx context.Context, dst GridWriter, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	imported := make([]string, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		granularity := strings.TrimSuffix(name, filepath.Ext(name))
		if err := ImportFile(ctx, dst, granularity, filepath.Join(dir, name)); err != nil {
			return imported, err
		}
		imported = append(imported, granularity)
	}
	return imported, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
