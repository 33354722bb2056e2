package sheetcsv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/google/go-cmp/cmp"
)

type recordingWriter struct {
	grids map[string]grid.Grid
	fail  string
}

func (w *recordingWriter) ReplaceGrid(_ context.Context, granularity string, g grid.Grid) error {
	if granularity == w.fail {
		return errors.New("rejected")
	}
	if w.grids == nil {
		w.grids = map[string]grid.Grid{}
	}
	w.grids[granularity] = g
	return nil
}

func TestReadGrid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  grid.Grid
	}{
		{
			name:  "plain",
			input: "ID,Campaign Name,Max Spend\ndefault,,100\n",
			want:  grid.Grid{{"ID", "Campaign Name", "Max Spend"}, {"default", "", "100"}},
		},
		{
			name:  "bom skipped, cells verbatim",
			input: "\xEF\xBB\xBFID,Max Spend\n=\"101\", 250 \r\n",
			want:  grid.Grid{{"ID", "Max Spend"}, {"=\"101\"", " 250 "}},
		},
		{
			name:  "ragged rows padded",
			input: "a,b,c\nd\n",
			want:  grid.Grid{{"a", "b", "c"}, {"d", "", ""}},
		},
		{
			name:  "trailing blank rows dropped",
			input: "a,b\n,\n,\n",
			want:  grid.Grid{{"a", "b"}},
		},
		{
			name:  "empty",
			input: "",
			want:  grid.Grid{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadGrid(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadGrid: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteGrid(t *testing.T) {
	var buf bytes.Buffer
	g := grid.Grid{{"ID", "Campaign Name"}, {"101", "Sale, Spring"}}
	if err := WriteGrid(&buf, g); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}
	want := "ID,Campaign Name\n101,\"Sale, Spring\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	back, err := ReadGrid(&buf)
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}
	if diff := cmp.Diff(g, back); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}

func TestReadGrid_KeepsQuotesAndFormulas(t *testing.T) {
	g := grid.Grid{
		{"default", "", "'quoted'"},
		{"1", "\"Best\" Deals", "=5"},
		{"2", " padded ", "50%"},
	}
	var buf bytes.Buffer
	if err := WriteGrid(&buf, g); err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}
	back, err := ReadGrid(&buf)
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}
	if diff := cmp.Diff(g, back); diff != "" {
		t.Errorf("export then import changed cells (-want +got):\n%s", diff)
	}
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"campaign.csv": "ID,Campaign Name\ndefault,\n",
		"ad_group.CSV": "ID,Ad Group Name\ndefault,\n",
		"notes.txt":    "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := &recordingWriter{}
	got, err := ImportDir(context.Background(), w, dir)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if diff := cmp.Diff([]string{"ad_group", "campaign"}, got); diff != "" {
		t.Errorf("imported mismatch (-want +got):\n%s", diff)
	}
	if len(w.grids["campaign"]) != 2 {
		t.Errorf("campaign grid = %v", w.grids["campaign"])
	}
}

func TestImportDir_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("ID\ndefault\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := &recordingWriter{fail: "b"}
	got, err := ImportDir(context.Background(), w, dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "b.csv") {
		t.Errorf("error %q does not name the file", err)
	}
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("imported mismatch (-want +got):\n%s", diff)
	}
}
