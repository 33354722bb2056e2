package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.10.0", -1},
		{"1.2.0", "1.11.0", -1},
		{"1.10.0", "1.9.9", 1},
		{"2.0", "1.99.99", 1},
		{"1.2", "1.2.0", 0},
		{"", "0.0.1", -1},
		{"0.0.0", "", 0},
		{"3.0.0", "3.0.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, in := range []string{"1.x", "1..2", "-1.0", "v1.0"} {
		_, err := ParseVersion(in)
		var fmtErr *VersionFormatError
		if !errors.As(err, &fmtErr) {
			t.Errorf("ParseVersion(%q): expected *VersionFormatError, got %v", in, err)
		}
	}
}

type memVersion struct {
	version string
	history []string
	failAt  string
}

func (m *memVersion) CurrentVersion(context.Context) (string, error) { return m.version, nil }

func (m *memVersion) SetCurrentVersion(_ context.Context, v string) error {
	if v == m.failAt {
		return errors.New("disk full")
	}
	m.version = v
	m.history = append(m.history, v)
	return nil
}

func TestRunner_Apply(t *testing.T) {
	var ran []string
	record := func(v string) Func {
		return func(context.Context) error {
			ran = append(ran, v)
			return nil
		}
	}
	steps := map[string]Func{
		"1.10.0": record("1.10.0"),
		"1.2.0":  record("1.2.0"),
		"1.1.0":  record("1.1.0"),
		"2.0.0":  record("2.0.0"),
	}

	store := &memVersion{version: "1.1.0"}
	r, err := NewRunner(store, steps)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if diff := cmp.Diff([]string{"1.1.0", "1.2.0", "1.10.0", "2.0.0"}, r.Versions()); diff != "" {
		t.Errorf("Versions() mismatch (-want +got):\n%s", diff)
	}

	applied, err := r.Apply(context.Background(), "1.10.0")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []string{"1.2.0", "1.10.0"}
	if diff := cmp.Diff(want, applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, ran); diff != "" {
		t.Errorf("ran mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, store.history); diff != "" {
		t.Errorf("persisted history mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_ApplyNoStepsForcesTarget(t *testing.T) {
	store := &memVersion{version: "1.0.0"}
	r, err := NewRunner(store, map[string]Func{})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if _, err := r.Apply(context.Background(), "1.3.0"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if store.version != "1.3.0" {
		t.Errorf("version = %q, want %q", store.version, "1.3.0")
	}
}

func TestRunner_ApplyStopsAtFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	steps := map[string]Func{
		"1.1.0": func(context.Context) error { ran = append(ran, "1.1.0"); return nil },
		"1.2.0": func(context.Context) error { return boom },
		"1.3.0": func(context.Context) error { ran = append(ran, "1.3.0"); return nil },
	}

	store := &memVersion{version: "1.0.0"}
	r, err := NewRunner(store, steps)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	applied, err := r.Apply(context.Background(), "1.3.0")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped step error, got %v", err)
	}
	if diff := cmp.Diff([]string{"1.1.0"}, applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}
	if store.version != "1.1.0" {
		t.Errorf("version = %q, want last successful step %q", store.version, "1.1.0")
	}
}

func TestNewRunner_InvalidVersion(t *testing.T) {
	_, err := NewRunner(&memVersion{}, map[string]Func{"one": nil})
	var fmtErr *VersionFormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("expected *VersionFormatError, got %v", err)
	}
}
