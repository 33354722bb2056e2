package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/rulegrid/internal/config"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
	"github.com/JonMunkholm/rulegrid/internal/storage"
)

func TestOpenStore_Memory(t *testing.T) {
	store, closeFn, err := OpenStore(context.Background(), config.DatabaseConfig{}, true)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*storage.Memory); !ok {
		t.Errorf("store = %T, want *storage.Memory", store)
	}
}

func TestOpenStore_RequiresURL(t *testing.T) {
	_, closeFn, err := OpenStore(context.Background(), config.DatabaseConfig{}, false)
	if err == nil {
		t.Fatal("expected error without a database URL")
	}
	closeFn()
}

func TestNewReportingClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.yaml")
	body := "granularities:\n  campaign:\n    - id: \"101\"\n      name: Spring Sale\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     config.ReportingConfig
		want    string
		wantErr bool
	}{
		{name: "entity file wins", cfg: config.ReportingConfig{EntityFile: path, BaseURL: "http://x"}, want: "static"},
		{name: "api client", cfg: config.ReportingConfig{BaseURL: "http://reporting.local"}, want: "http"},
		{name: "missing entity file", cfg: config.ReportingConfig{EntityFile: filepath.Join(t.TempDir(), "nope.yaml")}, wantErr: true},
		{name: "nothing configured", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewReportingClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewReportingClient: %v", err)
			}
			var got string
			switch client.(type) {
			case *reporting.StaticSource:
				got = "static"
			case *reporting.HTTPClient:
				got = "http"
			}
			if got != tt.want {
				t.Errorf("client = %T, want %s", client, tt.want)
			}
		})
	}
}
