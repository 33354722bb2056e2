package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/config"
	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/reporting"
	"github.com/JonMunkholm/rulegrid/internal/storage"
	"github.com/google/go-cmp/cmp"
)

func costCap(ctx context.Context, env core.RuleEnv, settings *grid.ParamValueTable) (*core.Result, error) {
	metrics, err := env.Client().Metrics(ctx, "campaign", []string{"cost"})
	if err != nil {
		return nil, err
	}
	res := &core.Result{Columns: []string{"Cost"}}
	for _, id := range settings.IDs() {
		if id == grid.DefaultRow {
			continue
		}
		limit, _ := core.ParseNumber(settings.GetOrDefault(id)["max_spend"])
		cost := metrics[id]["cost"]
		res.Rows = append(res.Rows, core.ResultRow{
			EntityID:  id,
			Values:    []string{core.FormatNumber(cost)},
			Anomalous: cost > limit,
		})
	}
	return res, nil
}

type testEnv struct {
	server *Server
	store  *storage.Memory
}

func newTestEnv(t *testing.T, sec config.SecurityConfig) *testEnv {
	t.Helper()
	core.Clear()
	t.Cleanup(core.Clear)
	core.Register(core.RuleDefinition{
		RuleSpec: grid.RuleSpec{
			Name:        "spend_cap",
			Granularity: "campaign",
			Helper:      "Flag overspend",
			Params:      []grid.ParamDefinition{{Key: "max_spend", Label: "Max Spend"}},
			Defaults:    map[string]string{"max_spend": "100"},
		},
		UniqueKeyPrefix: "spend",
		Callback:        costCap,
	})

	src := &reporting.StaticSource{Granularities: map[string][]reporting.StaticEntity{
		"campaign": {
			{ID: "101", Name: "Spring Sale", Metrics: reporting.Metrics{"cost": 150}},
			{ID: "102", Name: "Summer Sale", Metrics: reporting.Metrics{"cost": 50}},
		},
	}}
	store := storage.NewMemory()
	svc := core.NewService(store, src)
	cfg := &config.Config{
		Server:   config.ServerConfig{RequestTimeout: time.Minute},
		Security: sec,
	}
	return &testEnv{
		server: NewServer(svc, core.NewDispatcher(svc, "1.2.0"), cfg),
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v (%q)", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not set")
	}
}

func TestListRules(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})
	rec := env.do(t, http.MethodGet, "/api/rules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rules []core.RuleInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &rules); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "spend_cap" {
		t.Errorf("rules = %+v", rules)
	}
}

func TestCommand_InitializeThenGetGrid(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})

	rec := env.do(t, http.MethodPost, "/api/commands/initialize", `{"granularity":"campaign"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("initialize status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/grids/campaign", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get grid status = %d", rec.Code)
	}
	var resp GridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "settings:campaign" {
		t.Errorf("name = %q", resp.Name)
	}
	want := grid.Grid{
		{"", "", "spend_cap"},
		{"", "", "Flag overspend"},
		{"ID", "Campaign Name", "Max Spend"},
		{"default", "", "100"},
		{"101", "Spring Sale", ""},
		{"102", "Summer Sale", ""},
	}
	if diff := cmp.Diff(want, resp.Rows); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestCommand_LaunchRequiresAccount(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})

	rec := env.do(t, http.MethodPost, "/api/commands/launch?granularity=campaign", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "CFG001" {
		t.Errorf("code = %q, want CFG001", got)
	}
}

func TestCommand_LaunchAndResults(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})

	if rec := env.do(t, http.MethodPut, "/api/settings/account_id", `{"value":"acct-9"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("set setting status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/commands/launch", `{"granularity":"campaign"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("launch status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp core.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report == nil || resp.Report.Anomalies["spend_cap"] != 1 {
		t.Fatalf("report = %+v", resp.Report)
	}

	rec = env.do(t, http.MethodGet, "/api/results/spend_cap", "")
	var results GridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	want := grid.Grid{
		{"ID", "Campaign Name", "Cost", "Anomaly"},
		{"101", "Spring Sale", "150", "TRUE"},
		{"102", "Summer Sale", "50", "FALSE"},
	}
	if diff := cmp.Diff(want, results.Rows); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(t, http.MethodGet, "/api/results/spend_cap/101", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("entity result status = %d", rec.Code)
	}
	var record core.ResultRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if !record.Anomalous || record.AccountID != "acct-9" || record.EntityName != "Spring Sale" {
		t.Errorf("record = %+v", record)
	}

	rec = env.do(t, http.MethodGet, "/api/results/spend_cap/777", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entity status = %d, want 404", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"unknown command", http.MethodPost, "/api/commands/explode", `{}`, http.StatusNotFound, "CMD001"},
		{"unknown granularity", http.MethodGet, "/api/grids/keyword", "", http.StatusNotFound, "RULE002"},
		{"unknown rule results", http.MethodGet, "/api/results/nope", "", http.StatusNotFound, "RULE002"},
		{"grid too small", http.MethodPut, "/api/grids/campaign", `{"rows":[["ID"]]}`, http.StatusBadRequest, "GRID001"},
		{"bad version", http.MethodPost, "/api/commands/migrate", `{"version":"one.two"}`, http.StatusBadRequest, "MIG001"},
		{"malformed body", http.MethodPut, "/api/settings/x", `{"value":`, http.StatusBadRequest, "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantMsg {
				t.Errorf("code = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestAPIRequiresKey(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}})

	if rec := env.do(t, http.MethodGet, "/api/rules", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}

	// pages stay open
	if rec := env.do(t, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
		t.Errorf("rules page status = %d", rec.Code)
	}
}

func TestGridPage(t *testing.T) {
	env := newTestEnv(t, config.SecurityConfig{})
	env.do(t, http.MethodPost, "/api/commands/initialize", `{"granularity":"campaign"}`)

	rec := env.do(t, http.MethodGet, "/grids/campaign", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Settings: campaign", "Spring Sale", "Max Spend"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	rec = env.do(t, http.MethodGet, "/grids/keyword", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown granularity page status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "RULE002") {
		t.Errorf("error page missing code: %q", rec.Body.String())
	}
}
