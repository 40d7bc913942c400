//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

func postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(testServer.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestDebateRoundTrip(t *testing.T) {
	resp := postJSON(t, "/api/v1/debates", `{"description":"Swap the retry loop for exponential backoff","type":"refactor"}`)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var rec debate.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected record ID")
	}
	if !rec.Decision.Approved {
		t.Fatalf("expected approval, got %+v", rec.Decision)
	}

	// The record is retrievable through the API.
	getResp, err := http.Get(testServer.URL + "/api/v1/debates/" + rec.ID)
	if err != nil {
		t.Fatalf("GET debate: %v", err)
	}
	defer func() { _ = getResp.Body.Close() }()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}
}

func TestMigrationsCreateHistoryTable(t *testing.T) {
	var n int
	ctx := context.Background()
	if err := testPool.QueryRow(ctx, `SELECT count(*) FROM debate_records`).Scan(&n); err != nil {
		t.Fatalf("count debate_records: %v", err)
	}
}

func TestDebateExportCSV(t *testing.T) {
	resp := postJSON(t, "/api/v1/debates", `{"description":"Export me","type":"feature"}`)
	_ = resp.Body.Close()

	csvResp, err := http.Get(testServer.URL + "/api/v1/debates/export/csv")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer func() { _ = csvResp.Body.Close() }()
	if csvResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", csvResp.StatusCode)
	}
	if ct := csvResp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
}

func TestAnalyticsReflectsDebates(t *testing.T) {
	resp := postJSON(t, "/api/v1/debates", `{"description":"Analytics seed","type":"bugfix"}`)
	_ = resp.Body.Close()

	aResp, err := http.Get(testServer.URL + "/api/v1/analytics")
	if err != nil {
		t.Fatalf("GET analytics: %v", err)
	}
	defer func() { _ = aResp.Body.Close() }()
	if aResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", aResp.StatusCode)
	}

	var a struct {
		TotalDebates int `json:"totalDebates"`
	}
	if err := json.NewDecoder(aResp.Body).Decode(&a); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	if a.TotalDebates < 1 {
		t.Fatalf("expected at least 1 debate, got %d", a.TotalDebates)
	}
}
