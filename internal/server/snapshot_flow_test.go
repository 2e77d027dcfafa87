package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func (app *testApp) pipelineRequest(body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func seedMarch(t *testing.T, app *testApp, token string) {
	t.Helper()
	app.createTrade(t, token,
		`{"symbol":"EURUSD","opened_at":"2026-03-02T09:30:00Z","direction":"BUY","volume":1,"entry_price":100,"exit_price":110}`)
	app.createTrade(t, token,
		`{"symbol":"XAUUSD","opened_at":"2026-03-09T14:00:00Z","direction":"SELL","volume":1,"entry_price":100,"exit_price":105}`)
}

func TestStatsFlow_MonthlySummary(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "stats@test.com", "password123")
	seedMarch(t, app, token)

	rec := app.request("GET", "/api/v1/stats/monthly?month=2026-03", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["total_trades"] != float64(2) || summary["net_pl"] != float64(5) {
		t.Errorf("unexpected summary %v", summary)
	}

	rec = app.request("GET", "/api/v1/stats/symbols?month=2026-03", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if symbols := parseJSON(t, rec)["symbols"].([]interface{}); len(symbols) != 2 {
		t.Errorf("expected 2 symbol rows, got %v", symbols)
	}

	rec = app.request("GET", "/api/v1/stats/dashboard?month=2026-03", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/stats/daily?month=13-2026", "", token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_MONTH" {
		t.Errorf("invalid month: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSnapshotFlow_RequiresPipelineKey(t *testing.T) {
	app := setupApp(t)

	if rec := app.pipelineRequest(`{"month":"2026-03"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: expected 401, got %d", rec.Code)
	}
	if rec := app.pipelineRequest(`{"month":"2026-03"}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
}

func TestSnapshotFlow_RecordAndList(t *testing.T) {
	app := setupApp(t)
	alice, _, aliceID := app.registerUser(t, "alice@test.com", "password123")
	bob, _, _ := app.registerUser(t, "bob@test.com", "password123")
	seedMarch(t, app, alice)

	// Recording twice overwrites the one snapshot per user and month.
	for i := 0; i < 2; i++ {
		rec := app.pipelineRequest(`{"month":"2026-03"}`, testPipelineKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("record failed: %d %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["month_key"] != "2026-03" || result["users"] != float64(1) {
			t.Fatalf("unexpected record result %v", result)
		}
	}

	rec := app.request("GET", "/api/v1/snapshots", "", alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rec.Code, rec.Body.String())
	}
	page := parseJSON(t, rec)
	data := page["data"].([]interface{})
	if len(data) != 1 || page["total_items"] != float64(1) {
		t.Fatalf("expected one snapshot, got %v", page)
	}
	snap := data[0].(map[string]interface{})
	if snap["user_id"] != aliceID || snap["net_pl"] != float64(5) || snap["total_trades"] != float64(2) {
		t.Errorf("unexpected snapshot %v", snap)
	}

	rec = app.request("GET", "/api/v1/snapshots", "", bob)
	if got := parseJSON(t, rec)["total_items"]; got != float64(0) {
		t.Errorf("bob sees %v snapshots", got)
	}

	rec = app.request("GET", "/api/v1/snapshots?page_size=500", "", alice)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized page: expected 400, got %d", rec.Code)
	}
}
