package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/history"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/strategy"
	"github.com/token-scanner/internal/types"
)

var apiEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()

	tracker := history.NewTracker(config.HistoryConfig{MaxObservations: 100, Shards: 16})
	tracker.SetNowFunc(func() time.Time { return apiEpoch })

	ctx := context.Background()
	tracker.Update(ctx, types.TokenSnapshot{
		Symbol: "WINNER", Price: 1.0, Volume24h: 5_000_000, MarketCap: 50_000_000,
		ObservedAt: apiEpoch.Add(-20 * time.Hour),
	})
	tracker.Update(ctx, types.TokenSnapshot{
		Symbol: "WINNER", Price: 1.5, Volume24h: 5_000_000, MarketCap: 50_000_000,
		ObservedAt: apiEpoch.Add(-10 * time.Hour),
	})

	logger := logging.NewLogger(logging.LevelError, logging.FormatJSON)
	logger.SetOutput(io.Discard)

	monitor := strategy.NewMonitor(nil, nil, tracker)
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, monitor, nil, logger)
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, testServer(t), "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestHandleStats(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats history.PerformanceStats
	decode(t, rec, &stats)
	if stats.TotalTokens != 1 {
		t.Errorf("TotalTokens = %d, want 1", stats.TotalTokens)
	}
	if stats.Window24h.MaxGainPercent != 50.0 {
		t.Errorf("Window24h.MaxGainPercent = %v, want 50.0", stats.Window24h.MaxGainPercent)
	}
}

func TestHandleOpportunities(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/opportunities?days=30")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Days          int                   `json:"days"`
		Count         int                   `json:"count"`
		Opportunities []history.Opportunity `json:"opportunities"`
	}
	decode(t, rec, &body)
	if body.Days != 30 {
		t.Errorf("days = %d, want 30", body.Days)
	}
	if body.Count != 1 || len(body.Opportunities) != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}
	if body.Opportunities[0].Symbol != "WINNER" {
		t.Errorf("symbol = %s, want WINNER", body.Opportunities[0].Symbol)
	}
}

func TestHandleOpportunitiesInvalidDays(t *testing.T) {
	s := testServer(t)

	for _, days := range []string{"abc", "0", "-3", "91"} {
		rec := doRequest(t, s, "/api/v1/opportunities?days="+days)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d, want 400", days, rec.Code)
			continue
		}
		var body ErrorResponse
		decode(t, rec, &body)
		if body.Error.Code != "INVALID_PARAMETER" {
			t.Errorf("days=%s: code = %s, want INVALID_PARAMETER", days, body.Error.Code)
		}
	}
}

func TestHandleHistory(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/history/WINNER")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var record history.Record
	decode(t, rec, &record)
	if record.Symbol != "WINNER" {
		t.Errorf("symbol = %s, want WINNER", record.Symbol)
	}
	if record.CurrentPrice != 1.5 {
		t.Errorf("CurrentPrice = %v, want 1.5", record.CurrentPrice)
	}
}

func TestHandleHistoryNotFound(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/history/UNKNOWN")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body ErrorResponse
	decode(t, rec, &body)
	if body.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", body.Error.Code)
	}
}

func TestHandlePatterns(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/patterns")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var patterns history.SuccessPatterns
	decode(t, rec, &patterns)
	if patterns.TotalSuccessful != 1 {
		t.Errorf("TotalSuccessful = %d, want 1", patterns.TotalSuccessful)
	}
}

func TestHandleExport(t *testing.T) {
	rec := doRequest(t, testServer(t), "/api/v1/export")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc history.ExportDocument
	decode(t, rec, &doc)
	if len(doc.History) != 1 {
		t.Errorf("History entries = %d, want 1", len(doc.History))
	}
	if _, ok := doc.History["WINNER"]; !ok {
		t.Error("History missing WINNER")
	}
}
