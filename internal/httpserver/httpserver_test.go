package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/groundwatch/sentinel/internal/publish"
)

type stubStats struct{ s Stats }

func (s stubStats) Stats() Stats { return s.s }

func TestHealthzReportsOK(t *testing.T) {
	r := New(stubStats{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body)
	}
}

func TestStatsReturnsProvidedPayload(t *testing.T) {
	want := Stats{CyclesRun: 7, LastAircraft: 3, LastCycleAt: time.Unix(1000, 0).UTC()}
	r := New(stubStats{s: want}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Stats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CyclesRun != want.CyclesRun || got.LastAircraft != want.LastAircraft {
		t.Errorf("unexpected stats payload: %+v", got)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	r := New(stubStats{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Error("expected a content-type header on the metrics response")
	}
}

func TestWsEndpointAbsentWithoutHub(t *testing.T) {
	r := New(stubStats{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for /ws with no hub wired, got %d", w.Code)
	}
}

func TestWsEndpointPresentWithHub(t *testing.T) {
	hub := publish.NewWebSocketHub()
	r := New(stubStats{}, hub)

	server := httptest.NewServer(r)
	defer server.Close()

	// A plain GET without the websocket upgrade headers should fail the
	// handshake (400), proving the route is registered and reaches the hub
	// rather than falling through to a 404.
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		t.Error("expected /ws to be routed to the hub, got 404")
	}
}
