// Package httpserver implements the daemon's status surface: a chi
// router serving /healthz, /stats, /metrics and /ws, grounded on the
// teacher's cmd/web-server/main.go Server.setupRoutes shape (chi
// middleware stack + cors.Handler), trimmed down to the read-only
// status endpoints SPEC_FULL.md's HTTP surface names — there is no
// authenticated REST API or database-backed CRUD in this daemon.
package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groundwatch/sentinel/internal/metrics"
	"github.com/groundwatch/sentinel/internal/publish"
	"github.com/groundwatch/sentinel/pkg/alert"
)

// StatsProvider exposes the scheduler's running totals for /stats.
type StatsProvider interface {
	Stats() Stats
}

// Stats is the /stats JSON payload.
type Stats struct {
	StartedAt    time.Time     `json:"startedAt"`
	LastCycleAt  time.Time     `json:"lastCycleAt"`
	CyclesRun    int           `json:"cyclesRun"`
	CycleErrors  int           `json:"cycleErrors"`
	LastAircraft int           `json:"lastAircraftCount"`
	ActiveAlerts []alert.Alert `json:"activeAlerts"`
}

// New builds the router. wsHub may be nil, in which case /ws responds
// 404 (mqtt/websocket publishing disabled).
func New(stats StatsProvider, wsHub *publish.WebSocketHub) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealthz)
	r.Get("/stats", handleStats(stats))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if wsHub != nil {
		r.Get("/ws", wsHub.ServeHTTP)
	}

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleStats(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats.Stats())
	}
}
