// Package metrics exposes the daemon's Prometheus counters and gauges:
// per-cycle error/empty-tick counts, fetch retries, per-filter fire
// counts, and alert insert/remove counts. The metric shape (a package
// of pre-registered vectors updated by a handful of Observe/Inc
// helpers) is grounded on other_examples' adsb-exporter, adapted from
// polling a local stats.json to being called directly from the
// scheduler's cycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CycleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_cycle_total",
		Help: "Total number of scheduler cycles run.",
	})

	CycleErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_cycle_errors_total",
		Help: "Number of scheduler cycles that ended in a fetch or pipeline error.",
	})

	CycleEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_cycle_empty_total",
		Help: "Number of scheduler cycles whose snapshot contained zero aircraft.",
	})

	CycleDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_cycle_duration_seconds",
		Help:    "Wall-clock duration of one scheduler cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// FetchRetriesTotal is registered, but no code in this module
	// increments it, so it stays at zero.
	FetchRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_fetch_retries_total",
		Help: "Number of snapshot fetch retry attempts beyond the first.",
	})

	AircraftObservedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_aircraft_observed_total",
		Help: "Total number of aircraft records seen across all cycles.",
	})

	FilterFiringsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_filter_firings_total",
		Help: "Number of times each filter fired, by filter id.",
	}, []string{"filter"})

	AlertsInsertedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_inserted_total",
		Help: "Number of alerts inserted, by filter id.",
	}, []string{"filter"})

	AlertsRemovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_removed_total",
		Help: "Number of alerts removed (expired), by filter id.",
	}, []string{"filter"})

	ActiveAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_active_alerts",
		Help: "Current number of active alerts.",
	})

	HexCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_hexcache_entries",
		Help: "Current number of entries in the hex→flight cache.",
	})
)

// Registry is the default Prometheus registry this package registers
// into; a dedicated registry (rather than prometheus.MustRegister into
// the global default) keeps repeated construction in tests safe.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		CycleTotal,
		CycleErrorsTotal,
		CycleEmptyTotal,
		CycleDurationSeconds,
		FetchRetriesTotal,
		AircraftObservedTotal,
		FilterFiringsTotal,
		AlertsInsertedTotal,
		AlertsRemovedTotal,
		ActiveAlerts,
		HexCacheEntries,
	)
}

// ObserveFirings increments FilterFiringsTotal once per firing, keyed
// by filter id.
func ObserveFirings(filterIDs []string) {
	for _, id := range filterIDs {
		FilterFiringsTotal.WithLabelValues(id).Inc()
	}
}

// ObserveAlertDiff increments the insert/remove counters for one
// cycle's alert diff.
func ObserveAlertDiff(insertedFilterIDs, removedFilterIDs []string) {
	for _, id := range insertedFilterIDs {
		AlertsInsertedTotal.WithLabelValues(id).Inc()
	}
	for _, id := range removedFilterIDs {
		AlertsRemovedTotal.WithLabelValues(id).Inc()
	}
}
