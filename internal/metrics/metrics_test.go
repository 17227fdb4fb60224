package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFiringsIncrementsPerFilter(t *testing.T) {
	FilterFiringsTotal.Reset()
	ObserveFirings([]string{"vicinity", "vicinity", "emergency"})

	if got := testutil.ToFloat64(FilterFiringsTotal.WithLabelValues("vicinity")); got != 2 {
		t.Errorf("expected vicinity=2, got %v", got)
	}
	if got := testutil.ToFloat64(FilterFiringsTotal.WithLabelValues("emergency")); got != 1 {
		t.Errorf("expected emergency=1, got %v", got)
	}
}

func TestObserveAlertDiff(t *testing.T) {
	AlertsInsertedTotal.Reset()
	AlertsRemovedTotal.Reset()

	ObserveAlertDiff([]string{"vicinity"}, []string{"vicinity", "airprox"})

	if got := testutil.ToFloat64(AlertsInsertedTotal.WithLabelValues("vicinity")); got != 1 {
		t.Errorf("expected 1 insert for vicinity, got %v", got)
	}
	if got := testutil.ToFloat64(AlertsRemovedTotal.WithLabelValues("airprox")); got != 1 {
		t.Errorf("expected 1 removal for airprox, got %v", got)
	}
}

func TestRegistryHasAllCollectors(t *testing.T) {
	mfs, err := Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected at least one registered metric family")
	}
}
