package filter

import (
	"testing"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/snapshot"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

func TestAnomalyFiresOnHighSpeedLowAltitude(t *testing.T) {
	f := NewAnomalyFilter()
	ac := &enrich.Aircraft{
		Raw: snapshot.Aircraft{Hex: "J", Gs: fp(350)},
		Calculated: enrich.Calculated{
			Altitude: 1000, HasAltitude: true, FilterData: map[string]interface{}{},
		},
	}
	f.Preprocess(ac, nil)
	if !f.Evaluate(ac) {
		t.Fatal("expected high-speed low-altitude combination to fire anomaly")
	}
	d := ac.Calculated.FilterData["anomaly"].(AnomalyData)
	if d.highest() != High {
		t.Errorf("expected High severity, got %v", d.highest())
	}
}

func TestAnomalyFiresOnExtremeVerticalRate(t *testing.T) {
	f := NewAnomalyFilter()
	ac := &enrich.Aircraft{
		Raw:        snapshot.Aircraft{Hex: "K", BaroRate: fp(5000)},
		Calculated: enrich.Calculated{FilterData: map[string]interface{}{}},
	}
	f.Preprocess(ac, nil)
	d, ok := ac.Calculated.FilterData["anomaly"].(AnomalyData)
	if !ok || d.highest() != Critical {
		t.Fatalf("expected critical extreme-vertical-rate entry, got %+v", d)
	}
}

func TestAnomalyQuietAircraftDoesNotFire(t *testing.T) {
	f := NewAnomalyFilter()
	tr := tracking.New()
	ac := &enrich.Aircraft{
		Raw: snapshot.Aircraft{Hex: "L", Gs: fp(180)},
		Calculated: enrich.Calculated{
			Altitude: 10000, HasAltitude: true, FilterData: map[string]interface{}{},
		},
	}
	ctx := &Context{Tracker: tr}
	f.Preprocess(ac, ctx)
	if f.Evaluate(ac) {
		t.Error("expected steady cruise not to fire anomaly")
	}
}
