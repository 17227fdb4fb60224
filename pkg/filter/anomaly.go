package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

// AnomalyEntry is one independent sub-detector's finding.
type AnomalyEntry struct {
	Type     string
	Severity Severity
	Details  string
}

// AnomalyData is the per-aircraft record the anomaly filter writes.
type AnomalyData struct {
	Entries []AnomalyEntry
}

func (d AnomalyData) highest() Severity {
	top := Info
	for _, e := range d.Entries {
		if e.Severity > top {
			top = e.Severity
		}
	}
	return top
}

// AnomalyFilter runs several independent anomaly sub-detectors over
// an aircraft's current state and trajectory (spec.md §4.7 "anomaly",
// priority 4).
type AnomalyFilter struct {
	tempDeviationThreshold float64
	lookbackIndex          int
}

func NewAnomalyFilter() *AnomalyFilter {
	return &AnomalyFilter{tempDeviationThreshold: 20, lookbackIndex: 2}
}

func (f *AnomalyFilter) ID() string    { return "anomaly" }
func (f *AnomalyFilter) Priority() int { return 4 }

func (f *AnomalyFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.tempDeviationThreshold = cfgFloat(cfg, "temperatureDeviation", f.tempDeviationThreshold)
	return nil
}

func (f *AnomalyFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	var entries []AnomalyEntry

	entries = append(entries, f.speedAltitudeBand(ac)...)
	entries = append(entries, f.temperatureAnomaly(ac)...)
	entries = append(entries, f.extremeVerticalRate(ac)...)
	entries = append(entries, f.altitudeDeviation(ac)...)

	if ctx != nil && ctx.Tracker != nil && ac.Raw.Hex != "" {
		data := ctx.Tracker.Data(ac.Raw.Hex)
		entries = append(entries, f.altitudeOscillation(data)...)
		entries = append(entries, f.rapidVerticalRateChange(ac, data)...)
		entries = append(entries, f.rapidSpeedChange(data)...)
	}

	if len(entries) == 0 {
		return
	}
	ac.Calculated.FilterData[f.ID()] = AnomalyData{Entries: entries}
}

func (f *AnomalyFilter) speedAltitudeBand(ac *enrich.Aircraft) []AnomalyEntry {
	if !ac.Calculated.HasAltitude || ac.Raw.Gs == nil {
		return nil
	}
	alt, gs := ac.Calculated.Altitude, *ac.Raw.Gs
	switch {
	case alt < 3000 && gs > 250:
		return []AnomalyEntry{{Type: "high-speed-low-alt", Severity: High, Details: fmt.Sprintf("%.0fkt at %.0fft", gs, alt)}}
	case alt > 25000 && gs < 150 && gs > 0:
		return []AnomalyEntry{{Type: "low-speed-high-alt", Severity: Medium, Details: fmt.Sprintf("%.0fkt at %.0fft", gs, alt)}}
	}
	return nil
}

func (f *AnomalyFilter) temperatureAnomaly(ac *enrich.Aircraft) []AnomalyEntry {
	if ac.Raw.Tat == nil || ac.Raw.Oat == nil || ac.Raw.Mach == nil {
		return nil
	}
	observed := *ac.Raw.Tat - *ac.Raw.Oat
	expected := (*ac.Raw.Mach) * (*ac.Raw.Mach) * 40
	dev := math.Abs(observed - expected)
	if dev <= f.tempDeviationThreshold {
		return nil
	}
	return []AnomalyEntry{{Type: "temperature-anomaly", Severity: Medium, Details: fmt.Sprintf("deviation %.1f°C", dev)}}
}

func (f *AnomalyFilter) extremeVerticalRate(ac *enrich.Aircraft) []AnomalyEntry {
	if ac.Raw.BaroRate == nil {
		return nil
	}
	rate := math.Abs(*ac.Raw.BaroRate)
	switch {
	case rate > 4000:
		return []AnomalyEntry{{Type: "extreme-vertical-rate", Severity: Critical, Details: fmt.Sprintf("%.0f ft/min", *ac.Raw.BaroRate)}}
	case rate > 2000:
		return []AnomalyEntry{{Type: "extreme-vertical-rate", Severity: High, Details: fmt.Sprintf("%.0f ft/min", *ac.Raw.BaroRate)}}
	case rate > 1000:
		return []AnomalyEntry{{Type: "extreme-vertical-rate", Severity: Medium, Details: fmt.Sprintf("%.0f ft/min", *ac.Raw.BaroRate)}}
	}
	return nil
}

func (f *AnomalyFilter) altitudeDeviation(ac *enrich.Aircraft) []AnomalyEntry {
	if ac.Raw.NavAltitudeMCP == nil || !ac.Calculated.HasAltitude {
		return nil
	}
	dev := math.Abs(ac.Calculated.Altitude - *ac.Raw.NavAltitudeMCP)
	if dev <= 1000 {
		return nil
	}
	return []AnomalyEntry{{Type: "altitude-deviation", Severity: Medium, Details: fmt.Sprintf("%.0fft from selected", dev)}}
}

func (f *AnomalyFilter) altitudeOscillation(data tracking.AircraftData) []AnomalyEntry {
	samples := data.GetField("alt_baro")
	changes := 0
	for i := 1; i < len(samples); i++ {
		if math.Abs(samples[i].Value-samples[i-1].Value) >= 300 {
			changes++
		}
	}
	if len(samples) < 5 || changes < 3 {
		return nil
	}
	stats := data.GetStats("alt_baro")
	rangeFt := stats.Max - stats.Min
	return []AnomalyEntry{{Type: "altitude-oscillation", Severity: Medium, Details: fmt.Sprintf("%d reversals over %.0fft range", changes, rangeFt)}}
}

func (f *AnomalyFilter) rapidVerticalRateChange(ac *enrich.Aircraft, data tracking.AircraftData) []AnomalyEntry {
	samples := data.GetField("baro_rate")
	if len(samples) <= f.lookbackIndex {
		return nil
	}
	latest := samples[len(samples)-1]
	prior := samples[len(samples)-1-f.lookbackIndex]
	delta := math.Abs(latest.Value - prior.Value)
	if delta <= 1500 {
		return nil
	}
	sev := Medium
	if hasTCAS(ac) {
		sev = High
	}
	return []AnomalyEntry{{Type: "rapid-vertical-rate-change", Severity: sev, Details: fmt.Sprintf("%.0f ft/min change", delta)}}
}

func hasTCAS(ac *enrich.Aircraft) bool {
	for _, m := range ac.Raw.NavModes {
		if strings.EqualFold(m, "tcas") {
			return true
		}
	}
	return false
}

func (f *AnomalyFilter) rapidSpeedChange(data tracking.AircraftData) []AnomalyEntry {
	samples := data.GetField("gs")
	if len(samples) < 2 {
		return nil
	}
	latest, prior := samples[len(samples)-1], samples[0]
	delta := math.Abs(latest.Value - prior.Value)
	if delta <= 50 {
		return nil
	}
	sev := Low
	if delta > 150 {
		sev = High
	} else if delta > 90 {
		sev = Medium
	}
	return []AnomalyEntry{{Type: "rapid-speed-change", Severity: sev, Details: fmt.Sprintf("%.0fkt change over %d samples", delta, len(samples))}}
}

func (f *AnomalyFilter) Evaluate(ac *enrich.Aircraft) bool {
	d, ok := ac.Calculated.FilterData[f.ID()].(AnomalyData)
	return ok && len(d.Entries) > 0
}

func (f *AnomalyFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(AnomalyData)
	db, _ := b.Calculated.FilterData[f.ID()].(AnomalyData)
	return da.highest() > db.highest()
}

func (f *AnomalyFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(AnomalyData)
	top := d.highest()
	types := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		types = append(types, e.Type)
	}
	return Result{
		Warn:     top == High || top == Critical,
		Severity: top,
		Text:     "anomaly: " + strings.Join(types, ", "),
		Extra:    map[string]interface{}{"entries": d.Entries},
	}
}
