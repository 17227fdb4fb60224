package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

// WeatherEntry is one independent weather-inference sub-detector's finding.
type WeatherEntry struct {
	Type     string
	Severity Severity
	Details  string
}

// WeatherData is the per-aircraft record the weather filter writes.
type WeatherData struct {
	Entries []WeatherEntry
}

func (d WeatherData) highest() Severity {
	top := Info
	for _, e := range d.Entries {
		if e.Severity > top {
			top = e.Severity
		}
	}
	return top
}

// WeatherFilter infers likely weather conditions from each aircraft's
// own data: turbulence (baro_rate spread over its trail), strong winds
// (gs/tas gap) and temperature inversion (oat against the ISA lapse)
// (spec.md §4.7 "weather", priority 5). Configure reads icingEnabled
// and severeIcingEnabled, but no icing detector is implemented, so
// those settings change nothing.
type WeatherFilter struct {
	icingEnabled       bool
	severeIcingEnabled bool
}

func NewWeatherFilter() *WeatherFilter { return &WeatherFilter{} }

func (f *WeatherFilter) ID() string    { return "weather" }
func (f *WeatherFilter) Priority() int { return 5 }

func (f *WeatherFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.icingEnabled = cfgBool(cfg, "icingEnabled", false)
	f.severeIcingEnabled = cfgBool(cfg, "severeIcingEnabled", false)
	return nil
}

func (f *WeatherFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	var entries []WeatherEntry

	if ctx != nil && ctx.Tracker != nil && ac.Raw.Hex != "" {
		entries = append(entries, f.turbulence(ctx.Tracker.Data(ac.Raw.Hex))...)
	}
	entries = append(entries, f.strongWinds(ac)...)
	entries = append(entries, f.temperatureInversion(ac)...)

	if len(entries) == 0 {
		return
	}
	ac.Calculated.FilterData[f.ID()] = WeatherData{Entries: entries}
}

func (f *WeatherFilter) turbulence(data tracking.AircraftData) []WeatherEntry {
	stats := data.GetStats("baro_rate")
	if stats.Count < 5 {
		return nil
	}
	switch {
	case stats.StdDev > 1000:
		return []WeatherEntry{{Type: "turbulence", Severity: High, Details: fmt.Sprintf("stddev %.0f ft/min", stats.StdDev)}}
	case stats.StdDev > 600:
		return []WeatherEntry{{Type: "turbulence", Severity: Medium, Details: fmt.Sprintf("stddev %.0f ft/min", stats.StdDev)}}
	}
	return nil
}

func (f *WeatherFilter) strongWinds(ac *enrich.Aircraft) []WeatherEntry {
	if ac.Raw.Gs == nil || ac.Raw.Tas == nil || !ac.Calculated.HasAltitude {
		return nil
	}
	diff := math.Abs(*ac.Raw.Gs - *ac.Raw.Tas)
	if diff < 40 {
		return nil
	}
	sev := Low
	switch {
	case diff > 100:
		sev = High
	case diff > 70:
		sev = Medium
	}
	return []WeatherEntry{{Type: "strong-winds", Severity: sev, Details: fmt.Sprintf("%.0fkt gs/tas diff", diff)}}
}

func (f *WeatherFilter) temperatureInversion(ac *enrich.Aircraft) []WeatherEntry {
	if ac.Raw.Oat == nil || !ac.Calculated.HasAltitude {
		return nil
	}
	expected := 15 - (ac.Calculated.Altitude/1000)*2
	dev := math.Abs(*ac.Raw.Oat - expected)
	if dev <= 10 {
		return nil
	}
	return []WeatherEntry{{Type: "temperature-inversion", Severity: Low, Details: fmt.Sprintf("%.1f°C deviation from ISA lapse", dev)}}
}

func (f *WeatherFilter) Evaluate(ac *enrich.Aircraft) bool {
	d, ok := ac.Calculated.FilterData[f.ID()].(WeatherData)
	return ok && len(d.Entries) > 0
}

func (f *WeatherFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(WeatherData)
	db, _ := b.Calculated.FilterData[f.ID()].(WeatherData)
	return da.highest() > db.highest()
}

func (f *WeatherFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(WeatherData)
	types := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		types = append(types, e.Type)
	}
	return Result{
		Warn:     false,
		Severity: d.highest(),
		Text:     "weather: " + strings.Join(types, ", "),
		Extra:    map[string]interface{}{"entries": d.Entries},
	}
}
