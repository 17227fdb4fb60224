package filter

import (
	"fmt"

	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/enrich"
)

// AirportData is the per-aircraft record the airport filter writes:
// every ATZ the aircraft currently falls within, nearest first.
type AirportData struct {
	Nearby []airport.NearbyResult
}

// AirportFilter fires when an aircraft is inside any airport's ATZ
// (spec.md §4.7 "airport", priority 5).
type AirportFilter struct {
	altitudeFt    *float64
	hasAltitude   bool
}

func NewAirportFilter() *AirportFilter { return &AirportFilter{} }

func (f *AirportFilter) ID() string    { return "airport" }
func (f *AirportFilter) Priority() int { return 5 }

func (f *AirportFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	if cfg != nil {
		if _, ok := cfg["altitude"]; ok {
			v := cfgFloat(cfg, "altitude", 0)
			f.altitudeFt = &v
			f.hasAltitude = true
		}
	}
	return nil
}

func (f *AirportFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil || ctx.Airports == nil {
		return
	}
	lat, lon, ok := position(ac)
	if !ok {
		return
	}

	opts := airport.FindNearbyOptions{}
	if f.hasAltitude {
		opts.AltitudeFt = f.altitudeFt
	} else if ac.Calculated.HasAltitude {
		alt := ac.Calculated.Altitude
		opts.AltitudeFt = &alt
	}

	nearby := ctx.Airports.FindNearby(lat, lon, opts)
	ac.Calculated.FilterData[f.ID()] = AirportData{Nearby: nearby}
}

func position(ac *enrich.Aircraft) (float64, float64, bool) {
	if ac.Raw.Lat != nil && ac.Raw.Lon != nil {
		return *ac.Raw.Lat, *ac.Raw.Lon, true
	}
	if ac.Raw.LastPosition != nil {
		return ac.Raw.LastPosition.Lat, ac.Raw.LastPosition.Lon, true
	}
	return 0, 0, false
}

func (f *AirportFilter) Evaluate(ac *enrich.Aircraft) bool {
	d, ok := ac.Calculated.FilterData[f.ID()].(AirportData)
	return ok && len(d.Nearby) > 0
}

func (f *AirportFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(AirportData)
	db, _ := b.Calculated.FilterData[f.ID()].(AirportData)
	da2, db2 := closestDistance(da), closestDistance(db)
	return da2 < db2
}

func closestDistance(d AirportData) float64 {
	if len(d.Nearby) == 0 {
		return 1e18
	}
	return d.Nearby[0].DistanceKm
}

func (f *AirportFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(AirportData)
	icao := ""
	if len(d.Nearby) > 0 {
		icao = d.Nearby[0].Airport.ICAO
	}
	return Result{
		Warn:     true,
		Severity: Low,
		Text:     fmt.Sprintf("airport: near %s", icao),
		Extra:    map[string]interface{}{"nearby": d.Nearby},
	}
}
