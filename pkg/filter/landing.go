package filter

import (
	"fmt"

	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/geo"
)

// categoryDescentFtPerMin are the minimum per-category descent rates
// used to separate a normal approach from level cruise chatter.
// Category codes follow the ADS-B emitter-category scheme (A0..D7).
var categoryDescentFtPerMin = map[string]float64{
	"A4": -300, // high vortex large
	"A5": -300, // heavy
	"A7": -100, // rotorcraft
}

const defaultDescentFtPerMin = -200 // light/other

func minDescentRate(category *string) float64 {
	if category == nil {
		return defaultDescentFtPerMin
	}
	if v, ok := categoryDescentFtPerMin[*category]; ok {
		return v
	}
	return defaultDescentFtPerMin
}

// LandingData is the per-aircraft record the landing filter writes.
type LandingData struct {
	GroundPointLat, GroundPointLon float64
	DistanceToStationKm            float64
	MatchedAirport                 string
	IsPossibleLanding              bool
}

// LandingFilter fires when an aircraft is descending fast enough, and
// projected to reach the ground, within radius of the station
// (spec.md §4.7 "landing", priority 2).
type LandingFilter struct {
	radiusKm float64
}

func NewLandingFilter() *LandingFilter { return &LandingFilter{radiusKm: 10} }

func (f *LandingFilter) ID() string    { return "landing" }
func (f *LandingFilter) Priority() int { return 2 }

func (f *LandingFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.radiusKm = cfgFloat(cfg, "radius", f.radiusKm)
	return nil
}

func (f *LandingFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil || ac.Raw.BaroRate == nil || ac.Raw.Track == nil || ac.Raw.Gs == nil {
		return
	}
	if !ac.Calculated.HasAltitude || ac.Calculated.Altitude <= 0 {
		return
	}
	if *ac.Raw.BaroRate > minDescentRate(ac.Raw.Category) {
		return
	}

	lat, lon, ok := position(ac)
	if !ok {
		return
	}

	minutesToGround := ac.Calculated.Altitude / -(*ac.Raw.BaroRate)
	distanceKm := geo.KnotsToKmPerMin(*ac.Raw.Gs) * minutesToGround
	point, err := geo.ProjectPosition(lat, lon, distanceKm, *ac.Raw.Track)
	if err != nil {
		return
	}

	dist, err := geo.CalculateDistance(ctx.Station.Lat, ctx.Station.Lon, point.Lat, point.Lon)
	if err != nil || dist > f.radiusKm {
		return
	}

	data := LandingData{GroundPointLat: point.Lat, GroundPointLon: point.Lon, DistanceToStationKm: dist}
	if ctx.Airports != nil {
		var matches []airport.NearbyResult
		matches = ctx.Airports.FindNearby(point.Lat, point.Lon, airport.FindNearbyOptions{})
		if len(matches) > 0 {
			data.MatchedAirport = matches[0].Airport.ICAO
			data.IsPossibleLanding = true
		}
	}

	ac.Calculated.FilterData[f.ID()] = data
}

func (f *LandingFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(LandingData)
	return ok
}

func (f *LandingFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(LandingData)
	db, _ := b.Calculated.FilterData[f.ID()].(LandingData)
	return da.DistanceToStationKm < db.DistanceToStationKm
}

func (f *LandingFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(LandingData)
	return Result{
		Warn:     !d.IsPossibleLanding,
		Severity: Low,
		Text:     fmt.Sprintf("landing: possible landing near %s", orUnknown(d.MatchedAirport)),
		Extra: map[string]interface{}{
			"matchedAirport":     d.MatchedAirport,
			"isPossibleLanding":  d.IsPossibleLanding,
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "no known airport"
	}
	return s
}
