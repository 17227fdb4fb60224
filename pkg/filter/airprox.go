package filter

import (
	"fmt"

	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/geo"
)

// AirproxData is the per-aircraft record the airprox filter writes.
type AirproxData struct {
	OtherHex        string
	HorizontalNM    float64
	VerticalFt      float64
	Category        string // A (most severe) .. D
	ClosureRateKt   float64
	TimeToCPASecond float64
	Converging      bool
}

// AirproxFilter detects close-proximity pairs of aircraft outside any
// airport ATZ (spec.md §4.7 "airprox", priority 1).
type AirproxFilter struct {
	horizontalThresholdNM float64
	verticalThresholdFt   float64
}

func NewAirproxFilter() *AirproxFilter {
	return &AirproxFilter{horizontalThresholdNM: 1.0, verticalThresholdFt: 1000}
}

func (f *AirproxFilter) ID() string    { return "airprox" }
func (f *AirproxFilter) Priority() int { return 1 }

func (f *AirproxFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.horizontalThresholdNM = cfgFloat(cfg, "horizontalThreshold", f.horizontalThresholdNM)
	f.verticalThresholdFt = cfgFloat(cfg, "verticalThreshold", f.verticalThresholdFt)
	return nil
}

func (f *AirproxFilter) inATZ(ctx *Context, lat, lon float64) bool {
	if ctx.Airports == nil {
		return false
	}
	return len(ctx.Airports.FindNearby(lat, lon, airport.FindNearbyOptions{})) > 0
}

func (f *AirproxFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil || ac.Raw.Track == nil || ac.Raw.Gs == nil || !ac.Calculated.HasAltitude {
		return
	}
	lat, lon, ok := position(ac)
	if !ok || f.inATZ(ctx, lat, lon) {
		return
	}

	var best *enrich.Aircraft
	var bestHorizNM, bestVertFt float64

	for i := range ctx.Aircraft {
		other := &ctx.Aircraft[i]
		if other.Raw.Hex == ac.Raw.Hex {
			continue
		}
		if other.Raw.Track == nil || other.Raw.Gs == nil || !other.Calculated.HasAltitude {
			continue
		}
		olat, olon, ok := position(other)
		if !ok || f.inATZ(ctx, olat, olon) {
			continue
		}

		distKm, err := geo.CalculateDistance(lat, lon, olat, olon)
		if err != nil {
			continue
		}
		horizNM := distKm / geo.NM
		vertFt := abs(ac.Calculated.Altitude - other.Calculated.Altitude)

		if horizNM >= f.horizontalThresholdNM || vertFt >= f.verticalThresholdFt {
			continue
		}
		if best == nil || horizNM < bestHorizNM {
			best = other
			bestHorizNM = horizNM
			bestVertFt = vertFt
		}
	}

	if best == nil {
		return
	}

	closure, err := geo.ClosureGeometry(
		geo.Kinematic{Lat: lat, Lon: lon, TrackDeg: *ac.Raw.Track, SpeedKmMin: geo.KnotsToKmPerMin(*ac.Raw.Gs)},
		func() geo.Kinematic {
			olat, olon, _ := position(best)
			return geo.Kinematic{Lat: olat, Lon: olon, TrackDeg: *best.Raw.Track, SpeedKmMin: geo.KnotsToKmPerMin(*best.Raw.Gs)}
		}(),
	)
	var closureRateKt, timeToCPA float64
	var converging bool
	if err == nil {
		closureRateKt = closure.ClosureRateKmMin * 60 / geo.NM
		timeToCPA = closure.TimeToCPASeconds
		converging = closure.Converging
	}

	category := airproxCategory(bestHorizNM, bestVertFt)
	if closureRateKt > 400 {
		category = escalate(category)
	}

	ac.Calculated.FilterData[f.ID()] = AirproxData{
		OtherHex:        best.Raw.Hex,
		HorizontalNM:    bestHorizNM,
		VerticalFt:      bestVertFt,
		Category:        category,
		ClosureRateKt:   closureRateKt,
		TimeToCPASecond: timeToCPA,
		Converging:      converging,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func airproxCategory(horizNM, vertFt float64) string {
	switch {
	case horizNM < 0.25 && vertFt < 500:
		return "A"
	case horizNM < 0.5 && vertFt < 500:
		return "B"
	case horizNM < 1.0:
		return "C"
	default:
		return "D"
	}
}

func escalate(category string) string {
	switch category {
	case "D":
		return "C"
	case "C":
		return "B"
	case "B":
		return "A"
	default:
		return category
	}
}

func (f *AirproxFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(AirproxData)
	return ok
}

func (f *AirproxFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(AirproxData)
	db, _ := b.Calculated.FilterData[f.ID()].(AirproxData)
	if da.Category != db.Category {
		return da.Category < db.Category // "A" < "B" < "C" < "D" lexically
	}
	return da.HorizontalNM < db.HorizontalNM
}

func (f *AirproxFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(AirproxData)
	sev := Critical
	switch d.Category {
	case "B":
		sev = High
	case "C":
		sev = Medium
	case "D":
		sev = Low
	}
	return Result{
		Warn:     true,
		Severity: sev,
		Text:     fmt.Sprintf("airprox: category %s vs %s, %.2f NM / %.0f ft", d.Category, d.OtherHex, d.HorizontalNM, d.VerticalFt),
		Extra: map[string]interface{}{
			"otherAircraft":   d.OtherHex,
			"category":        d.Category,
			"closureRateKt":   d.ClosureRateKt,
			"timeToCPASecond": d.TimeToCPASecond,
		},
	}
}
