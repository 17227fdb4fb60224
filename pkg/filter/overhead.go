package filter

import (
	"fmt"
	"time"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/geo"
)

// OverheadData is the per-aircraft record the overhead filter writes.
type OverheadData struct {
	CrossTrackKm    float64
	AlongTrackKm    float64
	OverheadFuture  bool
	WillIntersect   bool
	TimeToOverhead  time.Duration
	SlantRangeKm    float64
	VerticalAngle   float64
}

// OverheadFilter fires when an aircraft's track will carry it over
// (near) the station within a configured time window (spec.md §4.7
// "overhead", priority 3).
type OverheadFilter struct {
	radiusKm  float64
	window    time.Duration
	distanceKm float64
	altitudeFt float64
}

func NewOverheadFilter() *OverheadFilter {
	return &OverheadFilter{radiusKm: 1.0, window: 2 * time.Minute, distanceKm: 50, altitudeFt: 40000}
}

func (f *OverheadFilter) ID() string    { return "overhead" }
func (f *OverheadFilter) Priority() int { return 3 }

func (f *OverheadFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.radiusKm = cfgFloat(cfg, "radius", f.radiusKm)
	f.distanceKm = cfgFloat(cfg, "distance", f.distanceKm)
	f.altitudeFt = cfgFloat(cfg, "altitude", f.altitudeFt)
	if secs := cfgFloat(cfg, "time", 0); secs > 0 {
		f.window = time.Duration(secs) * time.Second
	}
	return nil
}

func (f *OverheadFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil {
		return
	}
	lat, lon, ok := position(ac)
	if !ok || ac.Raw.Track == nil {
		return
	}
	if ac.Calculated.HasDistance && ac.Calculated.Distance > f.distanceKm {
		return
	}
	if ac.Calculated.HasAltitude && ac.Calculated.Altitude > f.altitudeFt {
		return
	}

	xt, err := geo.CalculateCrossTrackDistance(ctx.Station.Lat, ctx.Station.Lon, lat, lon, *ac.Raw.Track)
	if err != nil {
		return
	}

	data := OverheadData{CrossTrackKm: xt.CrossTrack, AlongTrackKm: xt.AlongTrack, OverheadFuture: xt.IsApproaching}

	if xt.IsApproaching && ac.Raw.Gs != nil && *ac.Raw.Gs > 0 {
		speedKmPerSec := geo.KnotsToKmPerMin(*ac.Raw.Gs) / 60.0
		secondsToOverhead := xt.AlongTrack / speedKmPerSec
		data.TimeToOverhead = time.Duration(secondsToOverhead * float64(time.Second))
		data.WillIntersect = data.TimeToOverhead >= 0 && data.TimeToOverhead <= f.window

		slant, vErr := geo.CalculateDistance(ctx.Station.Lat, ctx.Station.Lon, lat, lon)
		if vErr == nil {
			data.SlantRangeKm = slant
			if ac.Calculated.HasAltitude {
				if angle, aErr := geo.CalculateVerticalAngle(slant, ac.Calculated.Altitude, ctx.Station.Lat); aErr == nil {
					data.VerticalAngle = angle
				}
			}
		}
	}

	ac.Calculated.FilterData[f.ID()] = data
}

func (f *OverheadFilter) Evaluate(ac *enrich.Aircraft) bool {
	d, ok := ac.Calculated.FilterData[f.ID()].(OverheadData)
	return ok && d.WillIntersect
}

func (f *OverheadFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(OverheadData)
	db, _ := b.Calculated.FilterData[f.ID()].(OverheadData)
	return da.TimeToOverhead < db.TimeToOverhead
}

func (f *OverheadFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(OverheadData)
	return Result{
		Warn:     true,
		Severity: Medium,
		Text:     fmt.Sprintf("overhead: in %.0fs, slant %.2fkm", d.TimeToOverhead.Seconds(), d.SlantRangeKm),
		Extra: map[string]interface{}{
			"timeToOverheadSeconds": d.TimeToOverhead.Seconds(),
			"slantRangeKm":          d.SlantRangeKm,
			"verticalAngle":         d.VerticalAngle,
		},
	}
}
