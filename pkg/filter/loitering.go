package filter

import (
	"fmt"
	"math"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/geo"
)

// LoiteringData is the per-aircraft record the loitering filter writes.
type LoiteringData struct {
	CircularVariance float64
	ExtentKm         float64
	Samples          int
}

// LoiteringFilter resolves spec.md's left-open loitering predicate
// (see SPEC_FULL.md §4.7/§10): it fires when, over the trajectory
// trail, ground track shows high circular variance (headings spread
// across the compass rather than holding one direction — the
// signature of repeated turning) while the aircraft's bounding-box
// extent stays small (it isn't actually going anywhere).
type LoiteringFilter struct {
	minSamples         int
	varianceThreshold  float64
	extentKm           float64
}

func NewLoiteringFilter() *LoiteringFilter {
	return &LoiteringFilter{minSamples: 5, varianceThreshold: 0.5, extentKm: geo.NmToKm(5)}
}

func (f *LoiteringFilter) ID() string    { return "loitering" }
func (f *LoiteringFilter) Priority() int { return 5 }

func (f *LoiteringFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.varianceThreshold = cfgFloat(cfg, "varianceThreshold", f.varianceThreshold)
	f.extentKm = cfgFloat(cfg, "extentKm", f.extentKm)
	return nil
}

func (f *LoiteringFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil || ctx.Tracker == nil || ac.Raw.Hex == "" {
		return
	}
	data := ctx.Tracker.Data(ac.Raw.Hex)

	tracks := data.GetField("track")
	if len(tracks) < f.minSamples {
		return
	}

	var sumCos, sumSin float64
	for _, s := range tracks {
		sumCos += math.Cos(geo.Deg2Rad(s.Value))
		sumSin += math.Sin(geo.Deg2Rad(s.Value))
	}
	n := float64(len(tracks))
	r := math.Sqrt(sumCos*sumCos+sumSin*sumSin) / n
	variance := 1 - r

	positions := data.GetPositions()
	if len(positions) < f.minSamples {
		return
	}
	minLat, maxLat := positions[0].Lat, positions[0].Lat
	minLon, maxLon := positions[0].Lon, positions[0].Lon
	for _, p := range positions {
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
	}
	diagonalKm, err := geo.CalculateDistance(minLat, minLon, maxLat, maxLon)
	if err != nil {
		return
	}

	if variance < f.varianceThreshold || diagonalKm > f.extentKm {
		return
	}

	ac.Calculated.FilterData[f.ID()] = LoiteringData{
		CircularVariance: variance,
		ExtentKm:         diagonalKm,
		Samples:          len(tracks),
	}
}

func (f *LoiteringFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(LoiteringData)
	return ok
}

func (f *LoiteringFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(LoiteringData)
	db, _ := b.Calculated.FilterData[f.ID()].(LoiteringData)
	return da.CircularVariance > db.CircularVariance
}

func (f *LoiteringFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(LoiteringData)
	return Result{
		Warn:     false,
		Severity: Low,
		Text:     fmt.Sprintf("loitering: variance %.2f over %.2fkm extent", d.CircularVariance, d.ExtentKm),
		Extra:    map[string]interface{}{"circularVariance": d.CircularVariance, "extentKm": d.ExtentKm},
	}
}
