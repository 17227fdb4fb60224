package filter

import (
	"fmt"

	"github.com/groundwatch/sentinel/pkg/enrich"
)

// VicinityFilter fires for any aircraft inside a simple distance+altitude
// box around the station (spec.md §4.7 "vicinity", priority 4).
type VicinityFilter struct {
	distanceKm float64
	altitudeFt float64
}

func NewVicinityFilter() *VicinityFilter {
	return &VicinityFilter{distanceKm: 10, altitudeFt: 10000}
}

func (f *VicinityFilter) ID() string    { return "vicinity" }
func (f *VicinityFilter) Priority() int { return 4 }

func (f *VicinityFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	f.distanceKm = cfgFloat(cfg, "distance", f.distanceKm)
	f.altitudeFt = cfgFloat(cfg, "altitude", f.altitudeFt)
	return nil
}

func (f *VicinityFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {}

func (f *VicinityFilter) Evaluate(ac *enrich.Aircraft) bool {
	return ac.Calculated.HasDistance && ac.Calculated.Distance <= f.distanceKm &&
		ac.Calculated.HasAltitude && ac.Calculated.Altitude <= f.altitudeFt
}

func (f *VicinityFilter) Sort(a, b *enrich.Aircraft) bool { return distanceLess(*a, *b) }

func (f *VicinityFilter) Format(ac *enrich.Aircraft) Result {
	return Result{
		Warn:     true,
		Severity: Low,
		Text:     fmt.Sprintf("vicinity: %.2f km", ac.Calculated.Distance),
		Extra:    map[string]interface{}{"distanceKm": ac.Calculated.Distance},
	}
}
