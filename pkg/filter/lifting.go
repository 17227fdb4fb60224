package filter

import (
	"fmt"
	"math"

	"github.com/groundwatch/sentinel/pkg/enrich"
)

var categoryClimbFtPerMin = map[string]float64{
	"A4": 300,
	"A5": 300,
	"A7": 100,
}

const defaultClimbFtPerMin = 200

func minClimbRate(category *string) float64 {
	if category == nil {
		return defaultClimbFtPerMin
	}
	if v, ok := categoryClimbFtPerMin[*category]; ok {
		return v
	}
	return defaultClimbFtPerMin
}

// LiftingData is the per-aircraft record the lifting filter writes.
type LiftingData struct {
	Score float64
}

// LiftingFilter is the climb-side mirror of LandingFilter: it scores
// how strongly an aircraft looks like it just took off (spec.md §4.7
// "lifting", priority 2).
type LiftingFilter struct {
	minClimbRateOverride float64
	hasOverride          bool
}

func NewLiftingFilter() *LiftingFilter { return &LiftingFilter{} }

func (f *LiftingFilter) ID() string    { return "lifting" }
func (f *LiftingFilter) Priority() int { return 2 }

func (f *LiftingFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	if cfg != nil {
		if _, ok := cfg["minClimbRate"]; ok {
			f.minClimbRateOverride = cfgFloat(cfg, "minClimbRate", 0)
			f.hasOverride = true
		}
	}
	return nil
}

func (f *LiftingFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ac.Raw.BaroRate == nil || !ac.Calculated.HasAltitude {
		return
	}

	threshold := minClimbRate(ac.Raw.Category)
	if f.hasOverride {
		threshold = f.minClimbRateOverride
	}
	if *ac.Raw.BaroRate < threshold {
		return
	}

	climbWeight := 1.0
	if ac.Calculated.Altitude < 3000 {
		climbWeight = 2.0
	}

	speedWeight := 0.8
	gs := 0.0
	if ac.Raw.Gs != nil {
		gs = *ac.Raw.Gs
	}
	if gs > 50 && gs < 250 {
		speedWeight = 1.2
	}

	altFactor := 1 - math.Min(1, ac.Calculated.Altitude/10000)
	score := (climbWeight * (*ac.Raw.BaroRate) / 100) * altFactor * speedWeight

	if score < 3 {
		return
	}
	ac.Calculated.FilterData[f.ID()] = LiftingData{Score: score}
}

func (f *LiftingFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(LiftingData)
	return ok
}

func (f *LiftingFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(LiftingData)
	db, _ := b.Calculated.FilterData[f.ID()].(LiftingData)
	return da.Score > db.Score
}

func (f *LiftingFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(LiftingData)
	return Result{
		Warn:     true,
		Severity: Low,
		Text:     fmt.Sprintf("lifting: score %.2f", d.Score),
		Extra:    map[string]interface{}{"score": d.Score},
	}
}
