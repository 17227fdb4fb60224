package filter

import (
	"fmt"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/squawks"
)

// SquawksData is the per-aircraft record the squawks filter writes.
type SquawksData struct {
	Code squawks.Code
}

// SquawksFilter looks the aircraft's squawk up in the squawks registry
// (spec.md §4.7 "squawks", priority ~6).
type SquawksFilter struct{}

func NewSquawksFilter() *SquawksFilter { return &SquawksFilter{} }

func (f *SquawksFilter) ID() string    { return "squawks" }
func (f *SquawksFilter) Priority() int { return 6 }

func (f *SquawksFilter) Configure(cfg map[string]interface{}, ctx *Context) error { return nil }

func (f *SquawksFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	if ctx == nil || ctx.Squawks == nil || ac.Raw.Squawk == nil {
		return
	}
	code, ok := ctx.Squawks.Lookup(*ac.Raw.Squawk)
	if !ok {
		return
	}
	ac.Calculated.FilterData[f.ID()] = SquawksData{Code: code}
}

func (f *SquawksFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(SquawksData)
	return ok
}

func (f *SquawksFilter) Sort(a, b *enrich.Aircraft) bool { return distanceLess(*a, *b) }

func (f *SquawksFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(SquawksData)
	return Result{
		Warn:     false,
		Severity: Info,
		Text:     fmt.Sprintf("squawk: %s (%s)", *ac.Raw.Squawk, d.Code.Description),
		Extra:    map[string]interface{}{"code": d.Code},
	}
}
