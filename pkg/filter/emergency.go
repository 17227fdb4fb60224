package filter

import (
	"github.com/groundwatch/sentinel/pkg/enrich"
)

// EmergencyData is the per-aircraft record the emergency filter writes.
type EmergencyData struct {
	Type     string
	Source   string // adsb_status | squawk | both | mismatch
	Squawk   string
	Declared string // the raw ADS-B emergency field value, if any
}

var emergencyTypeByADSB = map[string]string{
	"general":   "general_emergency",
	"lifeguard": "medical_emergency",
	"minfuel":   "minimum_fuel",
	"nordo":     "radio_failure",
	"unlawful":  "hijack",
	"downed":    "downed_aircraft",
	"reserved":  "reserved_emergency",
}

var emergencyTypeBySquawk = map[string]string{
	"7500": "hijack",
	"7600": "radio_failure",
	"7700": "general_emergency",
}

// EmergencyFilter implements the priority-1 emergency detector
// (spec.md §4.7 "emergency").
type EmergencyFilter struct{}

func NewEmergencyFilter() *EmergencyFilter { return &EmergencyFilter{} }

func (f *EmergencyFilter) ID() string     { return "emergency" }
func (f *EmergencyFilter) Priority() int  { return 1 }

func (f *EmergencyFilter) Configure(cfg map[string]interface{}, ctx *Context) error { return nil }

func declaredEmergency(raw *enrich.Aircraft) (string, bool) {
	if raw.Raw.Emergency == nil {
		return "", false
	}
	v := *raw.Raw.Emergency
	if v == "" || v == "none" || v == "undefined" {
		return v, false
	}
	return v, true
}

func emergencySquawk(raw *enrich.Aircraft) (string, bool) {
	if raw.Raw.Squawk == nil {
		return "", false
	}
	s := *raw.Raw.Squawk
	switch s {
	case "7500", "7600", "7700":
		return s, true
	}
	return "", false
}

func (f *EmergencyFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	declared, hasADSB := declaredEmergency(ac)
	squawk, hasSquawk := emergencySquawk(ac)

	adsbNone := ac.Raw.Emergency != nil && *ac.Raw.Emergency == "none"

	data := EmergencyData{Declared: declared, Squawk: squawk}

	switch {
	case adsbNone && hasSquawk:
		data.Type = "emergency_mismatch"
		data.Source = "mismatch"
	case hasADSB && hasSquawk:
		data.Type = emergencyTypeByADSB[declared]
		if data.Type == "" {
			data.Type = "reserved_emergency"
		}
		data.Source = "both"
	case hasADSB:
		data.Type = emergencyTypeByADSB[declared]
		if data.Type == "" {
			data.Type = "reserved_emergency"
		}
		data.Source = "adsb_status"
	case hasSquawk:
		data.Type = emergencyTypeBySquawk[squawk]
		data.Source = "squawk"
	default:
		return
	}

	ac.Calculated.FilterData[f.ID()] = data
}

func (f *EmergencyFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()]
	return ok
}

func (f *EmergencyFilter) severity(d EmergencyData) Severity {
	switch {
	case d.Source == "mismatch":
		return Medium
	case d.Type == "general_emergency", d.Type == "hijack", d.Type == "downed_aircraft":
		return Critical
	case d.Squawk == "7500" || d.Squawk == "7700":
		return Critical
	case d.Type == "medical_emergency", d.Type == "minimum_fuel":
		return High
	case d.Type == "radio_failure", d.Squawk == "7600":
		return Medium
	default:
		return High
	}
}

func (f *EmergencyFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(EmergencyData)
	db, _ := b.Calculated.FilterData[f.ID()].(EmergencyData)
	sa, sb := f.severity(da), f.severity(db)
	if sa != sb {
		return sa > sb
	}
	return distanceLess(*a, *b)
}

func (f *EmergencyFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(EmergencyData)
	return Result{
		Warn:     true,
		Severity: f.severity(d),
		Text:     "emergency: " + d.Type + " (" + d.Source + ")",
		Extra: map[string]interface{}{
			"type":   d.Type,
			"source": d.Source,
		},
	}
}
