// Package enrich implements the preprocessor (spec.md §4.4): it turns
// a raw snapshot.Aircraft into an Enriched aircraft carrying a
// `Calculated` block with derived kinematic and geographic attributes.
// Filters and the trajectory tracker build on top of this block.
package enrich

import (
	"math"
	"time"

	"github.com/groundwatch/sentinel/pkg/geo"
	"github.com/groundwatch/sentinel/pkg/snapshot"
)

// Calculated is the derived attribute block attached to every
// enriched aircraft. Individual filters add their own sub-records
// under FilterData, keyed by filter id, during their preprocess pass.
type Calculated struct {
	// Altitude is in feet; HasAltitude is false when neither alt_baro
	// nor alt_geom could be resolved to a number.
	Altitude    float64
	HasAltitude bool

	// Distance is the great-circle distance from the station, in km.
	Distance    float64
	HasDistance bool

	PositionRelative *geo.RelativePosition

	// PositionCarriedForward is true when lat/lon were copied forward from a
	// previous snapshot's LastPosition rather than reported directly.
	PositionCarriedForward bool

	TimestampUpdated time.Time

	// FilterData holds each filter's own sub-record, indexed by filter id.
	FilterData map[string]interface{}
}

// Aircraft pairs a raw snapshot aircraft with its derived Calculated block.
type Aircraft struct {
	Raw        snapshot.Aircraft
	Calculated Calculated
}

// Station is the ground station's reference position.
type Station struct {
	Lat float64
	Lon float64
}

// Preprocess enriches every aircraft in acs relative to station. It is
// idempotent: calling it twice on the same input (up to the
// TimestampUpdated stamp) yields equal Calculated records, satisfying
// spec.md §8 property 6.
func Preprocess(acs []snapshot.Aircraft, station Station, now time.Time) []Aircraft {
	out := make([]Aircraft, len(acs))
	for i, raw := range acs {
		out[i] = preprocessOne(raw, station, now)
	}
	return out
}

func preprocessOne(raw snapshot.Aircraft, station Station, now time.Time) Aircraft {
	calc := Calculated{FilterData: make(map[string]interface{})}

	lat, lon, hasPosition := resolvePosition(&raw)
	calc.PositionCarriedForward = hasPosition && raw.Lat == nil && raw.Lon == nil && raw.LastPosition != nil

	alt, hasAlt := normalizeAltitude(raw.AltBaro, raw.AltGeom)
	calc.Altitude = alt
	calc.HasAltitude = hasAlt

	if hasPosition {
		if dist, err := geo.CalculateDistance(station.Lat, station.Lon, lat, lon); err == nil {
			calc.Distance = dist
			calc.HasDistance = true
		}

		if raw.Track != nil {
			if rp, err := geo.CalculateRelativePosition(station.Lat, station.Lon, lat, lon, *raw.Track); err == nil {
				calc.PositionRelative = &rp
			}
		}
	}

	calc.TimestampUpdated = now

	return Aircraft{Raw: raw, Calculated: calc}
}

// resolvePosition returns the aircraft's effective lat/lon, preferring
// the reported position but falling back to LastPosition when lat/lon
// is missing (spec.md §4.4).
func resolvePosition(raw *snapshot.Aircraft) (lat, lon float64, ok bool) {
	if raw.Lat != nil && raw.Lon != nil {
		return *raw.Lat, *raw.Lon, true
	}
	if raw.LastPosition != nil {
		return raw.LastPosition.Lat, raw.LastPosition.Lon, true
	}
	return 0, 0, false
}

// normalizeAltitude prefers alt_baro over alt_geom, maps the literal
// "ground" to 0, and reports ok=false when neither field resolves to
// a number.
func normalizeAltitude(altBaro, altGeom interface{}) (feet float64, ok bool) {
	if v, ok := numericAltitude(altBaro); ok {
		return v, true
	}
	if v, ok := numericAltitude(altGeom); ok {
		return v, true
	}
	return 0, false
}

func numericAltitude(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		if t == "ground" {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}
