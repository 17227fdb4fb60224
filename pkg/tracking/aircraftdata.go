package tracking

import (
	"math"

	"github.com/groundwatch/sentinel/pkg/snapshot"
)

// AircraftData is a read-only view over one hex's trail, used by
// filters that need history rather than a single snapshot (the
// anomaly and loitering filters in particular).
type AircraftData struct {
	hex     string
	trail   []Entry
	current snapshot.Aircraft
}

// Hex returns the tracked aircraft's hex code.
func (d AircraftData) Hex() string { return d.hex }

// Len returns the number of trail entries available.
func (d AircraftData) Len() int { return len(d.trail) }

// Current returns the most recently ingested raw snapshot for this hex.
func (d AircraftData) Current() snapshot.Aircraft { return d.current }

// Position is a trail sample reduced to a timestamped lat/lon.
type Position struct {
	Timestamp int64 // unix seconds, for easy delta math
	Lat, Lon  float64
}

// GetPositions returns every trail entry that carries a position, oldest first.
func (d AircraftData) GetPositions() []Position {
	out := make([]Position, 0, len(d.trail))
	for _, e := range d.trail {
		if e.Snapshot.Lat == nil || e.Snapshot.Lon == nil {
			continue
		}
		out = append(out, Position{
			Timestamp: e.Timestamp.Unix(),
			Lat:       *e.Snapshot.Lat,
			Lon:       *e.Snapshot.Lon,
		})
	}
	return out
}

// knownFields maps the field names filters may query to an accessor
// function. Only fields relevant to the anomaly/weather/loitering
// filters are supported; unknown names yield ok=false everywhere.
var knownFields = map[string]func(snapshot.Aircraft) (float64, bool){
	"alt_baro": func(a snapshot.Aircraft) (float64, bool) { return numeric(a.AltBaro) },
	"alt_geom": func(a snapshot.Aircraft) (float64, bool) { return numeric(a.AltGeom) },
	"gs":       func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Gs) },
	"tas":      func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Tas) },
	"track":    func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Track) },
	"baro_rate": func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.BaroRate) },
	"mach":      func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Mach) },
	"oat":       func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Oat) },
	"tat":       func(a snapshot.Aircraft) (float64, bool) { return ptrVal(a.Tat) },
}

func ptrVal(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		if t == "ground" {
			return 0, true
		}
	}
	return 0, false
}

// FieldSample pairs a field value with the timestamp it was observed at.
type FieldSample struct {
	Timestamp int64
	Value     float64
}

// GetField returns every trail sample where name resolved to a number,
// oldest first. An unknown field name yields nil.
func (d AircraftData) GetField(name string) []FieldSample {
	accessor, ok := knownFields[name]
	if !ok {
		return nil
	}
	out := make([]FieldSample, 0, len(d.trail))
	for _, e := range d.trail {
		if v, ok := accessor(e.Snapshot); ok {
			out = append(out, FieldSample{Timestamp: e.Timestamp.Unix(), Value: v})
		}
	}
	return out
}

// GetDirectionChanges counts the number of samples of an angular field
// (e.g. "track") whose consecutive delta, normalized to [-180, 180],
// is at least minDeltaDeg in absolute value. Because of that
// normalization it suits angular fields only.
func (d AircraftData) GetDirectionChanges(field string, minDeltaDeg float64) int {
	samples := d.GetField(field)
	if len(samples) < 2 {
		return 0
	}
	changes := 0
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Value - samples[i-1].Value
		for delta > 180 {
			delta -= 360
		}
		for delta < -180 {
			delta += 360
		}
		if math.Abs(delta) >= minDeltaDeg {
			changes++
		}
	}
	return changes
}

// FieldStats summarizes a numeric field across the trail.
type FieldStats struct {
	Count        int
	Mean         float64
	StdDev       float64
	Min, Max     float64
	HasVariation bool
}

// GetStats computes summary statistics for field across the trail.
func (d AircraftData) GetStats(field string) FieldStats {
	samples := d.GetField(field)
	if len(samples) == 0 {
		return FieldStats{}
	}

	stats := FieldStats{Count: len(samples), Min: samples[0].Value, Max: samples[0].Value}
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
		if s.Value < stats.Min {
			stats.Min = s.Value
		}
		if s.Value > stats.Max {
			stats.Max = s.Value
		}
	}
	stats.Mean = sum / float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		d := s.Value - stats.Mean
		variance += d * d
	}
	variance /= float64(len(samples))
	stats.StdDev = math.Sqrt(variance)
	stats.HasVariation = stats.Max != stats.Min

	return stats
}
