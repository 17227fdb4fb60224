// Package snapshot defines the wire shape of an ADS-B aircraft
// snapshot as polled from a local receiver, and the client that
// fetches it. The shape mirrors a dump1090/readsb-style /data/aircraft.json
// endpoint: each field the receiver may omit is a pointer so its
// absence is distinguishable from a zero value.
package snapshot

import "time"

// Aircraft is a single aircraft's state as reported by one snapshot.
// Fields of the source JSON not named here are dropped on decoding:
// Extra carries the json:"-" tag, so decoding never fills it and
// encoding never writes it.
type Aircraft struct {
	Hex       string  `json:"hex"`
	Flight    *string `json:"flight,omitempty"`
	Squawk    *string `json:"squawk,omitempty"`
	Category  *string `json:"category,omitempty"`
	Emergency *string `json:"emergency,omitempty"`

	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Track *float64 `json:"track,omitempty"`
	Gs    *float64 `json:"gs,omitempty"`

	BaroRate *float64 `json:"baro_rate,omitempty"`
	Tas      *float64 `json:"tas,omitempty"`
	Mach     *float64 `json:"mach,omitempty"`
	Oat      *float64 `json:"oat,omitempty"`
	Tat      *float64 `json:"tat,omitempty"`

	NavAltitudeMCP *float64 `json:"nav_altitude_mcp,omitempty"`
	NavModes       []string `json:"nav_modes,omitempty"`

	// AltBaro/AltGeom may be a number (feet) or the literal string
	// "ground"; interface{} mirrors the raw JSON exactly as received.
	AltBaro interface{} `json:"alt_baro,omitempty"`
	AltGeom interface{} `json:"alt_geom,omitempty"`

	// LastPosition is carried forward by the caller (not present in
	// the wire format) when a later snapshot drops lat/lon but the
	// preprocessor still wants a last-known position.
	LastPosition *Point `json:"-"`

	Extra map[string]interface{} `json:"-"`
}

// Point is a bare geographic coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Meta carries fetch-time metadata attached to a snapshot.
type Meta struct {
	Timestamp     time.Time
	AircraftCount int
}

// Snapshot is the top-level polled document: the aircraft list plus
// fetch metadata.
type Snapshot struct {
	Aircraft []Aircraft
	Meta     Meta
}

// wireSnapshot is the JSON envelope as received from the receiver.
type wireSnapshot struct {
	Aircraft []Aircraft `json:"aircraft"`
}
