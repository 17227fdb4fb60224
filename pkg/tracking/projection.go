package tracking

import (
	"math"
	"time"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/geo"
)

// Projection is a one-step-ahead estimate of an aircraft's position,
// for callers that need to reason about where an aircraft is headed
// rather than only where it currently is. No filter in pkg/filter
// calls ProjectAhead.
type Projection struct {
	Lat, Lon   float64
	AltitudeFt float64

	// Confidence falls linearly from 1 to 0 over 60 s of lookahead and
	// is halved when the projected altitude is clamped at zero. The age
	// of the source observation does not affect it.
	Confidence float64
}

// ProjectAhead dead-reckons ac forward by deltaT using its last known
// ground speed, track and vertical rate (grounded on the teacher's
// PredictPosition, generalized to general lookahead). The projection
// starts from the position as reported; now is not used, so the time
// between the aircraft's last report and now is not compensated.
func ProjectAhead(ac enrich.Aircraft, now time.Time, deltaT time.Duration) Projection {
	lat, lon, hasPos := 0.0, 0.0, false
	if ac.Raw.Lat != nil && ac.Raw.Lon != nil {
		lat, lon, hasPos = *ac.Raw.Lat, *ac.Raw.Lon, true
	} else if ac.Raw.LastPosition != nil {
		lat, lon, hasPos = ac.Raw.LastPosition.Lat, ac.Raw.LastPosition.Lon, true
	}

	alt := ac.Calculated.Altitude
	if !hasPos {
		return Projection{AltitudeFt: alt, Confidence: 0}
	}

	seconds := deltaT.Seconds()
	if seconds <= 0 {
		return Projection{Lat: lat, Lon: lon, AltitudeFt: alt, Confidence: 1.0}
	}

	confidence := math.Max(0.0, 1.0-seconds/60.0)

	var track, gs float64
	if ac.Raw.Track != nil {
		track = *ac.Raw.Track
	}
	if ac.Raw.Gs != nil {
		gs = *ac.Raw.Gs
	}

	newLat, newLon := dedReckon(lat, lon, gs, track, seconds)

	newAlt := alt
	if ac.Raw.BaroRate != nil {
		newAlt = alt + *ac.Raw.BaroRate*(seconds/60.0)
		if newAlt < 0 {
			newAlt = 0
			confidence *= 0.5
		}
	}

	return Projection{Lat: newLat, Lon: newLon, AltitudeFt: newAlt, Confidence: confidence}
}

// dedReckon advances a position along a great circle at speedKnots
// heading trackDeg for seconds, using the forward-azimuth formula.
func dedReckon(lat, lon, speedKnots, trackDeg, seconds float64) (float64, float64) {
	latRad := geo.Deg2Rad(lat)
	lonRad := geo.Deg2Rad(lon)
	trackRad := geo.Deg2Rad(trackDeg)

	distanceKm := geo.KnotsToKmPerMin(speedKnots) * (seconds / 60.0)
	angularDistance := distanceKm / geo.EarthRadiusKm

	newLatRad := math.Asin(
		math.Sin(latRad)*math.Cos(angularDistance) +
			math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(trackRad),
	)
	newLonRad := lonRad + math.Atan2(
		math.Sin(trackRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(newLatRad),
	)

	newLat := geo.Rad2Deg(newLatRad)
	newLon := geo.NormalizeLon(geo.Rad2Deg(newLonRad))
	return newLat, newLon
}
