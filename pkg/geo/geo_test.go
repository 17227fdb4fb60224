package geo

import (
	"math"
	"testing"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCalculateDistance(t *testing.T) {
	tests := []struct {
		name                             string
		lat1, lon1, lat2, lon2           float64
		want                             float64
		tolerance                        float64
	}{
		{"same point", 51.5, -0.14, 51.5, -0.14, 0, 0.01},
		{"station to nearby aircraft", 51.5, -0.14, 51.51, -0.14, 1.11, 0.05},
		{"London to Paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !approxEqual(got, tt.want, tt.tolerance) {
				t.Errorf("CalculateDistance() = %.3f, want %.3f (+/- %.3f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestCalculateDistanceInvalid(t *testing.T) {
	if _, err := CalculateDistance(91, 0, 0, 0); err == nil {
		t.Error("expected error for out-of-range latitude, got nil")
	}
	if _, err := CalculateDistance(0, 0, 0, 181); err == nil {
		t.Error("expected error for out-of-range longitude, got nil")
	}
	if _, err := CalculateDistance(math.NaN(), 0, 0, 0); err == nil {
		t.Error("expected error for NaN latitude, got nil")
	}
}

func TestCalculateBearing(t *testing.T) {
	tests := []struct {
		name                    string
		lat1, lon1, lat2, lon2  float64
		want                    float64
		tolerance               float64
	}{
		{"due north", 51.0, 0.0, 52.0, 0.0, 0, 0.5},
		{"due east", 51.0, 0.0, 51.0, 1.0, 90, 2},
		{"due south", 51.0, 0.0, 50.0, 0.0, 180, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !approxEqual(got, tt.want, tt.tolerance) {
				t.Errorf("CalculateBearing() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestCardinalBearing(t *testing.T) {
	tests := []struct {
		bearing float64
		want    string
	}{
		{0, "N"},
		{359, "N"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{45, "NE"},
	}
	for _, tt := range tests {
		if got := CardinalBearing(tt.bearing); got != tt.want {
			t.Errorf("CardinalBearing(%.0f) = %s, want %s", tt.bearing, got, tt.want)
		}
	}
}

func TestCalculateRelativePosition(t *testing.T) {
	// Aircraft due north of station, flying south (track 180) - approaching.
	rp, err := CalculateRelativePosition(51.0, 0.0, 51.1, 0.0, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rp.ApproachingStation {
		t.Error("expected aircraft flying toward station to be approaching")
	}
	if rp.CardinalBearing != "N" {
		t.Errorf("expected bearing N, got %s", rp.CardinalBearing)
	}

	// Same aircraft flying away (track 0).
	rp2, err := CalculateRelativePosition(51.0, 0.0, 51.1, 0.0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp2.ApproachingStation {
		t.Error("expected aircraft flying away from station to not be approaching")
	}
}

func TestProjectPosition(t *testing.T) {
	p, err := ProjectPosition(0, 0, 111.19, 0) // ~1 degree of latitude north
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(p.Lat, 1.0, 0.05) {
		t.Errorf("expected latitude ~1.0, got %.4f", p.Lat)
	}
	if !approxEqual(p.Lon, 0.0, 0.05) {
		t.Errorf("expected longitude ~0.0, got %.4f", p.Lon)
	}
}

func TestProjectPositionClampsLatitude(t *testing.T) {
	p, err := ProjectPosition(89.9, 0, 500, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat > 90 {
		t.Errorf("expected clamped latitude <= 90, got %.4f", p.Lat)
	}
}

func TestCalculateVerticalAngle(t *testing.T) {
	tests := []struct {
		name       string
		dKm        float64
		dAltFeet   float64
		wantSign   float64 // +1 above horizon, -1 below, 0 level
	}{
		{"directly overhead close", 0.01, 5000, 1},
		{"far below", 50, -30000, -1},
		{"level nearby", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateVerticalAngle(tt.dKm, tt.dAltFeet, 51.5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch tt.wantSign {
			case 1:
				if got <= 0 {
					t.Errorf("expected positive angle, got %.3f", got)
				}
			case -1:
				if got >= 0 {
					t.Errorf("expected negative angle, got %.3f", got)
				}
			case 0:
				if !approxEqual(got, 0, 0.5) {
					t.Errorf("expected ~0 angle, got %.3f", got)
				}
			}
		})
	}
}

func TestCalculateVerticalAngleCurvatureCorrection(t *testing.T) {
	// Same altitude difference, but beyond the curvature threshold the
	// apparent angle should be lower than a naive atan2 would give.
	const altFeet = 35000.0
	nearAngle, _ := CalculateVerticalAngle(5, altFeet, 51.5)
	farAngle, _ := CalculateVerticalAngle(200, altFeet, 51.5)

	naiveFar := rad2deg(math.Atan2(FeetToKm(altFeet), 200))
	if farAngle >= naiveFar {
		t.Errorf("expected curvature-corrected angle (%.4f) < naive angle (%.4f)", farAngle, naiveFar)
	}
	if nearAngle <= farAngle {
		t.Errorf("expected closer target to have a larger vertical angle")
	}
}

func TestCalculateCrossTrackDistance(t *testing.T) {
	// Aircraft on the equator flying due east (track 90); station 1 deg north of a point ahead,
	// i.e. to the left of the track, so the signed cross-track is negative.
	ct, err := CalculateCrossTrackDistance(1.0, 1.0, 0.0, 0.0, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.CrossTrack >= 0 {
		t.Errorf("expected negative cross-track (station north of eastbound track, to its left), got %.3f", ct.CrossTrack)
	}
	if ct.AlongTrack <= 0 {
		t.Errorf("expected positive along-track distance, got %.3f", ct.AlongTrack)
	}
}

func TestClosureGeometryConverging(t *testing.T) {
	a := Kinematic{Lat: 0, Lon: 0, TrackDeg: 90, SpeedKmMin: KnotsToKmPerMin(300)}
	b := Kinematic{Lat: 0, Lon: 1, TrackDeg: 270, SpeedKmMin: KnotsToKmPerMin(300)}

	cv, err := ClosureGeometry(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cv.Converging {
		t.Error("expected head-on aircraft to be converging")
	}
	if cv.TimeToCPASeconds <= 0 {
		t.Errorf("expected positive time to CPA, got %.3f", cv.TimeToCPASeconds)
	}
	if cv.ClosureRateKmMin <= 0 {
		t.Errorf("expected positive closure rate, got %.3f", cv.ClosureRateKmMin)
	}
}

func TestClosureGeometryDiverging(t *testing.T) {
	a := Kinematic{Lat: 0, Lon: 0, TrackDeg: 270, SpeedKmMin: KnotsToKmPerMin(300)}
	b := Kinematic{Lat: 0, Lon: 1, TrackDeg: 90, SpeedKmMin: KnotsToKmPerMin(300)}

	cv, err := ClosureGeometry(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cv.Converging {
		t.Error("expected tail-to-tail aircraft to be diverging")
	}
	if cv.TimeToCPASeconds != 0 {
		t.Errorf("expected zero time-to-CPA for diverging pair, got %.3f", cv.TimeToCPASeconds)
	}
}

func TestNmToKmAndKnotsToKmPerMin(t *testing.T) {
	if !approxEqual(NmToKm(1), 1.852, 1e-9) {
		t.Errorf("NmToKm(1) = %.6f, want 1.852", NmToKm(1))
	}
	if !approxEqual(FeetToKm(1000), 0.3048, 1e-9) {
		t.Errorf("FeetToKm(1000) = %.6f, want 0.3048", FeetToKm(1000))
	}
	got := KnotsToKmPerMin(60)
	want := NmToKm(60) / 60
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("KnotsToKmPerMin(60) = %.6f, want %.6f", got, want)
	}
}

func TestNormalizeDegAndLon(t *testing.T) {
	if got := NormalizeDeg(-10); !approxEqual(got, 350, 1e-9) {
		t.Errorf("NormalizeDeg(-10) = %.2f, want 350", got)
	}
	if got := NormalizeDeg(370); !approxEqual(got, 10, 1e-9) {
		t.Errorf("NormalizeDeg(370) = %.2f, want 10", got)
	}
	if got := NormalizeLon(190); !approxEqual(got, -170, 1e-9) {
		t.Errorf("NormalizeLon(190) = %.2f, want -170", got)
	}
}
