// Package alert implements the alert lifecycle manager (spec.md §4.8):
// insert, refresh, expire and deduplicate alerts derived from one
// cycle's filter firings. State is kept in an in-memory map rather
// than a database, but the upsert/expire shape is grounded on the
// teacher's repository pattern in internal/db/aircraft_repository.go.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/filter"
)

// DefaultExpiry is ALERT_EXPIRY_TIME from spec.md §3.
const DefaultExpiry = 5 * time.Minute

// Position is the alert's last-known lat/lon, if any.
type Position struct {
	Lat, Lon float64
}

// Alert is one active (filterId, hex) detection.
type Alert struct {
	ID       string
	Type     string // "aircraft-<filterId>"
	FilterID string
	Hex      string
	Flight   string

	Time     time.Time
	TimeLast time.Time

	Text     string
	Warn     bool
	Severity filter.Severity

	Position    *Position
	Altitude    float64
	HasAltitude bool
	Speed       float64
	HasSpeed    bool

	AircraftType string
	Extra        map[string]interface{}
}

// Manager owns the active-alert map and the insert/remove diffs it
// produces each cycle.
type Manager struct {
	mu           sync.RWMutex
	active       map[string]*Alert
	expiry       time.Duration
	warnSuppress map[string]bool
}

// New creates a Manager using spec.md's default expiry and no warn suppression.
func New() *Manager {
	return NewWithOptions(DefaultExpiry, nil)
}

// NewWithOptions creates a Manager with an explicit expiry and a
// per-filter warn-suppress set (config.warn_suppress[filterId] from spec.md §4.8).
func NewWithOptions(expiry time.Duration, warnSuppress map[string]bool) *Manager {
	return &Manager{
		active:       make(map[string]*Alert),
		expiry:       expiry,
		warnSuppress: warnSuppress,
	}
}

// Diff folds one cycle's filter firings into the active-alert map: new
// (filterId, hex) pairs are inserted, already-active ones have
// timeLast refreshed, and anything that has gone quiet past the expiry
// is removed. It returns the alerts inserted and removed this cycle
// (spec.md §4.8's alertsInserted/alertsRemoved).
func (m *Manager) Diff(firings []filter.Firing, acs []enrich.Aircraft, now time.Time) (inserted, removed []Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range firings {
		if f.AircraftIndex < 0 || f.AircraftIndex >= len(acs) {
			continue
		}
		ac := acs[f.AircraftIndex]
		id := alertID(f.FilterID, ac.Raw.Hex)

		if existing, ok := m.active[id]; ok {
			existing.TimeLast = now
			continue
		}

		a := buildAlert(id, f, ac, now)
		if m.warnSuppress[f.FilterID] {
			a.Warn = false
		}
		m.active[id] = &a
		inserted = append(inserted, a)
	}

	cutoff := now.Add(-m.expiry)
	for id, a := range m.active {
		if a.TimeLast.Before(cutoff) {
			removed = append(removed, *a)
			delete(m.active, id)
		}
	}

	return inserted, removed
}

func alertID(filterID, hex string) string {
	return fmt.Sprintf("aircraft-%s-%s", filterID, hex)
}

func buildAlert(id string, f filter.Firing, ac enrich.Aircraft, now time.Time) Alert {
	flight := ""
	if ac.Raw.Flight != nil {
		flight = *ac.Raw.Flight
	}
	aircraftType := ""
	if ac.Raw.Category != nil {
		aircraftType = *ac.Raw.Category
	}

	a := Alert{
		ID:           id,
		Type:         "aircraft-" + f.FilterID,
		FilterID:     f.FilterID,
		Hex:          ac.Raw.Hex,
		Flight:       flight,
		Time:         now,
		TimeLast:     now,
		Warn:         f.Result.Warn,
		Severity:     f.Result.Severity,
		AircraftType: aircraftType,
		Extra:        f.Result.Extra,
		Altitude:     ac.Calculated.Altitude,
		HasAltitude:  ac.Calculated.HasAltitude,
	}

	if ac.Raw.Gs != nil {
		a.Speed = *ac.Raw.Gs
		a.HasSpeed = true
	}
	if ac.Raw.Lat != nil && ac.Raw.Lon != nil {
		a.Position = &Position{Lat: *ac.Raw.Lat, Lon: *ac.Raw.Lon}
	} else if ac.Raw.LastPosition != nil {
		a.Position = &Position{Lat: ac.Raw.LastPosition.Lat, Lon: ac.Raw.LastPosition.Lon}
	}

	a.Text = f.Result.Text + " " + describeAircraft(aircraftType, a.Position)
	return a
}

func describeAircraft(aircraftType string, pos *Position) string {
	if aircraftType == "" {
		aircraftType = "unknown type"
	}
	if pos == nil {
		return fmt.Sprintf("(%s, no position)", aircraftType)
	}
	return fmt.Sprintf("(%s, %.4f,%.4f)", aircraftType, pos.Lat, pos.Lon)
}

// Active returns the current active alert for id, for tests and status endpoints.
func (m *Manager) Active(id string) (Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.active[id]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// Len returns the number of currently active alerts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Snapshot returns a copy of every currently active alert, for the
// stats endpoint and publish layer.
func (m *Manager) Snapshot() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, *a)
	}
	return out
}
