// Package tracking maintains the rolling per-aircraft trajectory trail
// and flight cache (spec.md §4.6), and the one-step linear position
// projection filters use to look ahead (grounded on the teacher's
// PredictPosition). It is the only place in the pipeline that owns
// cross-cycle state.
package tracking

import (
	"sort"
	"sync"
	"time"

	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/snapshot"
)

// Defaults from spec.md §6's scheduler constants.
const (
	DefaultMaxTrailSize = 20
	DefaultMaxTrailAge  = 10 * time.Minute
	DefaultCacheExpiry  = 5 * time.Minute
)

// Entry is one point in an aircraft's trail: a timestamp plus the bare
// snapshot (Calculated is stripped before storage so the trail never
// retains a reference into a given cycle's enriched aircraft list —
// spec.md Design Notes §9).
type Entry struct {
	Timestamp time.Time
	Snapshot  snapshot.Aircraft
}

// Processing tracks how often and how recently an aircraft has been
// observed.
type Processing struct {
	FirstSeen              time.Time
	MissedUpdates          int
	Appearances            int
	ConsecutiveMisses      int
	ConsecutiveAppearances int
}

// cacheEntry is the tracker's internal per-hex state.
type cacheEntry struct {
	calculated enrich.Calculated
	raw        snapshot.Aircraft
	processing Processing
	trail      []Entry
}

// Tracker owns the flight cache and trajectory trail for every hex
// currently or recently observed. All mutation happens through Ingest,
// called once per cycle by the scheduler; concurrent readers use the
// Data, Processing, Len and TrailLen accessors, which take a read lock.
type Tracker struct {
	mu           sync.RWMutex
	cache        map[string]*cacheEntry
	maxTrailSize int
	maxTrailAge  time.Duration
	cacheExpiry  time.Duration
}

// New creates a Tracker using spec.md's default bounds.
func New() *Tracker {
	return NewWithLimits(DefaultMaxTrailSize, DefaultMaxTrailAge, DefaultCacheExpiry)
}

// NewWithLimits creates a Tracker with explicit bounds, for tests and
// configuration overrides.
func NewWithLimits(maxTrailSize int, maxTrailAge, cacheExpiry time.Duration) *Tracker {
	return &Tracker{
		cache:        make(map[string]*cacheEntry),
		maxTrailSize: maxTrailSize,
		maxTrailAge:  maxTrailAge,
		cacheExpiry:  cacheExpiry,
	}
}

// Ingest folds one cycle's enriched aircraft into the tracker: each
// hex present gets its trail appended and processing counters
// refreshed; every cached hex absent from this cycle gets a miss
// recorded; and any entry stale past cacheExpiry is dropped entirely.
func (t *Tracker) Ingest(acs []enrich.Aircraft, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	present := make(map[string]bool, len(acs))
	for _, ac := range acs {
		if ac.Raw.Hex == "" {
			continue
		}
		present[ac.Raw.Hex] = true
		t.ingestOne(ac, now)
	}

	for hex, entry := range t.cache {
		if present[hex] {
			continue
		}
		entry.processing.MissedUpdates++
		entry.processing.ConsecutiveMisses++
		entry.processing.ConsecutiveAppearances = 0
	}

	t.expireStale(now)
}

func (t *Tracker) ingestOne(ac enrich.Aircraft, now time.Time) {
	hex := ac.Raw.Hex
	entry, exists := t.cache[hex]
	if !exists {
		entry = &cacheEntry{processing: Processing{FirstSeen: now}}
		t.cache[hex] = entry
	}

	entry.trail = append(entry.trail, Entry{Timestamp: now, Snapshot: stripCalculated(ac.Raw)})
	entry.trail = trimTrail(entry.trail, t.maxTrailSize, t.maxTrailAge, now)

	entry.calculated = ac.Calculated
	entry.raw = ac.Raw
	entry.processing.Appearances++
	entry.processing.ConsecutiveAppearances++
	entry.processing.ConsecutiveMisses = 0
}

func stripCalculated(raw snapshot.Aircraft) snapshot.Aircraft {
	cp := raw
	cp.LastPosition = nil
	return cp
}

// trimTrail evicts entries older than now-maxAge and truncates to the
// last maxSize entries, preserving ascending timestamp order.
func trimTrail(trail []Entry, maxSize int, maxAge time.Duration, now time.Time) []Entry {
	cutoff := now.Add(-maxAge)
	start := 0
	for start < len(trail) && trail[start].Timestamp.Before(cutoff) {
		start++
	}
	trail = trail[start:]

	if len(trail) > maxSize {
		trail = trail[len(trail)-maxSize:]
	}
	return trail
}

func (t *Tracker) expireStale(now time.Time) {
	cutoff := now.Add(-t.cacheExpiry)
	for hex, entry := range t.cache {
		if entry.calculated.TimestampUpdated.Before(cutoff) {
			delete(t.cache, hex)
		}
	}
}

// Len returns the number of hexes currently tracked (test/metrics helper).
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cache)
}

// TrailLen returns the current trail length for hex (test helper).
func (t *Tracker) TrailLen(hex string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.cache[hex]
	if !ok {
		return 0
	}
	return len(e.trail)
}

// Processing returns the current processing counters for hex.
func (t *Tracker) Processing(hex string) (Processing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.cache[hex]
	if !ok {
		return Processing{}, false
	}
	return e.processing, true
}

// Data returns an accessor over hex's trail for filters to query. The
// returned accessor is a snapshot copy — safe to use without holding
// the tracker's lock.
func (t *Tracker) Data(hex string) AircraftData {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.cache[hex]
	if !ok {
		return AircraftData{}
	}
	trail := make([]Entry, len(e.trail))
	copy(trail, e.trail)
	return AircraftData{hex: hex, trail: trail, current: e.raw}
}

// sortedHexes is a small helper used by tests needing deterministic iteration.
func (t *Tracker) sortedHexes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	hexes := make([]string, 0, len(t.cache))
	for h := range t.cache {
		hexes = append(hexes, h)
	}
	sort.Strings(hexes)
	return hexes
}
