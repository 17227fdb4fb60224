// Package airport loads the airport registry, builds a coarse grid
// spatial index over it, and answers ATZ (airport traffic zone)
// proximity queries used by the airport/landing/lifting/airprox
// filters.
package airport

import (
	"fmt"
	"log"
	"math"

	"github.com/groundwatch/sentinel/pkg/geo"
)

// gridCellDeg is the spatial index's grid cell size in degrees (~55km
// at the equator), per spec.md's grid constant G.
const gridCellDeg = 0.5

// AtzRadiusMaximumNM is the widest ATZ radius considered by default
// queries that do not specify an explicit distance.
const AtzRadiusMaximumNM = 2.5

// defaultATZHeightFt is the default AGL height added to field
// elevation to get the ATZ ceiling when an airport does not override it.
const defaultATZHeightFt = 2000.0

// Airport is one entry in the registry.
type Airport struct {
	ICAO            string
	IATA            string
	Lat             float64
	Lon             float64
	HasPosition     bool
	ElevationFt     float64
	RunwayLengthMax float64 // feet, 0 if unknown
	RadiusKm        *float64 // override, nil = compute from defaults
	HeightFt        *float64 // AGL override for ATZ ceiling, nil = default 2000ft
	Type            string
	Name            string
}

// ATZRadiusKm returns this airport's traffic zone radius in km,
// applying the UK CAA default table from spec.md §4.2 when no
// explicit override is set.
func (a Airport) ATZRadiusKm() float64 {
	if a.RadiusKm != nil {
		return *a.RadiusKm
	}
	if a.RunwayLengthMax > 0 && a.RunwayLengthMax < 1850 {
		return geo.NmToKm(2)
	}
	if a.IATA != "" {
		return geo.NmToKm(2.5)
	}
	return geo.NmToKm(2)
}

// ATZCeilingFt returns the ATZ ceiling in feet MSL: field elevation
// plus the AGL height override (default 2000ft).
func (a Airport) ATZCeilingFt() float64 {
	h := defaultATZHeightFt
	if a.HeightFt != nil {
		h = *a.HeightFt
	}
	return a.ElevationFt + h
}

type cellKey struct {
	latCell, lonCell int
}

func cellKeyFor(lat, lon float64) cellKey {
	return cellKey{
		latCell: int(math.Floor(lat / gridCellDeg)),
		lonCell: int(math.Floor(lon / gridCellDeg)),
	}
}

// Registry holds the airport table and its spatial index. Rebuilding
// (Apply) swaps in a new immutable index atomically so concurrent
// readers never observe a half-built grid.
type Registry struct {
	index *registryIndex
	cache *queryCache
}

type registryIndex struct {
	byICAO map[string]Airport
	grid   map[cellKey][]string // cell -> ICAOs
}

// NewRegistry builds a registry from seed airports. Entries missing an
// ICAO key are skipped with a log line (the caller is expected to have
// injected a key from the map index before calling, per spec.md's
// "inject the key" load step — see Load).
func NewRegistry(airports []Airport) *Registry {
	r := &Registry{cache: newQueryCache(1000, 100)}
	r.index = buildIndex(airports)
	return r
}

// Load builds a Registry from a map keyed by ICAO, injecting the map
// key into any entry whose ICAO field is empty.
func Load(byICAO map[string]Airport) *Registry {
	airports := make([]Airport, 0, len(byICAO))
	for icao, a := range byICAO {
		if a.ICAO == "" {
			a.ICAO = icao
		}
		airports = append(airports, a)
	}
	return NewRegistry(airports)
}

func buildIndex(airports []Airport) *registryIndex {
	idx := &registryIndex{
		byICAO: make(map[string]Airport, len(airports)),
		grid:   make(map[cellKey][]string),
	}
	for _, a := range airports {
		if a.ICAO == "" {
			log.Printf("airport: skipping entry with no ICAO code")
			continue
		}
		idx.byICAO[a.ICAO] = a
		if !a.HasPosition {
			log.Printf("airport: %s has no coordinates, loaded but not indexed", a.ICAO)
			continue
		}
		if a.Lat < -90 || a.Lat > 90 || a.Lon < -180 || a.Lon > 180 {
			log.Printf("airport: %s has invalid coordinates (%.4f,%.4f), skipping index", a.ICAO, a.Lat, a.Lon)
			continue
		}
		key := cellKeyFor(a.Lat, a.Lon)
		idx.grid[key] = append(idx.grid[key], a.ICAO)
	}
	return idx
}

// Apply upserts override entries into the registry (logging each
// change) and rebuilds the spatial index and query cache atomically.
func (r *Registry) Apply(overrides map[string]Airport) {
	merged := make([]Airport, 0, len(r.index.byICAO)+len(overrides))
	for icao, a := range r.index.byICAO {
		if _, overridden := overrides[icao]; overridden {
			continue
		}
		merged = append(merged, a)
	}
	for icao, a := range overrides {
		if a.ICAO == "" {
			a.ICAO = icao
		}
		log.Printf("airport: applying override for %s", a.ICAO)
		merged = append(merged, a)
	}

	r.index = buildIndex(merged)
	r.cache = newQueryCache(r.cache.limit, r.cache.trim)
}

// Get returns an airport by ICAO code.
func (r *Registry) Get(icao string) (Airport, bool) {
	a, ok := r.index.byICAO[icao]
	return a, ok
}

// Len returns the number of loaded airports (indexed or not).
func (r *Registry) Len() int {
	return len(r.index.byICAO)
}

// NearbyResult is one hit from FindNearby, sorted by ascending distance.
type NearbyResult struct {
	Airport  Airport
	DistanceKm float64
}

// FindNearbyOptions constrains a FindNearby query.
type FindNearbyOptions struct {
	// DistanceKm, if non-nil, overrides each airport's own ATZ radius
	// as the match threshold.
	DistanceKm *float64
	// AltitudeFt, if non-nil, requires the airport's ATZ ceiling to be
	// at or above this altitude.
	AltitudeFt *float64
}

// FindNearby returns airports near (lat,lon) satisfying opts, nearest
// first, deduplicated by ICAO. Out-of-range coordinates yield an empty
// result rather than an error (spec.md §4.2 "Failure").
func (r *Registry) FindNearby(lat, lon float64, opts FindNearbyOptions) []NearbyResult {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return nil
	}

	key := cacheKey(lat, lon, opts)
	if cached, ok := r.cache.get(key); ok {
		return cached
	}

	radiusKm := geo.NmToKm(AtzRadiusMaximumNM)
	if opts.DistanceKm != nil {
		radiusKm = *opts.DistanceKm
	}

	latCells := int(math.Ceil(radiusKm/111.32/gridCellDeg)) + 1
	lonDenom := 111.32 * math.Cos(geo.Deg2Rad(lat))
	if lonDenom < 1e-6 {
		lonDenom = 1e-6
	}
	lonCells := int(math.Ceil(radiusKm/lonDenom/gridCellDeg)) + 1

	center := cellKeyFor(lat, lon)
	seen := make(map[string]bool)
	var results []NearbyResult

	for dLat := -latCells; dLat <= latCells; dLat++ {
		for dLon := -lonCells; dLon <= lonCells; dLon++ {
			ck := cellKey{latCell: center.latCell + dLat, lonCell: center.lonCell + dLon}
			for _, icao := range r.index.grid[ck] {
				if seen[icao] {
					continue
				}
				seen[icao] = true

				a := r.index.byICAO[icao]
				dist, err := geo.CalculateDistance(lat, lon, a.Lat, a.Lon)
				if err != nil {
					continue
				}

				threshold := a.ATZRadiusKm()
				if opts.DistanceKm != nil {
					threshold = *opts.DistanceKm
				}
				if dist > threshold {
					continue
				}
				if opts.AltitudeFt != nil && a.ATZCeilingFt() < *opts.AltitudeFt {
					continue
				}

				results = append(results, NearbyResult{Airport: a, DistanceKm: dist})
			}
		}
	}

	sortByDistance(results)
	r.cache.put(key, results)
	return results
}

func sortByDistance(results []NearbyResult) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].DistanceKm > results[j].DistanceKm {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
}

func cacheKey(lat, lon float64, opts FindNearbyOptions) string {
	dist := "nil"
	if opts.DistanceKm != nil {
		dist = fmt.Sprintf("%.3f", *opts.DistanceKm)
	}
	alt := "nil"
	if opts.AltitudeFt != nil {
		alt = fmt.Sprintf("%.1f", *opts.AltitudeFt)
	}
	return fmt.Sprintf("%.6f,%.6f,%s,%s", lat, lon, dist, alt)
}
