// Package filter implements the pluggable detection-filter framework
// (spec.md §4.5): a Descriptor capability set, a priority-ordered
// Registry, and the per-cycle preprocess/evaluate/sort pipeline.
package filter

import (
	"runtime"
	"sort"

	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/squawks"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

// Severity is the ordered alert-severity ladder (spec.md §3).
type Severity int

const (
	Info Severity = iota
	Low
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Less reports whether s is strictly less severe than other.
func (s Severity) Less(other Severity) bool { return s < other }

// Context is the shared, read-only record every filter is configured
// with (spec.md §4.5 step 1): station location and the other
// process-wide collaborators filters need.
type Context struct {
	Station  enrich.Station
	Airports *airport.Registry
	Squawks  *squawks.Registry
	Tracker  *tracking.Tracker

	// Aircraft is a read-only alias of the current cycle's full
	// aircraft list, set by Run before preprocessing. Filters that
	// need pairwise comparisons (airprox) read it; most filters ignore it.
	Aircraft []enrich.Aircraft
}

// Result is what Format/Evaluate produce for one (filter, aircraft) pair.
type Result struct {
	Warn     bool
	Severity Severity
	Text     string
	Extra    map[string]interface{}
}

// Descriptor is one detection filter's full capability set.
type Descriptor interface {
	ID() string
	Priority() int
	Configure(cfg map[string]interface{}, ctx *Context) error
	Preprocess(ac *enrich.Aircraft, ctx *Context)
	Evaluate(ac *enrich.Aircraft) bool
	// Sort reports whether a should sort before b, given both fired
	// this filter. Used only to break priority ties.
	Sort(a, b *enrich.Aircraft) bool
	Format(ac *enrich.Aircraft) Result
}

// Registry holds every configured filter, kept sorted by ascending
// Priority (1 = highest) after every Register call.
type Registry struct {
	filters []Descriptor
	byID    map[string]Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Register adds d to the registry and re-sorts by priority.
func (r *Registry) Register(d Descriptor) {
	r.filters = append(r.filters, d)
	r.byID[d.ID()] = d
	sort.SliceStable(r.filters, func(i, j int) bool {
		return r.filters[i].Priority() < r.filters[j].Priority()
	})
}

// ConfigureAll calls Configure on every registered filter with its own
// config slice (keyed by filter id) from cfg, and the shared context.
// A filter whose config is missing or invalid is skipped with its
// error returned in the map, matching spec.md §7's "filter is disabled
// with a log" contract — callers should log and drop it from use.
func (r *Registry) ConfigureAll(cfg map[string]map[string]interface{}, ctx *Context) map[string]error {
	errs := make(map[string]error)
	for _, f := range r.filters {
		if err := f.Configure(cfg[f.ID()], ctx); err != nil {
			errs[f.ID()] = err
		}
	}
	return errs
}

// Get returns the registered filter by id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Len returns the number of registered filters.
func (r *Registry) Len() int { return len(r.filters) }

// Firing is one (filter, aircraft) pair where Evaluate returned true.
type Firing struct {
	AircraftIndex int
	FilterID      string
	Priority      int
	Result        Result
}

// yieldEvery matches spec.md §4.5's cooperative-yield cadence.
const yieldEvery = 50

// Run executes one full cycle over acs: preprocess every (filter,
// aircraft) pair, yielding cooperatively every 50 aircraft, then
// evaluate every pair and collect every firing. acs is mutated in
// place (each filter writes into aircraft.Calculated.FilterData).
func (r *Registry) Run(acs []enrich.Aircraft, ctx *Context) []Firing {
	ctx.Aircraft = acs

	for i := range acs {
		for _, f := range r.filters {
			f.Preprocess(&acs[i], ctx)
		}
		if (i+1)%yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	var firings []Firing
	for i := range acs {
		for _, f := range r.filters {
			if !f.Evaluate(&acs[i]) {
				continue
			}
			firings = append(firings, Firing{
				AircraftIndex: i,
				FilterID:      f.ID(),
				Priority:      f.Priority(),
				Result:        f.Format(&acs[i]),
			})
		}
	}
	return firings
}

// InterestingOrder returns the indices of every aircraft with at least
// one firing, ordered per spec.md §4.5 step 5: by the priority of each
// aircraft's highest-priority (lowest-value) firing filter; ties
// broken by that filter's Sort; aircraft with no firing filter in
// common fall back to ascending distance (missing distance sorts
// last).
func (r *Registry) InterestingOrder(acs []enrich.Aircraft, firings []Firing) []int {
	topByIndex := make(map[int]Firing)
	for _, fr := range firings {
		existing, ok := topByIndex[fr.AircraftIndex]
		if !ok || fr.Priority < existing.Priority {
			topByIndex[fr.AircraftIndex] = fr
		}
	}

	indices := make([]int, 0, len(topByIndex))
	for idx := range topByIndex {
		indices = append(indices, idx)
	}

	sort.Slice(indices, func(i, j int) bool {
		a, b := indices[i], indices[j]
		ta, tb := topByIndex[a], topByIndex[b]

		if ta.Priority != tb.Priority {
			return ta.Priority < tb.Priority
		}
		if ta.FilterID == tb.FilterID {
			if d, ok := r.byID[ta.FilterID]; ok {
				return d.Sort(&acs[a], &acs[b])
			}
		}
		return distanceLess(acs[a], acs[b])
	})
	return indices
}

func distanceLess(a, b enrich.Aircraft) bool {
	if a.Calculated.HasDistance != b.Calculated.HasDistance {
		return a.Calculated.HasDistance // aircraft with a distance sort before those without
	}
	if !a.Calculated.HasDistance {
		return false
	}
	return a.Calculated.Distance < b.Calculated.Distance
}
