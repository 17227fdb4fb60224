// Package scheduler drives the per-cycle pipeline (spec.md §5): on
// every tick it fetches a snapshot, drops excluded callsigns, enriches
// the aircraft relative to the station, runs the filter registry,
// folds the result into the trajectory tracker, diffs alerts, and
// publishes + records metrics for what changed. The ticker/cleanup/
// panic-recovery shape is grounded on the teacher's Collector.Run in
// cmd/collector/main.go; the overlapping-cycle guard follows spec.md
// §5's "skip a tick if the previous cycle has not finished" note.
package scheduler

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groundwatch/sentinel/internal/httpserver"
	"github.com/groundwatch/sentinel/internal/metrics"
	"github.com/groundwatch/sentinel/internal/publish"
	"github.com/groundwatch/sentinel/pkg/alert"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/filter"
	"github.com/groundwatch/sentinel/pkg/snapshot"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

// Fetcher is the snapshot source a Scheduler polls each cycle. Satisfied
// by *snapshot.Fetcher; an interface here keeps the scheduler testable
// without a live HTTP receiver.
type Fetcher interface {
	Fetch(ctx context.Context) (*snapshot.Snapshot, error)
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	Station  enrich.Station

	// Exclude lists callsigns dropped before preprocessing (spec.md §6
	// flights.exclude), matched after trimming surrounding whitespace.
	Exclude []string

	Fetcher   Fetcher
	Filters   *filter.Registry
	FilterCtx *filter.Context
	Tracker   *tracking.Tracker
	Alerts    *alert.Manager
	Publisher publish.Publisher
}

// Scheduler owns the cycle loop and the running totals exposed via
// httpserver.StatsProvider.
type Scheduler struct {
	opts Options

	startedAt time.Time
	running   int32 // atomic guard against overlapping cycles

	mu           sync.RWMutex
	cyclesRun    int
	cycleErrors  int
	lastAircraft int
	lastCycleAt  time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Scheduler from opts. A zero Interval falls back to
// tracking.DefaultMaxTrailAge's sibling default of 30s (spec.md §6's
// CYCLE_SCAN_TIME default).
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Scheduler{opts: opts, startedAt: time.Now()}
}

// Run starts the cycle loop in a background goroutine and returns
// immediately. Call Stop to terminate it.
func (s *Scheduler) Run(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		log.Println("scheduler: performing initial cycle")
		s.runCycle(ctx)

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop signals the cycle loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
	}
	s.wg.Wait()
}

// runCycle executes one full pipeline pass, skipping entirely if the
// previous cycle is still in flight (spec.md §5: an overlapping tick is
// elided rather than queued).
func (s *Scheduler) runCycle(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		log.Println("scheduler: previous cycle still running, skipping this tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: PANIC during cycle: %v", r)
			s.mu.Lock()
			s.cycleErrors++
			s.mu.Unlock()
			metrics.CycleErrorsTotal.Inc()
		}
	}()

	start := time.Now()
	metrics.CycleTotal.Inc()

	snap, err := s.opts.Fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("scheduler: fetch failed: %v", err)
		s.mu.Lock()
		s.cycleErrors++
		s.mu.Unlock()
		metrics.CycleErrorsTotal.Inc()
		return
	}

	aircraft := excludeFlights(snap.Aircraft, s.opts.Exclude)
	if len(aircraft) == 0 {
		metrics.CycleEmptyTotal.Inc()
	}

	now := time.Now().UTC()
	enriched := enrich.Preprocess(aircraft, s.opts.Station, now)

	firings := s.opts.Filters.Run(enriched, s.opts.FilterCtx)
	metrics.ObserveFirings(firingFilterIDs(firings))

	s.opts.Tracker.Ingest(enriched, now)

	inserted, removed := s.opts.Alerts.Diff(firings, enriched, now)
	metrics.ObserveAlertDiff(alertFilterIDs(inserted), alertFilterIDs(removed))
	metrics.ActiveAlerts.Set(float64(s.opts.Alerts.Len()))
	metrics.AircraftObservedTotal.Add(float64(len(enriched)))

	s.publish(inserted, removed, len(enriched))

	s.mu.Lock()
	s.cyclesRun++
	s.lastAircraft = len(enriched)
	s.lastCycleAt = now
	s.mu.Unlock()

	metrics.CycleDurationSeconds.Observe(time.Since(start).Seconds())
}

// publish fans out this cycle's alert diff and a state record. Publish
// failures are logged, never fatal: the cycle's in-memory state is
// already committed by this point.
func (s *Scheduler) publish(inserted, removed []alert.Alert, aircraftCount int) {
	if s.opts.Publisher == nil {
		return
	}

	for _, a := range inserted {
		if err := s.opts.Publisher.PublishAlert(publish.AlertInsert, a); err != nil {
			log.Printf("scheduler: publish insert for %s failed: %v", a.ID, err)
		}
	}
	for _, a := range removed {
		if err := s.opts.Publisher.PublishAlert(publish.AlertRemove, a); err != nil {
			log.Printf("scheduler: publish remove for %s failed: %v", a.ID, err)
		}
	}

	state := publish.StateRecord{
		Timestamp:     time.Now().UTC(),
		AircraftCount: aircraftCount,
		ActiveAlerts:  s.opts.Alerts.Len(),
	}
	if err := s.opts.Publisher.PublishState(state); err != nil {
		log.Printf("scheduler: publish state failed: %v", err)
	}
}

// Stats satisfies httpserver.StatsProvider.
func (s *Scheduler) Stats() httpserver.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return httpserver.Stats{
		StartedAt:    s.startedAt,
		LastCycleAt:  s.lastCycleAt,
		CyclesRun:    s.cyclesRun,
		CycleErrors:  s.cycleErrors,
		LastAircraft: s.lastAircraft,
		ActiveAlerts: s.opts.Alerts.Snapshot(),
	}
}

// excludeFlights drops any aircraft whose trimmed flight callsign
// matches an entry in exclude (spec.md §6 flights.exclude), applied
// before enrichment so excluded traffic never reaches the tracker,
// filters, or alert manager.
func excludeFlights(acs []snapshot.Aircraft, exclude []string) []snapshot.Aircraft {
	if len(exclude) == 0 {
		return acs
	}

	drop := make(map[string]bool, len(exclude))
	for _, f := range exclude {
		drop[f] = true
	}

	out := make([]snapshot.Aircraft, 0, len(acs))
	for _, ac := range acs {
		if ac.Flight != nil && drop[strings.TrimSpace(*ac.Flight)] {
			continue
		}
		out = append(out, ac)
	}
	return out
}

func firingFilterIDs(firings []filter.Firing) []string {
	ids := make([]string, len(firings))
	for i, f := range firings {
		ids[i] = f.FilterID
	}
	return ids
}

func alertFilterIDs(alerts []alert.Alert) []string {
	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.FilterID
	}
	return ids
}
