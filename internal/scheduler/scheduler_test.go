package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/groundwatch/sentinel/internal/publish"
	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/alert"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/filter"
	"github.com/groundwatch/sentinel/pkg/snapshot"
	"github.com/groundwatch/sentinel/pkg/squawks"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

type fakeFetcher struct {
	mu         sync.Mutex
	snap       *snapshot.Snapshot
	err        error
	fetchCount int
	block      chan struct{} // if non-nil, Fetch waits on this before returning
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	f.fetchCount++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

// alwaysFireFilter fires on every aircraft, for exercising the full
// pipeline without depending on any concrete filter implementation.
type alwaysFireFilter struct{ id string }

func (a alwaysFireFilter) ID() string       { return a.id }
func (a alwaysFireFilter) Priority() int    { return 1 }
func (a alwaysFireFilter) Configure(map[string]interface{}, *filter.Context) error { return nil }
func (a alwaysFireFilter) Preprocess(*enrich.Aircraft, *filter.Context)            {}
func (a alwaysFireFilter) Evaluate(*enrich.Aircraft) bool                          { return true }
func (a alwaysFireFilter) Sort(x, y *enrich.Aircraft) bool                         { return false }
func (a alwaysFireFilter) Format(ac *enrich.Aircraft) filter.Result {
	return filter.Result{Warn: true, Severity: filter.Medium, Text: "test firing"}
}

func newTestScheduler(t *testing.T, f Fetcher, pub publish.Publisher) (*Scheduler, *filter.Registry) {
	t.Helper()
	reg := filter.NewRegistry()
	reg.Register(alwaysFireFilter{id: "test"})

	squawksReg, err := squawks.LoadCodes(nil)
	if err != nil {
		t.Fatalf("squawks.LoadCodes: %v", err)
	}

	ctx := &filter.Context{
		Station:  enrich.Station{Lat: 51.5, Lon: -0.1},
		Airports: airport.NewRegistry(nil),
		Squawks:  squawksReg,
		Tracker:  tracking.New(),
	}

	s := New(Options{
		Interval:  time.Hour,
		Station:   ctx.Station,
		Fetcher:   f,
		Filters:   reg,
		FilterCtx: ctx,
		Tracker:   ctx.Tracker,
		Alerts:    alert.New(),
		Publisher: pub,
	})
	return s, reg
}

func sampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Aircraft: []snapshot.Aircraft{
			{Hex: "ABC123", Flight: strPtr("BAW1"), Lat: f64Ptr(51.6), Lon: f64Ptr(-0.2)},
			{Hex: "DEF456", Flight: strPtr("EXCLUDEME")},
		},
		Meta: snapshot.Meta{Timestamp: time.Now(), AircraftCount: 2},
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	inserts []alert.Alert
	states  int
}

func (r *recordingPublisher) PublishAlert(kind publish.AlertKind, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == publish.AlertInsert {
		r.inserts = append(r.inserts, a)
	}
	return nil
}

func (r *recordingPublisher) PublishState(s publish.StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states++
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestRunCycleFiltersExcludedFlightsAndPublishesAlerts(t *testing.T) {
	fetcher := &fakeFetcher{snap: sampleSnapshot()}
	pub := &recordingPublisher{}
	s, _ := newTestScheduler(t, fetcher, pub)
	s.opts.Exclude = []string{"EXCLUDEME"}

	s.runCycle(context.Background())

	stats := s.Stats()
	if stats.CyclesRun != 1 {
		t.Fatalf("expected 1 cycle run, got %d", stats.CyclesRun)
	}
	if stats.LastAircraft != 1 {
		t.Fatalf("expected excluded flight to be dropped, got %d aircraft", stats.LastAircraft)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.inserts) != 1 {
		t.Fatalf("expected 1 inserted alert published, got %d", len(pub.inserts))
	}
	if pub.inserts[0].Hex != "ABC123" {
		t.Errorf("expected alert for ABC123, got %s", pub.inserts[0].Hex)
	}
	if pub.states != 1 {
		t.Errorf("expected 1 state record published, got %d", pub.states)
	}
}

func TestRunCycleRecordsFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	s, _ := newTestScheduler(t, fetcher, publish.NopPublisher{})

	s.runCycle(context.Background())

	stats := s.Stats()
	if stats.CycleErrors != 1 {
		t.Fatalf("expected 1 cycle error recorded, got %d", stats.CycleErrors)
	}
	if stats.CyclesRun != 0 {
		t.Fatalf("expected no successful cycle recorded, got %d", stats.CyclesRun)
	}
}

func TestRunCycleSkipsWhenPreviousStillRunning(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{snap: sampleSnapshot(), block: block}
	s, _ := newTestScheduler(t, fetcher, publish.NopPublisher{})

	done := make(chan struct{})
	go func() {
		s.runCycle(context.Background())
		close(done)
	}()

	// Wait until the first cycle has entered Fetch (and is blocked there).
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		fetcher.mu.Lock()
		count := fetcher.fetchCount
		fetcher.mu.Unlock()
		if count == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	s.runCycle(context.Background()) // should observe the guard and return immediately

	close(block)
	<-done

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.fetchCount != 1 {
		t.Fatalf("expected the overlapping cycle to be skipped, got %d fetch calls", fetcher.fetchCount)
	}
}

func TestExcludeFlightsDropsTrimmedMatches(t *testing.T) {
	acs := []snapshot.Aircraft{
		{Hex: "A", Flight: strPtr("BAW1  ")},
		{Hex: "B", Flight: strPtr("KLM2")},
		{Hex: "C"}, // no flight at all, never excluded
	}
	out := excludeFlights(acs, []string{"BAW1"})
	if len(out) != 2 {
		t.Fatalf("expected 2 aircraft to remain, got %d", len(out))
	}
	for _, ac := range out {
		if ac.Hex == "A" {
			t.Error("expected BAW1 to be excluded despite trailing whitespace")
		}
	}
}
