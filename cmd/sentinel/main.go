// Command sentinel is the ground-station event-detection daemon: it
// loads configuration, wires the fetcher, filter registry, tracker,
// alert manager, publish transports and status HTTP server together,
// and runs the scheduler until a termination signal arrives. The
// overall wiring order (config → collaborators → background loop
// goroutine → signal-based graceful shutdown) is grounded on
// cmd/collector/main.go's main().
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/groundwatch/sentinel/internal/hexcache"
	"github.com/groundwatch/sentinel/internal/httpserver"
	"github.com/groundwatch/sentinel/internal/metrics"
	"github.com/groundwatch/sentinel/internal/publish"
	"github.com/groundwatch/sentinel/internal/scheduler"
	"github.com/groundwatch/sentinel/pkg/airport"
	"github.com/groundwatch/sentinel/pkg/alert"
	"github.com/groundwatch/sentinel/pkg/config"
	"github.com/groundwatch/sentinel/pkg/enrich"
	"github.com/groundwatch/sentinel/pkg/filter"
	"github.com/groundwatch/sentinel/pkg/snapshot"
	"github.com/groundwatch/sentinel/pkg/squawks"
	"github.com/groundwatch/sentinel/pkg/tracking"
)

func main() {
	configPath := flag.String("config", "configs/sentinel.json", "Path to configuration file")
	airportsPath := flag.String("airports", "configs/airports.json", "Path to airport data file")
	squawksPath := flag.String("squawks", "configs/squawks.json", "Path to squawks data file")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Sentinel ADS-B Event-Detection Daemon")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Station: %.4f,%.4f (%.0fm)", cfg.Station.Lat, cfg.Station.Lon, cfg.Station.Alt)

	airports := loadAirports(*airportsPath, cfg.Airports.Apply)
	squawksReg := loadSquawks(*squawksPath)

	cache := hexcache.Load(cfg.Mappings.Filename)
	log.Printf("Hex cache loaded: %d entries", cache.Len())
	saveInterval := time.Duration(cfg.Mappings.SaveIntervalSec) * time.Second
	if saveInterval <= 0 {
		saveInterval = 5 * time.Minute
	}
	maxAge := time.Duration(cfg.Mappings.ExpiryTimeSec) * time.Second
	cache.RunSaveLoop(cfg.Mappings.Filename, saveInterval, maxAge)

	var resolver snapshot.FlightResolver
	if cfg.Mappings.FetchMode == "local" || cfg.Mappings.FetchMode == "" {
		resolver = cache
	}

	fetcher := snapshot.NewFetcher(cfg.Fetch.Link, snapshot.FetchOptions{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RetryDelay: time.Duration(cfg.Fetch.RetryDelaySeconds) * time.Second,
		Resolver:   resolver,
	})

	station := enrich.Station{Lat: cfg.Station.Lat, Lon: cfg.Station.Lon}

	registry := filter.NewRegistry()
	registry.Register(filter.NewEmergencyFilter())
	registry.Register(filter.NewMilitaryFilter())
	registry.Register(filter.NewAirproxFilter())
	registry.Register(filter.NewVicinityFilter())
	registry.Register(filter.NewAirportFilter())
	registry.Register(filter.NewOverheadFilter())
	registry.Register(filter.NewLandingFilter())
	registry.Register(filter.NewLiftingFilter())
	registry.Register(filter.NewAnomalyFilter())
	registry.Register(filter.NewWeatherFilter())
	registry.Register(filter.NewSquawksFilter())
	registry.Register(filter.NewSpecificFilter())
	registry.Register(filter.NewLoiteringFilter())

	tracker := tracking.NewWithLimits(cfg.Scheduler.MaxTrailSize, cfg.Scheduler.MaxTrailAge(), cfg.Scheduler.CacheExpiry())

	filterCtx := &filter.Context{
		Station:  station,
		Airports: airports,
		Squawks:  squawksReg,
		Tracker:  tracker,
	}
	if errs := registry.ConfigureAll(cfg.Filters, filterCtx); len(errs) > 0 {
		for id, err := range errs {
			log.Printf("filter %s disabled: %v", id, err)
		}
	}

	alerts := alert.NewWithOptions(cfg.Scheduler.AlertExpiry(), cfg.WarnSuppress)

	pub, wsHub, closePublisher := buildPublisher(cfg.MQTT)
	defer closePublisher()

	sched := scheduler.New(scheduler.Options{
		Interval:  cfg.Scheduler.CycleScanTime(),
		Station:   station,
		Exclude:   cfg.Flights.Exclude,
		Fetcher:   fetcher,
		Filters:   registry,
		FilterCtx: filterCtx,
		Tracker:   tracker,
		Alerts:    alerts,
		Publisher: pub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Run(ctx)

	go reportHexCacheSize(ctx, cache)

	router := httpserver.New(sched, wsHub)
	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Printf("HTTP status server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Sentinel started. Press Ctrl+C to stop.")
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := cache.Stop(cfg.Mappings.Filename); err != nil {
		log.Printf("Error flushing hex cache on exit: %v", err)
	}
	log.Println("Sentinel stopped.")
}

// loadAirports reads the airport data file and applies any configured
// per-icao overrides on top of the loaded table (spec.md §6's
// "airports.apply" and "Airport data" external interfaces).
func loadAirports(path string, overrides map[string]config.AirportOverride) *airport.Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("airports: %s not found, starting with an empty registry: %v", path, err)
		return airport.NewRegistry(nil)
	}

	var table map[string]airport.Airport
	if err := json.Unmarshal(data, &table); err != nil {
		log.Fatalf("airports: failed to parse %s: %v", path, err)
	}

	reg := airport.Load(table)

	if len(overrides) > 0 {
		reg.Apply(convertOverrides(overrides))
	}
	return reg
}

func convertOverrides(overrides map[string]config.AirportOverride) map[string]airport.Airport {
	out := make(map[string]airport.Airport, len(overrides))
	for icao, o := range overrides {
		out[icao] = airport.Airport{
			ICAO:            icao,
			Lat:             o.Lat,
			Lon:             o.Lon,
			HasPosition:     true,
			ElevationFt:     o.ElevationFt,
			RunwayLengthMax: o.RunwayLengthMax,
			RadiusKm:        o.RadiusKm,
			HeightFt:        o.HeightFt,
			Name:            o.Name,
			Type:            o.Type,
		}
	}
	return out
}

// loadSquawks reads the squawks data file (spec.md §6 "Squawks data").
// A missing or invalid file falls back to an empty table rather than
// failing startup, since squawk classification is an enrichment, not a
// correctness requirement.
func loadSquawks(path string) *squawks.Registry {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("squawks: %s not found, starting with an empty table: %v", path, err)
		reg, _ := squawks.LoadCodes(nil)
		return reg
	}
	defer f.Close()

	reg, err := squawks.Load(f)
	if err != nil {
		log.Printf("squawks: failed to parse %s, starting with an empty table: %v", path, err)
		reg, _ = squawks.LoadCodes(nil)
	}
	return reg
}

// buildPublisher wires the configured MQTT-shaped publish transports
// (spec.md §6 "MQTT publish (optional)"): the WebSocket hub backing
// /ws is always built so the status server can accept subscribers; an
// AMQP fanout publisher is added on top when mqtt.enabled.
func buildPublisher(cfg config.MQTTConfig) (publish.Publisher, *publish.WebSocketHub, func()) {
	wsHub := publish.NewWebSocketHub()

	if !cfg.Enabled {
		return wsHub, wsHub, func() { wsHub.Close() }
	}

	amqpPub, err := publish.NewAMQPPublisher(cfg.Server, cfg.PublishTopics.Alert, cfg.PublishTopics.State)
	if err != nil {
		log.Printf("mqtt: failed to connect to %s, falling back to websocket-only: %v", cfg.Server, err)
		return wsHub, wsHub, func() { wsHub.Close() }
	}

	multi := publish.Multi{Publishers: []publish.Publisher{amqpPub, wsHub}}
	return multi, wsHub, func() {
		amqpPub.Close()
		wsHub.Close()
	}
}

// reportHexCacheSize keeps the hexcache gauge current without coupling
// internal/metrics to internal/hexcache directly.
func reportHexCacheSize(ctx context.Context, cache *hexcache.Cache) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.HexCacheEntries.Set(float64(cache.Len()))
		}
	}
}

