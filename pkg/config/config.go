// Package config loads the daemon's configuration (spec.md §6
// "Configuration surface") using viper: a JSON or YAML file plus
// SENTINEL_<SECTION>_<KEY> environment overrides, unmarshalled into a
// nested struct per concern, following the teacher's ServerConfig-style
// sub-struct shape.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig
	Station   StationConfig
	Fetch     FetchConfig
	Scheduler SchedulerConfig

	// Filters holds each filter's raw config block, keyed by filter id,
	// handed to filter.Registry.ConfigureAll unchanged.
	Filters map[string]map[string]interface{}

	// WarnSuppress lists filter ids whose alerts should never set warn=true.
	WarnSuppress map[string]bool

	Flights  FlightsConfig
	Airports AirportsConfig
	MQTT     MQTTConfig
	Mappings MappingsConfig
}

// ServerConfig is the HTTP status-surface bind address (spec.md §6
// additions: /healthz, /stats, /metrics, /ws).
type ServerConfig struct {
	Host string
	Port int
}

// StationConfig is the ground station's reference position (spec.md §3).
type StationConfig struct {
	Lat float64
	Lon float64
	Alt float64 // meters
}

// FetchConfig configures the snapshot fetcher (spec.md §4.3).
type FetchConfig struct {
	Link              string
	RangeMaxNM        float64
	TimeoutSeconds    int
	MaxRetries        int
	RetryDelaySeconds int
}

// SchedulerConfig carries spec.md §6's scheduler constants, overridable
// per deployment.
type SchedulerConfig struct {
	CycleScanTimeSeconds int
	CacheExpiryMinutes   int
	AlertExpiryMinutes   int
	MaxTrailSize         int
	MaxTrailAgeMinutes   int
}

// CycleScanTime returns the configured poll interval as a Duration.
func (s SchedulerConfig) CycleScanTime() time.Duration {
	return time.Duration(s.CycleScanTimeSeconds) * time.Second
}

// CacheExpiry returns the configured tracker cache expiry as a Duration.
func (s SchedulerConfig) CacheExpiry() time.Duration {
	return time.Duration(s.CacheExpiryMinutes) * time.Minute
}

// AlertExpiry returns the configured alert expiry as a Duration.
func (s SchedulerConfig) AlertExpiry() time.Duration {
	return time.Duration(s.AlertExpiryMinutes) * time.Minute
}

// MaxTrailAge returns the configured trajectory trail age bound as a Duration.
func (s SchedulerConfig) MaxTrailAge() time.Duration {
	return time.Duration(s.MaxTrailAgeMinutes) * time.Minute
}

// FlightsConfig lists callsigns to drop before preprocessing (spec.md §6).
type FlightsConfig struct {
	Exclude []string
}

// AirportOverride is one per-icao override entry under airports.apply.
type AirportOverride struct {
	Lat             float64
	Lon             float64
	ElevationFt     float64
	RunwayLengthMax float64
	RadiusKm        *float64
	HeightFt        *float64
	Name            string
	Type            string
}

// AirportsConfig carries per-icao registry overrides.
type AirportsConfig struct {
	Apply map[string]AirportOverride
}

// PublishTopics names the MQTT topic roots for alert and state records.
type PublishTopics struct {
	Alert string
	State string
}

// MQTTConfig configures the optional MQTT-style publish adapter
// (spec.md §6's "MQTT publish (optional)", realized via AMQP/websocket
// adapters in SPEC_FULL.md's domain stack).
type MQTTConfig struct {
	Enabled       bool
	Server        string
	ClientID      string
	PublishTopics PublishTopics
}

// MappingsConfig configures the hex→flight persistence cache (spec.md §6).
type MappingsConfig struct {
	Filename           string
	SaveIntervalSec    int
	ExpiryTimeSec      int
	FetchOnline        bool
	FetchMode          string
	FetchQueueInterval int
	FetchBatchSize     int
	HexdbBaseURL       string
}

// Defaults mirror spec.md §6's scheduler constants and §4 thresholds,
// set via viper.SetDefault before Unmarshal, per the teacher's
// DefaultRetryConfig-style "sensible defaults" approach.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8089)

	v.SetDefault("fetch.rangemaxnm", 50.0)
	v.SetDefault("fetch.timeoutseconds", 15)
	v.SetDefault("fetch.maxretries", 3)
	v.SetDefault("fetch.retrydelayseconds", 1)

	v.SetDefault("scheduler.cyclescantimeseconds", 30)
	v.SetDefault("scheduler.cacheexpiryminutes", 5)
	v.SetDefault("scheduler.alertexpiryminutes", 5)
	v.SetDefault("scheduler.maxtrailsize", 20)
	v.SetDefault("scheduler.maxtrailageminutes", 10)

	v.SetDefault("mappings.filename", "hexcache.json")
	v.SetDefault("mappings.saveintervalsec", 300)
	v.SetDefault("mappings.expirytimesec", 2592000)
	v.SetDefault("mappings.fetchmode", "local")
}

// Load reads configuration from path (JSON or YAML, by extension),
// applying SENTINEL_<SECTION>_<KEY> environment overrides on top.
// A missing file is not an error: defaults plus environment overrides
// are returned, matching the teacher's "file absent -> DefaultConfig()"
// fallback in spirit.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}
