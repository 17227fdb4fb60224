package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8089 {
		t.Errorf("expected default port 8089, got %d", cfg.Server.Port)
	}
	if cfg.Scheduler.CycleScanTimeSeconds != 30 {
		t.Errorf("expected default cycle scan time 30s, got %d", cfg.Scheduler.CycleScanTimeSeconds)
	}
	if cfg.Scheduler.MaxTrailSize != 20 {
		t.Errorf("expected default max trail size 20, got %d", cfg.Scheduler.MaxTrailSize)
	}
	if cfg.Scheduler.CycleScanTime() != 30_000_000_000 {
		t.Errorf("expected CycleScanTime() to be 30s, got %v", cfg.Scheduler.CycleScanTime())
	}
}

func TestLoadNonExistentFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/sentinel.yaml")
	if err != nil {
		t.Fatalf("expected no error for a missing file, got: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %s", cfg.Server.Host)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sentinel.yaml")
	body := `
station:
  lat: 51.5
  lon: -0.14
fetch:
  link: "http://localhost:8080/data/aircraft.json"
filters:
  vicinity:
    distance: 15
    altitude: 12000
warnsuppress:
  loitering: true
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Station.Lat != 51.5 || cfg.Station.Lon != -0.14 {
		t.Errorf("expected station (51.5,-0.14), got (%v,%v)", cfg.Station.Lat, cfg.Station.Lon)
	}
	if cfg.Fetch.Link != "http://localhost:8080/data/aircraft.json" {
		t.Errorf("unexpected fetch link: %s", cfg.Fetch.Link)
	}
	if got := cfg.Filters["vicinity"]["distance"]; got != 15 {
		t.Errorf("expected vicinity.distance=15, got %v", got)
	}
	if !cfg.WarnSuppress["loitering"] {
		t.Error("expected loitering to be in warnSuppress")
	}
	// Defaults not present in the file should still be applied.
	if cfg.Scheduler.AlertExpiryMinutes != 5 {
		t.Errorf("expected default alert expiry 5m, got %d", cfg.Scheduler.AlertExpiryMinutes)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("station:\n  lat: [unterminated"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed config content")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	os.Setenv("SENTINEL_SERVER_PORT", "9999")
	defer os.Unsetenv("SENTINEL_SERVER_PORT")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999 from environment override, got %d", cfg.Server.Port)
	}
}
