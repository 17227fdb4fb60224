package hexcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.json"))
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexcache.json")

	body, _ := json.Marshal(file{
		Version:  1,
		Mappings: map[string]string{"ABC123": "BAW1"},
	})
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c := Load(path)
	if c.Len() != 0 {
		t.Fatalf("expected version mismatch to start empty, got %d entries", c.Len())
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexcache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c := Load(path)
	if c.Len() != 0 {
		t.Fatalf("expected malformed file to start empty, got %d entries", c.Len())
	}
}

// TestSaveLoadRoundTrip reproduces spec.md §8 property 8: save->load->save
// is a fixed point when nothing changes in between.
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexcache.json")

	c := New()
	c.Put("ABC123", "BAW1", SourceLocal)
	c.PutAdditional("ABC123", AdditionalInfo{Registration: "G-TEST", Type: "A320"})

	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := Load(path)
	if loaded.Len() != 1 {
		t.Fatalf("expected 1 mapping after load, got %d", loaded.Len())
	}
	flight, ok := loaded.Get("ABC123")
	if !ok || flight != "BAW1" {
		t.Fatalf("expected flight BAW1, got %q (ok=%v)", flight, ok)
	}
	info, ok := loaded.Additional("ABC123")
	if !ok || info.Registration != "G-TEST" {
		t.Fatalf("expected registration G-TEST, got %+v (ok=%v)", info, ok)
	}

	reSavedPath := filepath.Join(dir, "hexcache2.json")
	if err := loaded.Save(reSavedPath); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	firstRaw, _ := os.ReadFile(path)
	secondRaw, _ := os.ReadFile(reSavedPath)

	var first, second file
	json.Unmarshal(firstRaw, &first)
	json.Unmarshal(secondRaw, &second)
	first.Timestamp, second.Timestamp = 0, 0

	firstNorm, _ := json.Marshal(first)
	secondNorm, _ := json.Marshal(second)
	if string(firstNorm) != string(secondNorm) {
		t.Errorf("expected save->load->save to be a fixed point, got:\n%s\nvs\n%s", firstNorm, secondNorm)
	}
}

func TestLookupReportsKnownMappings(t *testing.T) {
	c := New()
	if _, ok := c.Lookup("ABC123"); ok {
		t.Error("expected no mapping for an unknown hex")
	}

	c.Put("ABC123", "BAW1", SourceOnline)
	flight, ok := c.Lookup("ABC123")
	if !ok || flight != "BAW1" {
		t.Errorf("expected resolved flight BAW1, got %q (ok=%v)", flight, ok)
	}
}

func TestPruneRemovesStaleEntries(t *testing.T) {
	c := New()
	c.Put("OLD123", "BAW1", SourceLocal)
	c.Put("NEW456", "BAW2", SourceLocal)

	c.mu.Lock()
	c.timestamps["OLD123"] = time.Now().Add(-48 * time.Hour).UnixMilli()
	c.mu.Unlock()

	removed := c.Prune(24*time.Hour, time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if _, ok := c.Get("OLD123"); ok {
		t.Error("expected OLD123 to be pruned")
	}
	if _, ok := c.Get("NEW456"); !ok {
		t.Error("expected NEW456 to survive pruning")
	}
}

func TestRunSaveLoopPersistsOnDirtyAndStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexcache.json")

	c := New()
	c.RunSaveLoop(path, time.Hour, 0) // interval long enough to never fire on its own

	c.Put("ABC123", "BAW1", SourceLocal)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := c.Stop(path); err != nil {
		t.Fatalf("stop: %v", err)
	}

	loaded := Load(path)
	if loaded.Len() != 1 {
		t.Fatalf("expected the dirty-triggered save to persist 1 mapping, got %d", loaded.Len())
	}
}
