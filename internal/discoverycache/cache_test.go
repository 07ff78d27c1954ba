// ABOUTME: Tests for the discovery cache file round-trip and error tolerance
// ABOUTME: Verifies save/load equality and that corrupt/missing files never error
package discoverycache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/betterclock/betterclock-go/internal/wire"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "discovery_cache.json")
	c := New(path)

	want := wire.DiscoveryResult{
		BaseURL: "http://192.168.1.50:8099",
		IP:      "192.168.1.50",
		Port:    8099,
		Service: "betterclock",
		Version: 1,
		Via:     wire.ViaUDPBroadcast,
	}
	c.Save(want, 1700000000000)

	// Force a file read by bypassing the memory layer's still-warm entry:
	// a fresh Cache instance over the same path.
	fresh := New(path)
	got, ok := fresh.Load()
	if !ok {
		t.Fatal("expected cache hit after save")
	}
	if got != want {
		t.Errorf("expected round-tripped result %+v, got %+v", want, got)
	}
}

func TestLoadMissingFileReturnsNoCache(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.json"))
	_, ok := c.Load()
	if ok {
		t.Error("expected no cache for missing file")
	}
}

func TestLoadCorruptFileReturnsNoCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "discovery_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(path)
	_, ok := c.Load()
	if ok {
		t.Error("expected no cache for corrupt file")
	}
}

func TestSaveNeverPanicsOnUnwritablePath(t *testing.T) {
	c := New("/this/path/does/not/exist/and/cannot/be/created/cache.json")
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Save must never panic, got: %v", r)
		}
	}()
	c.Save(wire.DiscoveryResult{BaseURL: "x", IP: "1.2.3.4", Port: 1, Version: 1}, 0)
}
