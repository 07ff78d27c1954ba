// ABOUTME: Persistent JSON discovery cache plus a short-lived in-memory front
// ABOUTME: File I/O swallows every error by design; the cache is an optimization, never authoritative
package discoverycache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/betterclock/betterclock-go/internal/wire"
	"github.com/jellydator/ttlcache/v3"
)

// DirName and FileName make up the on-disk cache location,
// <home>/.betterclock_time/discovery_cache.json, per spec.md §4.6/§6.
const (
	DirName     = ".betterclock_time"
	FileName    = "discovery_cache.json"
	memoryTTL   = 2 * time.Second
	memoryKey   = "discovery"
)

type onDiskEntry struct {
	BaseURL       string `json:"base_url"`
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	Service       string `json:"service"`
	Version       int    `json:"version"`
	Via           string `json:"via"`
	UpdatedUnixMS int64  `json:"updated_unix_ms"`
}

// DefaultPath returns <home>/.betterclock_time/discovery_cache.json,
// falling back to a relative path if the home directory can't be resolved
// (mirrors the original's os.path.expanduser, which likewise never fails
// fatally).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, DirName, FileName)
}

// Cache fronts a discovery cache file with a short-TTL in-memory layer so
// repeated scans (e.g. a CLI watch loop) within a couple seconds don't
// re-stat the file every time. The file remains the source of truth across
// process restarts; the memory layer is purely an optimization on top of it.
type Cache struct {
	path string
	mem  *ttlcache.Cache[string, wire.DiscoveryResult]
}

// New creates a Cache backed by the file at path.
func New(path string) *Cache {
	return &Cache{
		path: path,
		mem:  ttlcache.New[string, wire.DiscoveryResult](ttlcache.WithTTL[string, wire.DiscoveryResult](memoryTTL)),
	}
}

// Path returns the on-disk cache file path this Cache was constructed with.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached DiscoveryResult, or (zero, false) if there is no
// cache, the file is missing/corrupt, or the entry is structurally invalid.
// Never returns an error: cache failures must never break connectivity.
func (c *Cache) Load() (wire.DiscoveryResult, bool) {
	if item := c.mem.Get(memoryKey); item != nil && !item.IsExpired() {
		return item.Value(), true
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return wire.DiscoveryResult{}, false
	}

	var entry onDiskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return wire.DiscoveryResult{}, false
	}
	if entry.BaseURL == "" || entry.IP == "" || entry.Port <= 0 {
		return wire.DiscoveryResult{}, false
	}

	service := entry.Service
	if service == "" {
		service = "betterclock"
	}
	via := entry.Via
	if via == "" {
		via = "cache"
	}
	result := wire.DiscoveryResult{
		BaseURL: entry.BaseURL,
		IP:      entry.IP,
		Port:    entry.Port,
		Service: service,
		Version: orOne(entry.Version),
		Via:     wire.DiscoveryVia(via),
	}
	c.mem.Set(memoryKey, result, memoryTTL)
	return result, true
}

// Save best-effort writes a DiscoveryResult to the cache file. Any failure
// (permission, missing directory, full disk) is silently ignored per
// spec.md §4.6/§7 CacheUnavailable policy.
func (c *Cache) Save(result wire.DiscoveryResult, nowUnixMS int64) {
	c.mem.Set(memoryKey, result, memoryTTL)

	dir := filepath.Dir(c.path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
	}

	entry := onDiskEntry{
		BaseURL:       result.BaseURL,
		IP:            result.IP,
		Port:          result.Port,
		Service:       result.Service,
		Version:       result.Version,
		Via:           string(result.Via),
		UpdatedUnixMS: nowUnixMS,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path) // best-effort; a racing writer may win instead, which is acceptable
}

func orOne(v int) int {
	if v == 0 {
		return 1
	}
	return v
}
