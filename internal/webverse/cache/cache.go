// Package cache is a short-TTL read cache in front of the progress
// store and the identity endpoints. It owns invalidate-on-write and
// the convergence protocol used after mutating events.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache keys. Notes entries are per-lab and use NotesKey.
const (
	KeyProgressMap  = "progress_map"
	KeySummary      = "summary"
	KeyStats        = "stats"
	KeyRecent       = "recent"
	KeyProfile      = "profile"
	KeyDeviceLinked = "device_linked"

	notesPrefix = "notes/"
)

// TTLs per kind. Hot UI fields stay sub-few-seconds; the device
// linkage check changes rarely and is cached much longer.
const (
	DefaultTTL      = 2 * time.Second
	ProfileTTL      = 8 * time.Second
	DeviceLinkedTTL = 30 * time.Second
)

// NotesKey returns the cache key for a lab's notes
func NotesKey(labID string) string {
	return notesPrefix + labID
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache is a TTL cache. A read past TTL is treated as absent.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttls    map[string]time.Duration
	now     func() time.Time
}

// New creates a cache with the default per-kind TTLs
func New() *Cache {
	return &Cache{
		entries: map[string]entry{},
		ttls: map[string]time.Duration{
			KeyProfile:      ProfileTTL,
			KeyDeviceLinked: DeviceLinkedTTL,
		},
		now: time.Now,
	}
}

func (c *Cache) ttl(key string) time.Duration {
	if ttl, ok := c.ttls[key]; ok {
		return ttl
	}
	return DefaultTTL
}

// Get returns the cached value for key if it is still fresh
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > c.ttl(key) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put stores a value for key, stamped with the current time
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate clears the entries a per-lab write could have derived:
// every global aggregate, plus that lab's notes. Called by every
// write path so the next read is forced through.
func (c *Cache) Invalidate(labID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, KeyProgressMap)
	delete(c.entries, KeySummary)
	delete(c.entries, KeyStats)
	delete(c.entries, KeyRecent)
	delete(c.entries, KeyProfile)
	if labID != "" {
		delete(c.entries, NotesKey(labID))
	}
}

// InvalidateAll clears everything, including notes and the device
// linkage check. Used on authentication transitions so no view can
// show a mix of old and new identity.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		delete(c.entries, k)
	}
}

// InvalidateNotes clears all per-lab notes entries
func (c *Cache) InvalidateNotes() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, notesPrefix) {
			delete(c.entries, k)
		}
	}
}
