package streamapi

import (
	"sync"
	"time"
)

// streamCache holds resolved stream URLs for a limited time. The remote
// service signs its media URLs with an expiry of roughly an hour, so cached
// entries are dropped before they would go stale.
type streamCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	info    StreamInfo
	expires time.Time
}

func newStreamCache(ttl time.Duration) *streamCache {
	return &streamCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached stream info for the track ID, if still fresh.
func (c *streamCache) Get(id string) (StreamInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return StreamInfo{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, id)
		return StreamInfo{}, false
	}
	return entry.info, true
}

// Put stores a resolved stream info under the track ID.
func (c *streamCache) Put(id string, info StreamInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cacheEntry{
		info:    info,
		expires: c.now().Add(c.ttl),
	}
}
