package rankings

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is a bounded, timestamp-keyed side channel for computed
// hierarchy results. Correctness never depends on it: every read path
// falls back to recomputation on a miss, and every write path that
// affects cached values calls InvalidatePlayer. Staleness is accepted
// only within the TTL.
type Cache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]cacheEntry
}

type cacheEntry struct {
	value    int
	storedAt time.Time
}

func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

func playerKey(playerID int, parts ...string) string {
	key := fmt.Sprintf("player:%d", playerID)
	if len(parts) > 0 {
		key += ":" + strings.Join(parts, ":")
	}
	return key
}

// GetClusterRating returns a cached cluster rating if still fresh.
func (c *Cache) GetClusterRating(playerID, clusterID int) (int, bool) {
	return c.get(playerKey(playerID, "cluster", fmt.Sprint(clusterID)))
}

func (c *Cache) SetClusterRating(playerID, clusterID, rating int) {
	c.set(playerKey(playerID, "cluster", fmt.Sprint(clusterID)), rating)
}

func (c *Cache) GetOverall(playerID int) (int, bool) {
	return c.get(playerKey(playerID, "overall"))
}

func (c *Cache) SetOverall(playerID, rating int) {
	c.set(playerKey(playerID, "overall"), rating)
}

// InvalidatePlayer drops every cached value for one player. Called from
// every write path that touches the player's ratings.
func (c *Cache) InvalidatePlayer(playerID int) {
	if c == nil {
		return
	}
	prefix := playerKey(playerID) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// InvalidateAll empties the cache, used by bulk resets.
func (c *Cache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) get(key string) (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Since(entry.storedAt) > c.ttl {
		return 0, false
	}
	return entry.value, true
}

func (c *Cache) set(key string, value int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		// Evict expired entries first; if none expired, drop arbitrary
		// entries until bounded again.
		for k, e := range c.entries {
			if time.Since(e.storedAt) > c.ttl {
				delete(c.entries, k)
			}
		}
		for k := range c.entries {
			if len(c.entries) < c.maxEntries {
				break
			}
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{value: value, storedAt: time.Now()}
}
