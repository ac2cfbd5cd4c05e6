// Package cache implements the result cache (spec §4.7): a bounded
// in-memory LRU of item_id -> CheckResult, with an optional file-backed
// tier for cross-process reuse.
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/checkflow/checkflow/pkg/models"
)

// DefaultMaxEntries is the in-memory LRU's default capacity.
const DefaultMaxEntries = 200

// Stats reports the cache's lifetime counters.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

// HitRate is Hits / (Hits + Misses), or 0 when nothing has been requested.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	itemID string
	result models.CheckResult
}

// Cache is a thread-safe, bounded LRU mapping item_id -> CheckResult, with
// an optional file-backed overflow tier (spec §4.7). A single instance is
// meant to be configured once per process and shared across every
// dispatched item.
type Cache struct {
	capacity     int
	fileCacheDir string

	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List
	stats   Stats
}

// New creates a Cache with the given in-memory capacity and optional
// file-cache directory (empty disables the file tier).
func New(capacity int, fileCacheDir string) *Cache {
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}
	return &Cache{
		capacity:     capacity,
		fileCacheDir: fileCacheDir,
		entries:      make(map[string]*list.Element),
		order:        list.New(),
	}
}

// Get consults memory first, then (if enabled) the file cache, per spec
// §4.7. A file-cache hit is promoted into memory.
func (c *Cache) Get(itemID string) (models.CheckResult, bool) {
	c.mu.Lock()
	if el, found := c.entries[itemID]; found {
		c.order.MoveToFront(el)
		c.stats.Hits++
		result := el.Value.(*entry).result
		c.mu.Unlock()
		return result, true
	}
	c.mu.Unlock()

	if c.fileCacheDir == "" {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return models.CheckResult{}, false
	}

	result, ok := c.readFile(itemID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.stats.Misses++
		return models.CheckResult{}, false
	}
	c.stats.Hits++
	c.insertLocked(itemID, result)
	return result, true
}

// Set publishes result to memory and, when enabled, to the file cache.
func (c *Cache) Set(itemID string, result models.CheckResult) {
	c.mu.Lock()
	c.insertLocked(itemID, result)
	c.mu.Unlock()

	if c.fileCacheDir != "" {
		if err := c.writeFile(itemID, result); err != nil {
			log.Warn().Err(err).Str("item_id", itemID).Msg("failed to write file cache entry")
		}
	}
}

// insertLocked must be called with c.mu held.
func (c *Cache) insertLocked(itemID string, result models.CheckResult) {
	if el, found := c.entries[itemID]; found {
		c.order.MoveToFront(el)
		el.Value.(*entry).result = result
		return
	}
	el := c.order.PushFront(&entry{itemID: itemID, result: result})
	c.entries[itemID] = el

	if c.order.Len() > c.capacity {
		c.evictOldestLocked()
	}
}

// evictOldestLocked must be called with c.mu held.
func (c *Cache) evictOldestLocked() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*entry).itemID)
	c.stats.Evictions++
	if float64(c.stats.Evictions) > float64(c.capacity)/2 {
		log.Warn().Int("max_cache_size", c.capacity).Msg("eviction pressure: consider raising --max-cache-size")
	}
}

// Stats returns a snapshot of the cache's lifetime counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Len returns the number of entries currently held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

func (c *Cache) filePath(itemID string) string {
	return filepath.Join(c.fileCacheDir, itemID+".json")
}

func (c *Cache) readFile(itemID string) (models.CheckResult, bool) {
	data, err := os.ReadFile(c.filePath(itemID)) // #nosec G304 - itemID is a validated check-item identifier
	if err != nil {
		return models.CheckResult{}, false
	}
	var result models.CheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Tolerate a concurrent writer: retry once before giving up (spec §5).
		data, err = os.ReadFile(c.filePath(itemID)) // #nosec G304
		if err != nil || json.Unmarshal(data, &result) != nil {
			return models.CheckResult{}, false
		}
	}
	return result, true
}

func (c *Cache) writeFile(itemID string, result models.CheckResult) error {
	if err := os.MkdirAll(c.fileCacheDir, 0o750); err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tmp := filepath.Join(c.fileCacheDir, fmt.Sprintf(".%s.tmp-%s", itemID, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.filePath(itemID))
}
