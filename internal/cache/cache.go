// Package cache provides the in-process availability cache: byte-budget
// bounded, TTL-aware, with selectable eviction policy. The cache is purely an
// accelerator; slot computation must produce identical results with or
// without it.
package cache

import (
	"container/list"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"
)

// ErrCacheImport reports a malformed snapshot. The cache keeps its prior
// state when import fails.
var ErrCacheImport = errors.New("cache import failed")

// Policy selects the eviction strategy under byte pressure.
type Policy string

const (
	PolicyLRU  Policy = "lru"
	PolicyLFU  Policy = "lfu"
	PolicyFIFO Policy = "fifo"
)

// Valid reports whether the policy is a known one.
func (p Policy) Valid() bool {
	return p == PolicyLRU || p == PolicyLFU || p == PolicyFIFO
}

// DefaultMaxBytes is the byte budget used when the caller passes none.
const DefaultMaxBytes = 100 << 20 // 100MB

type entry struct {
	key          string
	value        any
	size         int64
	expiresAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	elem         *list.Element
}

// Stats is the observability snapshot.
type Stats struct {
	Hits             int64         `json:"hits"`
	Misses           int64         `json:"misses"`
	HitRate          float64       `json:"hit_rate"`
	AvgAccessLatency time.Duration `json:"avg_access_latency"`
	CurrentSize      int64         `json:"current_size"`
	MaxSize          int64         `json:"max_size"`
	ItemCount        int           `json:"item_count"`
	Evictions        int64         `json:"evictions"`
}

// Cache is a mutex-guarded bounded TTL cache. All mutation goes through the
// public methods so size accounting and policy ordering stay consistent.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	policy   Policy
	entries  map[string]*entry
	// order holds eviction candidates at the front: recency order under
	// LRU, insertion order under FIFO. Unused under LFU.
	order    *list.List
	curBytes int64

	hits, misses, evictions int64
	accessNanos             int64
	accesses                int64

	now func() time.Time
}

// New builds a cache. maxBytes <= 0 selects DefaultMaxBytes, an invalid
// policy falls back to LRU.
func New(maxBytes int64, policy Policy) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !policy.Valid() {
		policy = PolicyLRU
	}
	return &Cache{
		maxBytes: maxBytes,
		policy:   policy,
		entries:  make(map[string]*entry),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock injects a clock for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the cached value. Expired entries count as misses and are
// evicted on the spot.
func (c *Cache) Get(key string) (any, bool) {
	begin := time.Now()
	c.mu.Lock()
	defer func() {
		c.accessNanos += time.Since(begin).Nanoseconds()
		c.accesses++
		c.mu.Unlock()
	}()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !e.expiresAt.After(c.now()) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	e.accessCount++
	e.lastAccessed = c.now()
	if c.policy == PolicyLRU {
		c.order.MoveToBack(e.elem)
	}
	c.hits++
	return e.value, true
}

// Set inserts a value with the given TTL, evicting per policy until the
// entry fits the byte budget. An entry larger than the whole budget is
// dropped rather than wiping the cache for nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	size := estimateSize(value)
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}

	for c.curBytes+size > c.maxBytes && len(c.entries) > 0 {
		c.evictOneLocked()
	}

	e := &entry{
		key:          key,
		value:        value,
		size:         size,
		expiresAt:    c.now().Add(ttl),
		lastAccessed: c.now(),
	}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
	c.curBytes += size
}

// Delete removes an entry. Idempotent.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Keys returns all live keys matching a glob pattern ("*" matches any run).
func (c *Cache) Keys(pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var keys []string
	for k, e := range c.entries {
		if !e.expiresAt.After(now) {
			continue
		}
		if ok, err := path.Match(pattern, k); err == nil && ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// DeleteMatching removes all entries matching the glob pattern and returns
// how many went away. Used for targeted invalidation after booking events.
func (c *Cache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			c.removeLocked(e)
			n++
		}
	}
	return n
}

// RemoveExpired drops every expired entry and reports how many. The host
// calls this from its periodic sweep.
func (c *Cache) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, e := range c.entries {
		if !e.expiresAt.After(now) {
			c.removeLocked(e)
			n++
		}
	}
	return n
}

// Stats returns the aggregate counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		CurrentSize: c.curBytes,
		MaxSize:     c.maxBytes,
		ItemCount:   len(c.entries),
		Evictions:   c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	if c.accesses > 0 {
		s.AvgAccessLatency = time.Duration(c.accessNanos / c.accesses)
	}
	return s
}

func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.order.Remove(e.elem)
	c.curBytes -= e.size
}

func (c *Cache) evictOneLocked() {
	var victim *entry
	switch c.policy {
	case PolicyLFU:
		for _, e := range c.entries {
			if victim == nil || e.accessCount < victim.accessCount {
				victim = e
			}
		}
	default: // LRU and FIFO both evict from the front of the order list.
		if front := c.order.Front(); front != nil {
			victim = front.Value.(*entry)
		}
	}
	if victim != nil {
		c.removeLocked(victim)
		c.evictions++
	}
}

// estimateSize approximates an entry's footprint by its JSON encoding.
func estimateSize(value any) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return 1
	}
	return int64(len(data))
}

type snapshotEntry struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	ExpiresAt   time.Time       `json:"expires_at"`
	AccessCount int64           `json:"access_count"`
}

type snapshot struct {
	Policy  Policy          `json:"policy"`
	Entries []snapshotEntry `json:"entries"`
}

// Export writes a JSON snapshot of the live entries.
func (c *Cache) Export(w io.Writer) error {
	c.mu.Lock()
	snap := snapshot{Policy: c.policy}
	now := c.now()
	for _, e := range c.entries {
		if !e.expiresAt.After(now) {
			continue
		}
		data, err := json.Marshal(e.value)
		if err != nil {
			continue
		}
		snap.Entries = append(snap.Entries, snapshotEntry{
			Key:         e.key,
			Value:       data,
			ExpiresAt:   e.expiresAt,
			AccessCount: e.accessCount,
		})
	}
	c.mu.Unlock()

	return json.NewEncoder(w).Encode(snap)
}

// Import loads a snapshot previously written by Export. Values come back as
// json.RawMessage; readers that miss on the type simply recompute. A
// malformed snapshot returns ErrCacheImport and leaves the cache untouched.
func (c *Cache) Import(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheImport, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, se := range snap.Entries {
		if !se.ExpiresAt.After(now) {
			continue
		}
		size := int64(len(se.Value))
		if size > c.maxBytes {
			continue
		}
		if old, ok := c.entries[se.Key]; ok {
			c.removeLocked(old)
		}
		for c.curBytes+size > c.maxBytes && len(c.entries) > 0 {
			c.evictOneLocked()
		}
		e := &entry{
			key:          se.Key,
			value:        se.Value,
			size:         size,
			expiresAt:    se.ExpiresAt,
			lastAccessed: now,
			accessCount:  se.AccessCount,
		}
		e.elem = c.order.PushBack(e)
		c.entries[se.Key] = e
		c.curBytes += size
	}
	return nil
}
