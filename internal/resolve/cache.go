package resolve

import "sync"

// DefaultCacheCapacity bounds the pair cache when no explicit capacity
// is configured.
const DefaultCacheCapacity = 4096

// pairKey identifies an unordered pair of operation ids.
type pairKey struct {
	lo, hi string
}

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type cacheEntry struct {
	conflicted bool
	lastUsed   int64
}

// Cache memoizes whether a pair of operations conflicts, so repeated
// batch passes over overlapping operation sets skip re-deriving the
// causal relation. Eviction drops the least recently used pair once
// capacity is reached. Recency is tracked with a logical sequence, not
// wall time, so two touches in the same instant still order correctly.
//
// A Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	seq      int64
	entries  map[pairKey]*cacheEntry
}

// NewCache returns a cache holding at most capacity pairs. A
// non-positive capacity falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[pairKey]*cacheEntry),
	}
}

// Get reports the cached outcome for the pair (idA, idB), refreshing
// its recency. The id order does not matter.
func (c *Cache) Get(idA, idB string) (conflicted, ok bool) {
	key := newPairKey(idA, idB)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false, false
	}
	c.seq++
	e.lastUsed = c.seq
	return e.conflicted, true
}

// Set records the outcome for the pair (idA, idB). When the cache is
// full the least recently used pair is evicted first.
func (c *Cache) Set(idA, idB string, conflicted bool) {
	key := newPairKey(idA, idB)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if e, ok := c.entries[key]; ok {
		e.conflicted = conflicted
		e.lastUsed = c.seq
		return
	}
	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{conflicted: conflicted, lastUsed: c.seq}
}

// evictOldest removes the entry with the smallest recency stamp.
// Callers hold c.mu.
func (c *Cache) evictOldest() {
	var (
		oldestKey pairKey
		oldestSeq int64
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.lastUsed < oldestSeq {
			oldestKey = key
			oldestSeq = e.lastUsed
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all cached pairs.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[pairKey]*cacheEntry)
}
