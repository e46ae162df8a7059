// Package cache provides a thread-safe sharded LRU cache. The viewer
// uses it to bound page-text memory in the search index and to bound
// GPU texture residency in the presenter, whose evicted values must be
// destroyed through the eviction callback.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount is the number of shards. Power of 2 so shard
	// selection is a bitwise AND.
	shardCount = 16
	shardMask  = shardCount - 1

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 64
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// IntHasher computes the FNV-1a hash of an int key. Page indices are
// the common key type in the viewer.
func IntHasher(i int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for b := 0; b < 8; b++ {
		buf[b] = byte(i >> (8 * b))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Sharded is a thread-safe sharded LRU cache.
//
// Each shard has its own lock, so concurrent access to different pages
// rarely contends. Eviction is LRU per shard; when an eviction
// callback is set it runs outside the shard lock with the evicted
// key/value.
type Sharded[K comparable, V any] struct {
	shards   [shardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int
	onEvict  func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	lru     *lruList[K]
}

type entry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// New creates a sharded cache holding up to capacity entries per shard
// (<= 0 uses DefaultCapacity). onEvict, if non-nil, is invoked for
// every evicted entry; use it to release resources tied to values.
func New[K comparable, V any](capacity int, hasher Hasher[K], onEvict func(K, V)) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity, onEvict: onEvict}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries: make(map[K]*entry[K, V]),
			lru:     newLRUList[K](),
		}
	}
	return c
}

func (c *Sharded[K, V]) getShard(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value, marking it most recently used.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	sh := c.getShard(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	sh.lru.MoveToFront(e.node)
	v := e.value
	sh.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Set stores a value, evicting least recently used entries if the
// shard is over capacity.
func (c *Sharded[K, V]) Set(key K, value V) {
	sh := c.getShard(key)
	sh.mu.Lock()
	if e, ok := sh.entries[key]; ok {
		e.value = value
		sh.lru.MoveToFront(e.node)
		sh.mu.Unlock()
		return
	}
	evicted := c.evictOver(sh, c.capacity-1)
	node := sh.lru.PushFront(key)
	sh.entries[key] = &entry[K, V]{value: value, node: node}
	sh.mu.Unlock()
	c.notifyEvicted(evicted)
}

// evictedPair carries an evicted entry out of the shard lock.
type evictedPair[K comparable, V any] struct {
	key   K
	value V
}

// evictOver shrinks the shard to at most n entries. Caller holds the
// shard lock; the returned pairs are reported after it is released.
func (c *Sharded[K, V]) evictOver(sh *shard[K, V], n int) []evictedPair[K, V] {
	var out []evictedPair[K, V]
	for sh.lru.Len() > n {
		oldest, ok := sh.lru.RemoveOldest()
		if !ok {
			break
		}
		if e, ok := sh.entries[oldest]; ok {
			out = append(out, evictedPair[K, V]{key: oldest, value: e.value})
			delete(sh.entries, oldest)
		}
		c.evictions.Add(1)
	}
	return out
}

func (c *Sharded[K, V]) notifyEvicted(pairs []evictedPair[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, p := range pairs {
		c.onEvict(p.key, p.value)
	}
}

// GetOrCreate returns the cached value for key, calling create to
// produce it on a miss. create runs with the shard lock held, so two
// goroutines never compute the same page twice; keep it fast or accept
// the serialization, as the search index does for text extraction.
func (c *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	sh := c.getShard(key)
	sh.mu.Lock()
	if e, ok := sh.entries[key]; ok {
		sh.lru.MoveToFront(e.node)
		v := e.value
		sh.mu.Unlock()
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	value := create()
	evicted := c.evictOver(sh, c.capacity-1)
	node := sh.lru.PushFront(key)
	sh.entries[key] = &entry[K, V]{value: value, node: node}
	sh.mu.Unlock()
	c.notifyEvicted(evicted)
	return value
}

// Delete removes an entry without invoking the eviction callback.
func (c *Sharded[K, V]) Delete(key K) bool {
	sh := c.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return false
	}
	sh.lru.Remove(e.node)
	delete(sh.entries, key)
	return true
}

// Clear removes all entries, reporting each through the eviction
// callback so held resources are released.
func (c *Sharded[K, V]) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		evicted := c.evictOver(sh, 0)
		sh.mu.Unlock()
		c.notifyEvicted(evicted)
	}
}

// Len returns the total number of entries across all shards.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// Capacity returns the per-shard capacity.
func (c *Sharded[K, V]) Capacity() int { return c.capacity }

// Stats returns a snapshot of the cache counters.
func (c *Sharded[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}
