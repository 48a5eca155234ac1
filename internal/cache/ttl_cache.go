package cache

import (
	"sync"
	"time"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(at time.Time) bool {
	return !at.Before(e.expiresAt)
}

// TTLCache is a map-backed cache with fixed per-entry expiry and periodic
// whole-map sweeps. One instance is the unit of mutual exclusion: a single
// RWMutex serializes all reads, writes and sweeps, so no entry is ever
// observable mid-mutation.
type TTLCache[K comparable, V any] struct {
	mu sync.RWMutex

	items         map[K]entry[V]
	defaultTTL    time.Duration
	sweepInterval time.Duration
	lastSweep     time.Time
}

// now is a small indirection to allow test stubbing.
var now = time.Now

// NewTTLCache constructs a TTLCache. Entries set without an explicit TTL
// expire after defaultTTL; a sweep is triggered opportunistically on writes
// once sweepInterval has elapsed since the previous one.
func NewTTLCache[K comparable, V any](defaultTTL, sweepInterval time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:         make(map[K]entry[V]),
		defaultTTL:    defaultTTL,
		sweepInterval: sweepInterval,
		lastSweep:     now(),
	}
}

// Get implements Cache.Get. Expired entries are logically absent even
// before a sweep physically removes them.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		return zero, false
	}
	return e.value, true
}

// Set implements Cache.Set. It overwrites any existing entry, resets its
// expiry, and opportunistically sweeps when the sweep interval has elapsed.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	at := now()
	c.items[key] = entry[V]{value: value, expiresAt: at.Add(ttl)}
	if at.Sub(c.lastSweep) >= c.sweepInterval {
		c.sweepLocked(at)
	}
}

// Invalidate implements Cache.Invalidate.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Has implements Cache.Has.
func (c *TTLCache[K, V]) Has(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return ok && !e.expired(now())
}

// Len implements Cache.Len. It counts only non-expired entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at := now()
	count := 0
	for _, e := range c.items {
		if !e.expired(at) {
			count++
		}
	}
	return count
}

// Clear implements Cache.Clear.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}

// Sweep implements Cache.Sweep. It removes exactly the entries whose
// expiry has passed at the given instant; unexpired entries are untouched.
func (c *TTLCache[K, V]) Sweep(at time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(at)
}

func (c *TTLCache[K, V]) sweepLocked(at time.Time) int {
	removed := 0
	for k, e := range c.items {
		if e.expired(at) {
			delete(c.items, k)
			removed++
		}
	}
	c.lastSweep = at
	return removed
}

// Janitor runs periodic sweeps until the stop channel closes. It exists for
// long-lived caches whose write traffic is too sparse to trigger the
// opportunistic sweep in Set.
func (c *TTLCache[K, V]) Janitor(stop <-chan struct{}) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep(now())
		case <-stop:
			return
		}
	}
}

// Ensure TTLCache implements Cache at compile time.
var _ Cache[string, any] = (*TTLCache[string, any])(nil)
