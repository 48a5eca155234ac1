package cache

import "time"

// Cache defines a minimal key-value cache API with per-entry TTL.
// Absence is reported through the boolean return, never through an error.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	// Reading never extends an entry's lifetime (fixed expiry, not sliding).
	Get(key K) (V, bool)

	// Set stores the value with an explicit TTL. If ttl <= 0, the cache's
	// default TTL applies. Setting an existing key resets its expiry.
	Set(key K, value V, ttl time.Duration)

	// Invalidate removes a key immediately, regardless of TTL.
	Invalidate(key K)

	// Has reports whether a key is present and not expired.
	Has(key K) bool

	// Len returns the number of non-expired items currently stored.
	Len() int

	// Clear removes all entries.
	Clear()

	// Sweep scans all entries once and removes those whose expiry has
	// passed at the given instant, returning how many were removed.
	Sweep(at time.Time) int
}
