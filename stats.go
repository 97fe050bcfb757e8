package lfu

import "sync/atomic"

type (
	// Stats is a point-in-time view of a [Cache]'s counters.
	Stats struct {
		// Hits counts [Cache.Get] calls that found their key.
		Hits uint64
		// Misses counts [Cache.Get] calls that did not.
		Misses uint64
		// Promotions counts entries moved up a frequency tier,
		// by hits and by updates.
		Promotions uint64
		// Insertions counts new keys admitted.
		Insertions uint64
		// Removals counts entries removed by [Cache.Remove].
		Removals uint64
		// Evictions counts entries removed to make room,
		// automatically or through [Cache.Evict].
		Evictions uint64
		// Waits counts the times an inserter blocked on a full cache.
		Waits uint64
		// Len and Capacity mirror [Cache.Len] and [Cache.Capacity].
		Len, Capacity int
	}
	counters struct {
		hits, misses,
		promotions, insertions,
		removals, evictions,
		waits atomic.Uint64
	}
)

// HitRatio returns hits / (hits + misses), or 0 before any lookups.
func (s Stats) HitRatio() float64 {
	lookups := s.Hits + s.Misses
	if lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(lookups)
}

// Stats returns the cache's counters.
// Counters are read individually, not as an atomic snapshot.
func (c *Cache[_, _]) Stats() Stats {
	return Stats{
		Hits:       c.counters.hits.Load(),
		Misses:     c.counters.misses.Load(),
		Promotions: c.counters.promotions.Load(),
		Insertions: c.counters.insertions.Load(),
		Removals:   c.counters.removals.Load(),
		Evictions:  c.counters.evictions.Load(),
		Waits:      c.counters.waits.Load(),
		Len:        c.Len(),
		Capacity:   c.capacity,
	}
}
