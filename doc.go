// Package lfu implements a bounded, concurrent [Cache] using a
// Least-Frequently-Used replacement policy.
//
// Ties within a frequency are broken by promotion order:
// the entry that entered its frequency tier first is evicted first.
// Get, Put and Remove are O(1) amortized; the eviction scan is bounded
// by the number of distinct frequencies currently held.
//
// The following is a summary intended for maintainers.
//
// Glossary and invariants:
//
//   - Entry
//
//     One key/value pair, its own mutex, and a retired flag.
//     An entry is retired exactly once (on removal, eviction or clear)
//     and is unreachable from the index afterwards.
//
//   - Bucket
//
//     The set of entries sharing one frequency count,
//     kept in the order they entered the bucket.
//     Buckets form a chain ordered by strictly increasing count.
//     The head bucket has count 1, always exists, and is never retired.
//     Any other bucket is retired and unlinked once it becomes empty.
//
//   - Promotion
//
//     Moving an entry from its bucket (count n) to the bucket
//     with count n+1, which is created if the chain lacks it.
//     Every hit and every update promotes exactly once.
//
//   - Retirement
//
//     Marking an entry or bucket as logically removed before it is
//     physically unlinked. Retirement never reverts, so an operation
//     that observes a retired participant may safely start over.
//
// Lock ordering:
//
//   - The coordinating mutex (insertion of new keys, removal, eviction, clear)
//     is taken before any entry lock.
//
//   - An entry lock is taken before any bucket lock.
//
//   - Bucket locks are taken in ascending count order:
//     a promotion holds the current bucket then the target bucket;
//     retirement holds the previous bucket, itself, then the next bucket.
//
//   - No bucket lock is held while waiting for an entry lock.
//
// Backpressure:
//
// Inserting a new key while [Cache.Len] == [Cache.Capacity] waits on a
// condition until a slot is freed. How that slot is freed depends on the
// [EvictionMode]: by the inserting goroutine itself ([EvictInline]),
// by a dedicated evictor goroutine ([EvictBackground]),
// or only by the caller through [Cache.Remove], [Cache.Evict] or
// [Cache.Clear] ([EvictNever]). [Cache.PutContext] bounds the wait.
// Each freed slot wakes one waiter. A waiter that leaves without
// taking its slot (its key was inserted meanwhile, or its context ended)
// hands the wakeup to the next one.
package lfu
