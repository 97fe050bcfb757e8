package lfu

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/djdv/go-lfu/index"
	"golang.org/x/sync/errgroup"
)

type (
	// Cache is a bounded LFU cache safe for concurrent use.
	// Constructed by [New].
	Cache[Key comparable, Value any] struct {
		index index.Index[Key, *Entry[Key, Value]]
		// head is replaced (under mu) by Clear.
		head     atomic.Pointer[bucket[Key, Value]]
		logger   *slog.Logger
		onEvict  func(Key, Value)
		notFull  *sync.Cond
		evictNow chan struct{}
		stop     context.CancelFunc
		workers  errgroup.Group
		counters counters
		// mu coordinates insertion of new keys
		// with removal, eviction, and clear.
		mu          sync.Mutex
		capacity    int
		waiting     int
		mode        EvictionMode
		closed      bool
		nilableKeys bool
	}
)

// MinimumCapacity defines the lowest value supported by [New].
const MinimumCapacity = 1

// New creates a [Cache] which holds at most capacity entries.
func New[Key comparable, Value any](capacity int, options ...Option[Key, Value]) (*Cache[Key, Value], error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError(capacity)
	}
	settings := defaultSettings[Key, Value]()
	for _, apply := range options {
		apply(&settings)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	idx := settings.newIndex(capacity)
	if idx == nil {
		return nil, ErrNilIndex
	}
	cache := &Cache[Key, Value]{
		index:       idx,
		logger:      settings.logger,
		onEvict:     settings.onEvict,
		capacity:    capacity,
		mode:        settings.mode,
		nilableKeys: nilable[Key](),
	}
	cache.notFull = sync.NewCond(&cache.mu)
	cache.head.Store(newHead[Key, Value]())
	cache.startWorkers(settings.compactInterval)
	return cache, nil
}

// Get returns the value for key and promotes it
// to the next frequency tier; otherwise it returns
// the zero value and false, without side effects.
// Get panics with [ErrNilKey] if key is nil.
func (c *Cache[Key, Value]) Get(key Key) (Value, bool) {
	c.mustKey(key)
	if entry, found := c.index.Load(key); found {
		if value, live := c.access(entry, nil); live {
			c.counters.hits.Add(1)
			return value, true
		}
		// Removed after our lookup.
	}
	c.counters.misses.Add(1)
	var zero Value
	return zero, false
}

// Put inserts or updates key with value.
// Updates promote the key like [Cache.Get] does.
// If key is new and the cache is full, Put waits
// for a free slot; see [EvictionMode].
func (c *Cache[Key, Value]) Put(key Key, value Value) error {
	return c.PutContext(context.Background(), key, value)
}

// PutContext is like [Cache.Put], but stops waiting for
// a free slot when ctx is done, returning ctx.Err().
func (c *Cache[Key, Value]) PutContext(ctx context.Context, key Key, value Value) error {
	if !c.validKey(key) {
		return nilKeyError(key)
	}
	for {
		if entry, found := c.index.Load(key); found {
			if _, live := c.access(entry, &value); live {
				return nil
			}
			// The entry was retired after our lookup,
			// so key may be inserted again.
			continue
		}
		inserted, err := c.insert(ctx, key, value)
		if err != nil || inserted {
			return err
		}
		// Another goroutine inserted key while we waited.
	}
}

// Load returns the cached value for key if present. Otherwise, it calls fetch,
// inserts and returns the value on success.
// If fetch returns an error, the value is not cached.
func (c *Cache[Key, Value]) Load(key Key, fetch func() (Value, error)) (Value, error) {
	if !c.validKey(key) {
		var zero Value
		return zero, nilKeyError(key)
	}
	if value, found := c.Get(key); found {
		return value, nil
	}
	value, err := fetch()
	if err != nil {
		return value, err
	}
	return value, c.Put(key, value)
}

// access promotes a live entry, replacing its value first
// if update is not nil. It reports false if entry was retired.
func (c *Cache[Key, Value]) access(entry *Entry[Key, Value], update *Value) (value Value, live bool) {
	entry.withLock(func() {
		if entry.retired {
			return
		}
		if update != nil {
			entry.value = *update
		}
		c.promote(entry)
		value, live = entry.value, true
	})
	return value, live
}

// promote moves a live, locked entry up one frequency tier.
func (c *Cache[Key, Value]) promote(entry *Entry[Key, Value]) {
	for {
		vacated, moved := migrate(entry)
		if vacated != nil {
			vacated.retire()
		}
		if moved {
			c.counters.promotions.Add(1)
			return
		}
	}
}

// migrate moves entry from its bucket to the one after it.
// It acquires the current then the target bucket
// (the caller holds the entry), re-validating both before
// moving anything. If either bucket was retired,
// nothing is moved and the caller should retry.
// A vacated bucket is returned for the caller to retire
// once these locks are released.
func migrate[Key comparable, Value any](entry *Entry[Key, Value]) (vacated *bucket[Key, Value], moved bool) {
	current := entry.bucket
	current.mu.Lock()
	defer current.mu.Unlock()
	if current.retired {
		return nil, false
	}
	target := current.nextBucket()
	target.mu.Lock()
	defer target.mu.Unlock()
	if target.retired {
		return nil, false
	}
	if current.removeMember(entry) {
		vacated = current
	}
	target.addMember(entry)
	return vacated, true
}

// insert adds a new entry for key to the head bucket,
// waiting for a free slot if necessary.
// It reports false if key was found in the index
// (inserted by someone else while we waited).
func (c *Cache[Key, Value]) insert(ctx context.Context, key Key, value Value) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if present, err := c.awaitVacancy(ctx, key); err != nil || present {
		return false, err
	}
	var (
		head  = c.head.Load()
		entry = newEntry(key, value)
	)
	entry.withLock(func() {
		head.mu.Lock()
		defer head.mu.Unlock()
		head.addMember(entry)
		c.index.Store(key, entry)
	})
	c.counters.insertions.Add(1)
	if c.mode == EvictBackground && c.waiting > 0 {
		// We took the slot the evictor freed;
		// the remaining waiters need another.
		c.requestEviction()
	}
	return true, nil
}

// awaitVacancy returns once the cache has room for key,
// or reports present if key is (or became) indexed.
// The index is checked before making room and after every wake,
// so a key inserted concurrently never costs an eviction.
// c.mu must be held; it is released while waiting.
func (c *Cache[Key, Value]) awaitVacancy(ctx context.Context, key Key) (present bool, err error) {
	var (
		stopWaking func() bool
		woken      bool
	)
	defer func() {
		if stopWaking != nil {
			stopWaking()
		}
	}()
	for {
		if _, found := c.index.Load(key); found {
			if woken {
				c.passWakeup()
			}
			return true, nil
		}
		if c.closed {
			return false, ErrClosed
		}
		if !c.full() {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			if woken {
				c.passWakeup()
			}
			return false, err
		}
		if c.mode == EvictInline {
			if _, evicted := c.evictLocked(); evicted {
				continue
			}
		} else {
			c.requestEviction()
		}
		if stopWaking == nil && ctx.Done() != nil {
			stopWaking = context.AfterFunc(ctx, func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.notFull.Broadcast()
			})
		}
		c.counters.waits.Add(1)
		c.waiting++
		c.notFull.Wait()
		c.waiting--
		woken = true
	}
}

// passWakeup hands a wakeup that was consumed without
// taking a slot on to the next waiting inserter.
// c.mu must be held.
func (c *Cache[_, _]) passWakeup() {
	switch {
	case c.waiting == 0:
	case !c.full():
		c.notFull.Signal()
	case c.mode == EvictBackground:
		c.requestEviction()
	}
}

func (c *Cache[_, _]) full() bool { return c.index.Len() >= c.capacity }

// Remove deletes key from the cache and returns its value.
// Removing an absent key is a no-op that returns false.
// Remove panics with [ErrNilKey] if key is nil.
func (c *Cache[Key, Value]) Remove(key Key) (Value, bool) {
	c.mustKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, found := c.index.Load(key); found {
		if value, removed := c.unlink(entry, nil); removed {
			c.counters.removals.Add(1)
			return value, true
		}
	}
	var zero Value
	return zero, false
}

// Evict removes the least frequently used entry;
// among entries of equal frequency, the one that
// reached that frequency first. It returns the evicted key,
// or false if the cache was empty.
func (c *Cache[Key, Value]) Evict() (Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

// evictLocked must be called with c.mu held.
func (c *Cache[Key, Value]) evictLocked() (Key, bool) {
	for {
		victim, from := c.victim()
		if victim == nil {
			if from != nil {
				continue
			}
			var zero Key
			return zero, false
		}
		value, removed := c.unlink(victim, from)
		if !removed {
			// Promoted or removed since the scan.
			continue
		}
		c.counters.evictions.Add(1)
		c.logger.Debug("evicted entry",
			slog.Any("key", victim.key),
			slog.Int("len", c.index.Len()),
		)
		if c.onEvict != nil {
			c.onEvict(victim.key, value)
		}
		return victim.key, true
	}
}

// victim returns the oldest member of the lowest non-empty bucket,
// along with that bucket.
// If the scan stepped onto a bucket that was retired
// after it was reached, it returns that bucket and no victim.
func (c *Cache[Key, Value]) victim() (entry *Entry[Key, Value], from *bucket[Key, Value]) {
	for bucket := c.head.Load(); bucket != nil; {
		bucket.mu.RLock()
		if bucket.retired {
			bucket.mu.RUnlock()
			return nil, bucket
		}
		if first := bucket.firstMember(); first != nil {
			bucket.mu.RUnlock()
			return first, bucket
		}
		next := bucket.next
		bucket.mu.RUnlock()
		bucket = next
	}
	return nil, nil
}

// unlink retires entry and removes it from its bucket and the index,
// then signals one waiting inserter.
// If from is not nil, entry is only removed while it is still a member of from.
// It reports false if entry was retired or had moved.
// c.mu must be held.
func (c *Cache[Key, Value]) unlink(entry *Entry[Key, Value], from *bucket[Key, Value]) (value Value, removed bool) {
	var vacated *bucket[Key, Value]
	entry.withLock(func() {
		if entry.retired ||
			(from != nil && entry.bucket != from) {
			return
		}
		bucket := entry.bucket
		bucket.mu.Lock()
		if bucket.removeMember(entry) {
			vacated = bucket
		}
		bucket.mu.Unlock()
		entry.retire()
		entry.bucket = nil
		c.index.Delete(entry.key)
		value, removed = entry.value, true
	})
	if vacated != nil {
		vacated.retire()
	}
	if removed {
		c.notFull.Signal()
	}
	return value, removed
}

// Clear removes every entry and resets the frequency chain.
// Waiting inserters are woken.
func (c *Cache[Key, Value]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]*Entry[Key, Value], 0, c.index.Len())
	for _, entry := range c.index.All() {
		entries = append(entries, entry)
	}
	for _, entry := range entries {
		entry.withLock(func() {
			if !entry.retired {
				entry.retire()
			}
		})
	}
	c.index.Clear()
	c.head.Store(newHead[Key, Value]())
	c.notFull.Broadcast()
}

// Contains reports whether key is in the cache,
// without promoting it.
// Contains panics with [ErrNilKey] if key is nil.
func (c *Cache[Key, _]) Contains(key Key) bool {
	c.mustKey(key)
	_, found := c.index.Load(key)
	return found
}

// Frequency returns the access count of key,
// without promoting it. New keys start at 1.
// Frequency panics with [ErrNilKey] if key is nil.
func (c *Cache[Key, _]) Frequency(key Key) (count int, found bool) {
	c.mustKey(key)
	entry, found := c.index.Load(key)
	if !found {
		return 0, false
	}
	entry.withLock(func() {
		if found = !entry.retired; found {
			count = entry.frequency()
		}
	})
	return count, found
}

// Len returns the number of entries.
func (c *Cache[_, _]) Len() int { return c.index.Len() }

// Capacity returns the capacity given to [New].
func (c *Cache[_, _]) Capacity() int { return c.capacity }

// IsEmpty reports whether Len is 0.
func (c *Cache[_, _]) IsEmpty() bool { return c.index.Len() == 0 }

// Keys returns an iterator over the (unordered) keys of the cache.
func (c *Cache[Key, _]) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for key := range c.index.All() {
			if !yield(key) {
				return
			}
		}
	}
}

// Tiers returns an iterator over the non-empty frequency tiers,
// lowest frequency first, yielding each tier's keys oldest first;
// i.e. in eviction order.
// Each tier is copied under its lock, but tiers are not
// a consistent snapshot of each other while the cache is in use.
func (c *Cache[Key, _]) Tiers() iter.Seq2[int, []Key] {
	return func(yield func(int, []Key) bool) {
		for bucket := c.head.Load(); bucket != nil; {
			bucket.mu.RLock()
			var (
				count = bucket.count
				keys  = bucket.snapshot()
				next  = bucket.next
			)
			bucket.mu.RUnlock()
			if len(keys) > 0 && !yield(count, keys) {
				return
			}
			bucket = next
		}
	}
}
