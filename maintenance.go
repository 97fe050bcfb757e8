package lfu

import (
	"context"
	"log/slog"
	"time"
)

func (c *Cache[Key, Value]) startWorkers(compactInterval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	if c.mode == EvictBackground {
		c.evictNow = make(chan struct{}, 1)
		c.workers.Go(func() error {
			c.runEvictor(ctx)
			return nil
		})
	}
	if compactInterval > 0 {
		c.workers.Go(func() error {
			c.runCompactor(ctx, compactInterval)
			return nil
		})
	}
}

// requestEviction wakes the evictor goroutine, if there is one.
// Requests made while one is pending are coalesced.
func (c *Cache[_, _]) requestEviction() {
	if c.evictNow == nil {
		return
	}
	select {
	case c.evictNow <- struct{}{}:
	default:
	}
}

func (c *Cache[Key, Value]) runEvictor(ctx context.Context) {
	c.logger.Debug("evictor started")
	defer c.logger.Debug("evictor stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.evictNow:
			c.evictForWaiters()
		}
	}
}

// evictForWaiters frees a slot if the cache is
// still full once the evictor gets the lock.
func (c *Cache[_, _]) evictForWaiters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full() {
		c.evictLocked()
	}
}

func (c *Cache[_, _]) runCompactor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if retired := c.Compact(); retired > 0 {
				c.logger.Debug("compacted frequency chain",
					slog.Int("retired", retired),
				)
			}
		}
	}
}

// Compact retires any empty buckets left linked in the frequency chain
// and returns how many it retired.
// Removal and promotion already retire the buckets they empty,
// so this is only maintenance for buckets emptied
// in between those checks.
func (c *Cache[_, _]) Compact() (retired int) {
	head := c.head.Load()
	head.mu.RLock()
	bucket := head.next
	head.mu.RUnlock()
	for bucket != nil {
		bucket.mu.RLock()
		next := bucket.next
		bucket.mu.RUnlock()
		if bucket.retire() {
			retired++
		}
		bucket = next
	}
	return retired
}

// Close stops the cache's background goroutines and wakes
// waiting inserters, which (like any later insertion)
// return [ErrClosed]. Reads, updates, and removals keep working.
// Close is idempotent.
func (c *Cache[_, _]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.notFull.Broadcast()
	c.mu.Unlock()
	c.stop()
	return c.workers.Wait()
}
