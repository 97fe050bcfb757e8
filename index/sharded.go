package index

import (
	"hash/maphash"
	"iter"
	"maps"
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"
)

type (
	// Sharded is an [Index] split into independently
	// locked maps, selected by hashing the key.
	// Constructed by [NewSharded].
	Sharded[Key comparable, T any] struct {
		shards []shard[Key, T]
		seed   maphash.Seed
		mask   uint64
		length atomic.Int64
	}
	shard[Key comparable, T any] struct {
		items map[Key]T
		mu    sync.RWMutex
		// Keeps neighbouring shard locks off the same cache line.
		_ [40]byte
	}
)

// shardsPerProc scales the default shard count with parallelism.
const shardsPerProc = 4

// NewSharded creates a [Sharded] index sized for capacity items.
// The shard count is a power of two, scaled to GOMAXPROCS
// but never more than capacity.
func NewSharded[Key comparable, T any](capacity int) *Sharded[Key, T] {
	var (
		count    = shardCount(capacity, runtime.GOMAXPROCS(0))
		perShard = max(capacity/count, 1)
		shards   = make([]shard[Key, T], count)
	)
	for i := range shards {
		shards[i].items = make(map[Key]T, perShard)
	}
	return &Sharded[Key, T]{
		shards: shards,
		seed:   maphash.MakeSeed(),
		mask:   uint64(count - 1),
	}
}

func shardCount(capacity, procs int) int {
	limit := max(min(capacity, procs*shardsPerProc), 1)
	// Round down to a power of two so the mask selects evenly.
	return 1 << (bits.Len(uint(limit)) - 1)
}

func (s *Sharded[Key, T]) shardFor(key Key) *shard[Key, T] {
	hash := maphash.Comparable(s.seed, key)
	return &s.shards[hash&s.mask]
}

func (s *Sharded[Key, T]) Load(key Key) (T, bool) {
	shard := s.shardFor(key)
	shard.mu.RLock()
	item, ok := shard.items[key]
	shard.mu.RUnlock()
	return item, ok
}

func (s *Sharded[Key, T]) Store(key Key, item T) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	_, replaced := shard.items[key]
	shard.items[key] = item
	shard.mu.Unlock()
	if !replaced {
		s.length.Add(1)
	}
}

func (s *Sharded[Key, T]) Delete(key Key) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	_, found := shard.items[key]
	delete(shard.items, key)
	shard.mu.Unlock()
	if found {
		s.length.Add(-1)
	}
}

func (s *Sharded[_, _]) Len() int { return int(s.length.Load()) }

func (s *Sharded[_, _]) Clear() {
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		removed := len(shard.items)
		clear(shard.items)
		shard.mu.Unlock()
		s.length.Add(-int64(removed))
	}
}

// All yields a per-shard snapshot; each shard is
// copied under its read lock before its pairs are yielded.
func (s *Sharded[Key, T]) All() iter.Seq2[Key, T] {
	return func(yield func(Key, T) bool) {
		for i := range s.shards {
			for key, item := range s.shards[i].snapshot() {
				if !yield(key, item) {
					return
				}
			}
		}
	}
}

func (s *shard[Key, T]) snapshot() map[Key]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.items)
}
