package lfu

import (
	"sync"

	"github.com/djdv/go-lfu/internal/ring"
)

type (
	// Entry is one cached key/value pair along with
	// its position in the frequency chain.
	// It is exported only so that an [index.Index]
	// may be provided via [WithIndex]; it has no public state
	// besides its key.
	Entry[Key comparable, Value any] struct {
		// bucket is the bucket whose member set contains this entry.
		// It changes only while both the entry
		// and the affected buckets are locked.
		bucket *bucket[Key, Value]
		// member links the entry into bucket's member ring.
		member  ring.Ring[*Entry[Key, Value]]
		key     Key
		value   Value
		mu      sync.Mutex
		retired bool
	}
	member[Key comparable, Value any] = ring.Ring[*Entry[Key, Value]]
)

func newEntry[Key comparable, Value any](key Key, value Value) *Entry[Key, Value] {
	entry := &Entry[Key, Value]{
		key:   key,
		value: value,
	}
	entry.member.Value = entry
	return entry
}

// Key returns the key the entry was created with.
func (e *Entry[Key, _]) Key() Key { return e.key }

// withLock runs body while holding the entry's lock.
// The lock is released even if body panics.
func (e *Entry[_, _]) withLock(body func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	body()
}

// retire marks the entry as removed from the cache.
// The caller must hold the entry's lock.
func (e *Entry[_, _]) retire() {
	if debugging {
		assert(!e.mu.TryLock(), "retired an entry without holding its lock")
		assert(!e.retired, "retired an entry twice")
	}
	e.retired = true
}

// frequency returns the count of the entry's bucket.
// The caller must hold the entry's lock.
func (e *Entry[_, _]) frequency() int {
	return e.bucket.count
}
