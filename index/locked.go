package index

import (
	"iter"
	"maps"
	"sync"
)

// Locked is an [Index] guarded by a single lock.
// Constructed by [NewLocked].
type Locked[Key comparable, T any] struct {
	items map[Key]T
	mu    sync.RWMutex
}

// NewLocked creates a [Locked] index sized for capacity items.
func NewLocked[Key comparable, T any](capacity int) *Locked[Key, T] {
	return &Locked[Key, T]{
		items: make(map[Key]T, max(capacity, 0)),
	}
}

func (l *Locked[Key, T]) Load(key Key) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[key]
	return item, ok
}

func (l *Locked[Key, T]) Store(key Key, item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[key] = item
}

func (l *Locked[Key, _]) Delete(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items, key)
}

func (l *Locked[_, _]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *Locked[_, _]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.items)
}

// All yields a snapshot copied under the read lock
// when iteration begins.
func (l *Locked[Key, T]) All() iter.Seq2[Key, T] {
	return func(yield func(Key, T) bool) {
		l.mu.RLock()
		items := maps.Clone(l.items)
		l.mu.RUnlock()
		for key, item := range items {
			if !yield(key, item) {
				return
			}
		}
	}
}
