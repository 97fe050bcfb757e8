// Package index provides the key→entry maps used by an lfu cache.
//
// The cache treats its index as the source of truth for
// which keys currently exist; the eviction protocol never
// inspects how an index stores its items.
package index

import "iter"

// Index maps keys to cache entries.
// Implementations must be safe for concurrent use.
type Index[Key comparable, T any] interface {
	// Load returns the item stored for key, if any.
	Load(key Key) (T, bool)
	// Store sets the item for key, replacing any previous item.
	Store(key Key, item T)
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key Key)
	// Len returns the number of stored keys.
	Len() int
	// Clear removes every key.
	Clear()
	// All returns an iterator over the stored pairs.
	// The pairs observed may be a snapshot; callers
	// may modify the index while iterating.
	All() iter.Seq2[Key, T]
}
