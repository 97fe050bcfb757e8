package lfu

import "sync"

// bucket holds every entry whose access count is `count`,
// in the order they were added to it.
type bucket[Key comparable, Value any] struct {
	next, prev *bucket[Key, Value]
	// members is the sentinel of the member ring.
	members     member[Key, Value]
	count, size int
	mu          sync.RWMutex
	head,
	retired bool
}

func newHead[Key comparable, Value any]() *bucket[Key, Value] {
	return &bucket[Key, Value]{
		count: 1,
		head:  true,
	}
}

// nextBucket returns the bucket for count+1, linking
// a new one after b when the chain lacks that count.
// b must be write locked.
func (b *bucket[Key, Value]) nextBucket() *bucket[Key, Value] {
	next := b.next
	if next != nil && next.count == b.count+1 {
		return next
	}
	successor := &bucket[Key, Value]{
		count: b.count + 1,
		prev:  b,
		next:  next,
	}
	if next != nil {
		// The chain skips count+1 (a retired bucket was spliced out),
		// so the successor goes in between.
		next.mu.Lock()
		next.prev = successor
		next.mu.Unlock()
	}
	b.next = successor
	return successor
}

// addMember appends entry to the member set and points entry at b.
// Both b and entry must be locked.
func (b *bucket[Key, Value]) addMember(entry *Entry[Key, Value]) {
	if debugging {
		assert(!b.retired, "added a member to a retired bucket")
		assert(entry.member.Len() == 1, "added an entry that is already a member")
	}
	b.members.PushBack(&entry.member)
	b.size++
	entry.bucket = b
}

// removeMember removes entry from the member set.
// It reports whether that left a non-head bucket empty,
// in which case the caller should [bucket.retire] b
// once it has released its bucket locks.
// Both b and entry must be locked.
func (b *bucket[Key, Value]) removeMember(entry *Entry[Key, Value]) (vacated bool) {
	if debugging {
		assert(entry.bucket == b, "removed an entry from a bucket it is not a member of")
		assert(b.size > 0, "removed a member from an empty bucket")
	}
	entry.member.Remove()
	b.size--
	return b.size == 0 && !b.head
}

// firstMember returns the entry which has been in b the longest.
// b must be (at least read) locked.
func (b *bucket[Key, Value]) firstMember() *Entry[Key, Value] {
	if front := b.members.Front(); front != nil {
		return front.Value
	}
	return nil
}

// isEmpty must be called with b (at least read) locked.
func (b *bucket[_, _]) isEmpty() bool { return b.size == 0 }

// retire unlinks b from the chain if it is still empty.
// The previous, current, and next buckets are locked
// in that (ascending) order, the same order promotions use.
// The caller must not hold any bucket locks.
func (b *bucket[Key, Value]) retire() bool {
	for {
		b.mu.RLock()
		var (
			prev    = b.prev
			skipped = b.head || b.retired ||
				!b.isEmpty() || prev == nil
		)
		b.mu.RUnlock()
		if skipped {
			return false
		}
		prev.mu.Lock()
		b.mu.Lock()
		if b.prev != prev {
			// prev was retired or a bucket was linked in
			// between our reads; the new prev is live.
			b.mu.Unlock()
			prev.mu.Unlock()
			continue
		}
		retired := b.unlink()
		b.mu.Unlock()
		prev.mu.Unlock()
		return retired
	}
}

// unlink splices b out of the chain after
// re-validating that it may be retired.
// b and b.prev must be write locked.
func (b *bucket[Key, Value]) unlink() bool {
	if b.retired || !b.isEmpty() {
		return false
	}
	var (
		prev = b.prev
		next = b.next
	)
	if next != nil {
		next.mu.Lock()
		next.prev = prev
		next.mu.Unlock()
	}
	prev.next = next
	b.next, b.prev = nil, nil
	b.retired = true
	return true
}

// snapshot returns the keys of b's members, oldest first.
// b must be (at least read) locked.
func (b *bucket[Key, _]) snapshot() []Key {
	keys := make([]Key, 0, b.size)
	for entry := range b.members.Members() {
		keys = append(keys, entry.key)
	}
	return keys
}
