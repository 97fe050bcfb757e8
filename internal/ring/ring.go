// Package ring is a specialized adaption of `container/ring`
// for use as the insertion-ordered member set of a frequency bucket.
//
// A set is represented by a sentinel element;
// members are linked behind it in insertion order.
package ring

import "iter"

// A Ring is an element of a circular list, or ring.
// Rings do not have a beginning or end; a pointer to any ring element
// serves as reference to the entire ring. The zero value for a Ring
// is a one-element ring with a zero Value.
type Ring[Value any] struct {
	next, prev *Ring[Value]
	Value      Value
}

func (r *Ring[Value]) init() *Ring[Value] {
	r.next = r
	r.prev = r
	return r
}

// Next returns the next ring element. r must not be empty.
func (r *Ring[Value]) Next() *Ring[Value] {
	if r.next == nil {
		return r.init()
	}
	return r.next
}

// Prev returns the previous ring element. r must not be empty.
func (r *Ring[Value]) Prev() *Ring[Value] {
	if r.next == nil {
		return r.init()
	}
	return r.prev
}

// Move moves n % r.Len() elements backward (n < 0) or forward (n >= 0)
// in the ring and returns that ring element. r must not be empty.
func (r *Ring[Value]) Move(n int) *Ring[Value] {
	if r.next == nil {
		return r.init()
	}
	switch {
	case n < 0:
		for ; n < 0; n++ {
			r = r.prev
		}
	case n > 0:
		for ; n > 0; n-- {
			r = r.next
		}
	}
	return r
}

// Link connects ring r with ring s such that r.Next()
// becomes s and returns the original value for r.Next().
// r must not be empty.
//
// If r and s point to the same ring, linking
// them removes the elements between r and s from the ring.
// The removed elements form a subring and the result is a
// reference to that subring.
//
// If r and s point to different rings, linking
// them creates a single ring with the elements of s inserted
// after r. The result points to the element following the
// last element of s after insertion.
func (r *Ring[Value]) Link(s *Ring[Value]) *Ring[Value] {
	n := r.Next()
	if s != nil {
		p := s.Prev()
		// Note: Cannot use multiple assignment because
		// evaluation order of LHS is not specified.
		r.next = s
		s.prev = r
		n.prev = p
		p.next = n
	}
	return n
}

// Unlink removes n % r.Len() elements from the ring r, starting
// at r.Next(). If n % r.Len() == 0, r remains unchanged.
// The result is the removed subring. r must not be empty.
func (r *Ring[Value]) Unlink(n int) *Ring[Value] {
	if n <= 0 {
		return nil
	}
	return r.Link(r.Move(n + 1))
}

// PushBack links the single element e in front of the sentinel r,
// making it the newest member of the set.
func (r *Ring[Value]) PushBack(e *Ring[Value]) {
	r.Prev().Link(e)
}

// Remove detaches r from whatever ring it belongs to
// and returns it as a one-element ring.
func (r *Ring[Value]) Remove() *Ring[Value] {
	return r.Prev().Unlink(1)
}

// Front returns the oldest member behind the sentinel r,
// or nil if the set is empty.
func (r *Ring[Value]) Front() *Ring[Value] {
	if front := r.Next(); front != r {
		return front
	}
	return nil
}

// Len computes the number of elements in ring r.
// It executes in time proportional to the number of elements.
func (r *Ring[Value]) Len() int {
	n := 0
	if r != nil {
		n = 1
		for p := r.Next(); p != r; p = p.next {
			n++
		}
	}
	return n
}

// Members returns an iterator over the values linked
// behind the sentinel r, oldest first.
// The behavior is undefined if the ring is modified during iteration.
func (r *Ring[Value]) Members() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for p := r.Next(); p != r; p = p.next {
			if !yield(p.Value) {
				return
			}
		}
	}
}
