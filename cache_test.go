package lfu_test

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"testing"

	"github.com/djdv/go-lfu"
)

type testCache[Key comparable, Value any] interface {
	benchCache[Key, Value]
	Load(Key, func() (Value, error)) (Value, error)
	Remove(Key) (Value, bool)
	Contains(Key) bool
	Frequency(Key) (int, bool)
	Evict() (Key, bool)
	Clear()
	Len() int
	Capacity() int
	IsEmpty() bool
	Keys() iter.Seq[Key]
	Tiers() iter.Seq2[int, []Key]
}

func TestLFU(t *testing.T) {
	t.Run("invalid capacity", invalidCapacity)
	t.Run("empty miss", emptyMiss)
	t.Run("basic", basic)
	t.Run("update", update)
	t.Run("minimum capacity", testMinimumCapacity)
	t.Run("capacity bounds", capacityBounds)
	t.Run("eviction order", evictionOrder)
	t.Run("single slot", singleSlot)
	t.Run("tie break", tieBreak)
	t.Run("frequency", frequency)
	t.Run("update frequency", updateFrequency)
	t.Run("complex pattern", complexPattern)
	t.Run("remove", remove)
	t.Run("reinsert", reinsert)
	t.Run("explicit evict", explicitEvict)
	t.Run("clear", clearCache)
	t.Run("tiers", tiers)
	t.Run("nil keys", nilKeys)
	t.Run("load", load)
}

func invalidCapacity(t *testing.T) {
	invalidSizes := []int{-1, 0}
	for _, capacity := range invalidSizes {
		t.Run(fmt.Sprintf("%d", capacity), func(t *testing.T) {
			t.Parallel()
			cache, err := lfu.New[int, int](capacity)
			if cache != nil || !errors.Is(err, lfu.ErrInvalidCapacity) {
				t.Errorf(
					"New did not return an error when passed an invalid capacity: %d",
					capacity,
				)
			}
		})
	}
}

func emptyMiss(t *testing.T) {
	t.Parallel()
	const (
		capacity = lfu.MinimumCapacity
		key      = "whatever"
		whyMiss  = "empty cache"
	)
	cache := newCache[string, int](t, capacity)
	mustMiss(t, cache, key, whyMiss)
	if !cache.IsEmpty() {
		t.Fatal("a miss inserted into the cache")
	}
}

func basic(t *testing.T) {
	const (
		key      = 1
		value    = 1
		capacity = lfu.MinimumCapacity
		errCtx   = "after add"
	)
	cache := newCache[int, int](t, capacity)
	t.Run("add", func(t *testing.T) {
		mustPut(t, cache, key, value)
	})
	t.Run("get", func(t *testing.T) {
		checkGet(t, cache, key, value, errCtx)
	})
	const wantLength = 1
	wantKeys := []int{key}
	checkSize(t, cache, wantLength, errCtx)
	keysMatch(t, cache, wantKeys, errCtx)
}

func update(t *testing.T) {
	t.Parallel()
	const (
		capacity = 2
		key      = "shared"
		value    = 1
		updated  = 2
	)
	cache := newCache[string, int](t, capacity)
	t.Run("add", func(t *testing.T) {
		mustPut(t, cache, key, value)
		checkGet(t, cache, key, value, "just added")
	})
	t.Run("update", func(t *testing.T) {
		size := cache.Len()
		mustPut(t, cache, key, updated)
		checkGet(t, cache, key, updated, "just updated")
		checkSize(t, cache, size, "after updating entry")
	})
}

func testMinimumCapacity(t *testing.T) {
	t.Parallel()
	const capacity = lfu.MinimumCapacity
	cache := newCache[int, int](t, capacity)
	addIncrementingInts(t, cache, capacity)
	checkSize(t, cache, capacity, "added full set")
	checkKeyLength(t, cache, capacity, "added full set")
	mustGet(t, cache, 1)
}

func capacityBounds(t *testing.T) {
	const (
		capacity = 4
		msg      = "added more than capacity"
	)
	for _, test := range []struct {
		name  string
		limit int
	}{
		{"at capacity", capacity},
		{"over capacity", capacity + 1},
		{"many times capacity", capacity * 8},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			cache := newCache[int, int](t, capacity)
			for i := range test.limit {
				mustPut(t, cache, i, i)
				if got := cache.Len(); got > capacity {
					t.Fatalf("cache grew past its capacity: %d > %d", got, capacity)
				}
			}
			checkSize(t, cache, capacity, msg)
			checkKeyLength(t, cache, capacity, msg)
		})
	}
}

func evictionOrder(t *testing.T) {
	const capacity = 3
	cache := newCache[int, string](t, capacity)
	t.Run("fill cache", func(t *testing.T) {
		mustPut(t, cache, 1, "One")
		mustPut(t, cache, 2, "Two")
		mustPut(t, cache, 3, "Three")
	})
	t.Run("access entry", func(t *testing.T) {
		checkGet(t, cache, 1, "One", "before eviction")
		checkFrequency(t, cache, 1, 2)
	})
	t.Run("evict+add entry", func(t *testing.T) {
		// 2 and 3 share the lowest frequency;
		// 2 was inserted first.
		mustPut(t, cache, 4, "Four")
	})
	want := []int{1, 3, 4}
	keysMatch(
		t, cache, want,
		"unexpected keys after eviction",
	)
}

func singleSlot(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 1)
	mustPut(t, cache, 1, 100)
	mustGet(t, cache, 1)
	mustGet(t, cache, 1)
	checkFrequency(t, cache, 1, 3)
	// The only slot is taken regardless of frequency.
	mustPut(t, cache, 2, 200)
	mustMiss(t, cache, 1, "evicted by the only other insertion")
	checkGet(t, cache, 2, 200, "after replacing the only entry")
}

func tieBreak(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 3)
	addIncrementingInts(t, cache, 3)
	mustPut(t, cache, 4, 4)
	keysMatch(t, cache, []int{2, 3, 4}, "oldest of equal frequency was not evicted")
	// Every entry reaches tier 2, 3 first.
	mustGet(t, cache, 3)
	mustGet(t, cache, 2)
	mustGet(t, cache, 4)
	mustPut(t, cache, 5, 5)
	keysMatch(t, cache, []int{2, 4, 5}, "least recently promoted was not evicted")
}

func frequency(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 4)
	addIncrementingInts(t, cache, 4)
	for range 3 {
		mustGet(t, cache, 1)
	}
	for range 2 {
		mustGet(t, cache, 2)
	}
	mustGet(t, cache, 3)
	for key, want := range map[int]int{1: 4, 2: 3, 3: 2, 4: 1} {
		checkFrequency(t, cache, key, want)
	}
	mustPut(t, cache, 5, 50)
	keysMatch(t, cache, []int{1, 2, 3, 5}, "lowest frequency was not evicted")
}

func updateFrequency(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 3)
	mustPut(t, cache, 1, 100)
	mustPut(t, cache, 2, 200)
	mustPut(t, cache, 3, 300)
	for _, value := range []int{110, 120, 130} {
		mustPut(t, cache, 1, value)
	}
	mustPut(t, cache, 2, 210)
	checkFrequency(t, cache, 1, 4)
	checkFrequency(t, cache, 2, 2)
	checkFrequency(t, cache, 3, 1)
	mustPut(t, cache, 4, 400)
	keysMatch(t, cache, []int{1, 2, 4}, "updates did not count as accesses")
	checkGet(t, cache, 1, 130, "after several updates")
}

func complexPattern(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 5)
	addIncrementingInts(t, cache, 5)
	for key, gets := range map[int]int{1: 3, 2: 2, 3: 2, 4: 1} {
		for range gets {
			mustGet(t, cache, key)
		}
	}
	mustPut(t, cache, 6, 60)
	mustMiss(t, cache, 5, "lowest frequency")
	mustPut(t, cache, 7, 70)
	if cache.Contains(6) {
		t.Fatal("the newest entry (frequency 1) should have been evicted")
	}
	keysMatch(t, cache, []int{1, 2, 3, 4, 7}, "after two evictions")
}

func remove(t *testing.T) {
	t.Parallel()
	cache := newCache[string, int](t, 2)
	mustPut(t, cache, "a", 1)
	mustPut(t, cache, "b", 2)
	value, removed := cache.Remove("a")
	if !removed || value != 1 {
		t.Fatalf("Remove returned (%d, %t) want (1, true)", value, removed)
	}
	if cache.Contains("a") {
		t.Fatal("removed key is still contained")
	}
	mustMiss(t, cache, "a", "removed")
	if _, removed := cache.Remove("a"); removed {
		t.Fatal("removing an absent key reported success")
	}
	checkSize(t, cache, 1, "after removal")
}

func reinsert(t *testing.T) {
	t.Parallel()
	cache := newCache[string, int](t, 2)
	mustPut(t, cache, "a", 1)
	mustGet(t, cache, "a")
	mustGet(t, cache, "a")
	cache.Remove("a")
	mustPut(t, cache, "a", 2)
	checkFrequency(t, cache, "a", 1)
	checkGet(t, cache, "a", 2, "after reinsertion")
}

func explicitEvict(t *testing.T) {
	t.Parallel()
	cache := newCache[int, int](t, 3)
	if _, evicted := cache.Evict(); evicted {
		t.Fatal("evicted from an empty cache")
	}
	addIncrementingInts(t, cache, 3)
	mustGet(t, cache, 1)
	for _, want := range []int{2, 3, 1} {
		got, evicted := cache.Evict()
		if !evicted || got != want {
			t.Fatalf("Evict returned (%d, %t) want (%d, true)", got, evicted, want)
		}
	}
	if !cache.IsEmpty() {
		t.Fatal("evicting every entry did not empty the cache")
	}
}

func clearCache(t *testing.T) {
	t.Parallel()
	const capacity = 4
	cache := newCache[int, int](t, capacity)
	addIncrementingInts(t, cache, capacity)
	mustGet(t, cache, 1)
	cache.Clear()
	checkSize(t, cache, 0, "after clear")
	cache.Clear()
	checkSize(t, cache, 0, "after clearing twice")
	mustMiss(t, cache, 1, "cleared")
	addIncrementingInts(t, cache, capacity)
	checkFrequency(t, cache, 1, 1)
	checkSize(t, cache, capacity, "refilled after clear")
}

func tiers(t *testing.T) {
	t.Parallel()
	cache := newCache[string, int](t, 4)
	for _, key := range []string{"w", "x", "y", "z"} {
		mustPut(t, cache, key, 0)
	}
	mustGet(t, cache, "y")
	mustGet(t, cache, "w")
	mustGet(t, cache, "w")
	type tier struct {
		count int
		keys  []string
	}
	var got []tier
	for count, keys := range cache.Tiers() {
		got = append(got, tier{count, keys})
	}
	want := []tier{
		{1, []string{"x", "z"}},
		{2, []string{"y"}},
		{3, []string{"w"}},
	}
	if !slices.EqualFunc(got, want, func(a, b tier) bool {
		return a.count == b.count && slices.Equal(a.keys, b.keys)
	}) {
		t.Fatalf("tiers do not match"+
			"\n\tgot: %v"+
			"\n\twant: %v",
			got, want)
	}
}

func nilKeys(t *testing.T) {
	t.Parallel()
	cache := newCache[*int, int](t, 2)
	if err := cache.Put(nil, 1); !errors.Is(err, lfu.ErrNilKey) {
		t.Fatalf("Put with a nil key returned %v, want %v", err, lfu.ErrNilKey)
	}
	for name, op := range map[string]func(){
		"Get":       func() { cache.Get(nil) },
		"Remove":    func() { cache.Remove(nil) },
		"Contains":  func() { cache.Contains(nil) },
		"Frequency": func() { cache.Frequency(nil) },
	} {
		t.Run(name, func(t *testing.T) {
			mustPanicWith(t, lfu.ErrNilKey, op)
		})
	}
	key := new(int)
	mustPut(t, cache, key, 1)
	checkGet(t, cache, key, 1, "non-nil pointer key")
}

func load(t *testing.T) {
	t.Parallel()
	cache := newCache[string, int](t, 2)
	var calls int
	fetch := func() (int, error) {
		calls++
		return 42, nil
	}
	for range 2 {
		got, err := cache.Load("answer", fetch)
		if err != nil {
			t.Fatal(err)
		}
		if got != 42 {
			t.Fatalf("Load returned %d want 42", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch was called %d times, want 1", calls)
	}
	fetchErr := errors.New("unavailable")
	if _, err := cache.Load("missing", func() (int, error) {
		return 0, fetchErr
	}); !errors.Is(err, fetchErr) {
		t.Fatalf("Load returned %v want %v", err, fetchErr)
	}
	if cache.Contains("missing") {
		t.Fatal("a failed fetch was cached")
	}
}

func newCache[
	Key comparable, Value any,
](tb testing.TB, capacity int, options ...lfu.Option[Key, Value]) testCache[Key, Value] {
	tb.Helper()
	cache, err := lfu.New(capacity, options...)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := cache.Close(); err != nil {
			tb.Error(err)
		}
	})
	return cache
}

func mustPut[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key, value Value,
) {
	tb.Helper()
	if err := cache.Put(key, value); err != nil {
		tb.Fatalf("Put(%v): %v", key, err)
	}
}

func mustMiss[
	Key comparable,
	Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key, why string,
) {
	tb.Helper()
	value, ok := cache.Get(key)
	if !ok {
		return
	}
	tb.Fatalf(
		"expected miss due to %s but got: %v %t",
		why, value, ok)
}

func mustGet[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key,
) Value {
	tb.Helper()
	return mustGetMsg(tb, cache, key, "")
}

func mustGetMsg[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key, msg string,
) Value {
	tb.Helper()
	if got, ok := cache.Get(key); ok {
		return got
	}
	tb.Fatalf(
		"expected value from Get for key `%v` %s",
		key, msg)
	var zero Value
	return zero
}

func checkGet[
	Key comparable, Value comparable,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key, want Value, msg string,
) {
	tb.Helper()
	got := mustGetMsg(tb, cache, key, msg)
	if got == want {
		return
	}
	tb.Fatalf(
		"expected value to match"+
			"\n\tgot: %v"+
			"\n\twant: %v",
		got, want)
}

func checkFrequency[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	key Key, want int,
) {
	tb.Helper()
	got, ok := cache.Frequency(key)
	if !ok {
		tb.Fatalf("expected frequency for key `%v`", key)
	}
	if got == want {
		return
	}
	tb.Fatalf(
		"expected frequency of `%v` to match"+
			"\n\tgot: %d"+
			"\n\twant: %d",
		key, got, want)
}

func checkSize[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	size int, action string,
) {
	tb.Helper()
	got := cache.Len()
	if got == size {
		return
	}
	tb.Fatalf(
		"expected cache to be specific size %s"+
			"\n\tgot: %d"+
			"\n\twant: %d",
		action, got, size)
}

func checkKeyLength[
	Key comparable, Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	length int, action string,
) {
	tb.Helper()
	var got int
	for range cache.Keys() {
		got++
	}
	if got == length {
		return
	}
	tb.Fatalf(
		"expected cache to be specific size %s"+
			"\n\tgot: %d"+
			"\n\twant: %d",
		action, got, length)
}

func addIncrementingInts(tb testing.TB, cache testCache[int, int], end int) {
	tb.Helper()
	for i := range end {
		indexed := i + 1
		mustPut(tb, cache, indexed, indexed)
	}
}

func keysMatch[
	Key comparable,
	Value any,
](
	tb testing.TB,
	cache testCache[Key, Value],
	want []Key, msg string,
) {
	tb.Helper()
	got := cache.Keys()
	if !keysEqualUnordered(want, got) {
		tb.Fatalf(
			"%s"+
				"\n\twant: %v"+
				"\n\tgot: %v",
			msg, want, slices.Collect(got))
	}
}

func keysEqualUnordered[Key comparable](want []Key, seq iter.Seq[Key]) bool {
	counts := make(map[Key]int, len(want))
	for _, key := range want {
		counts[key]++
	}
	var seen int
	for key := range seq {
		if counts[key] == 0 {
			return false
		}
		counts[key]--
		seen++
	}
	return seen == len(want)
}

func mustPanicWith(tb testing.TB, want error, fn func()) {
	tb.Helper()
	defer func() {
		tb.Helper()
		recovered := recover()
		err, ok := recovered.(error)
		if !ok || !errors.Is(err, want) {
			tb.Fatalf("expected panic with %v but got: %v", want, recovered)
		}
	}()
	fn()
}
