package lfu

import "fmt"

type constError string

const (
	// ErrInvalidCapacity may be returned from [New].
	ErrInvalidCapacity = constError("invalid capacity")
	// ErrNilKey is returned (or panicked with, by read operations)
	// when a nil pointer, channel, or interface is used as a key.
	ErrNilKey = constError("nil key")
	// ErrNilIndex may be returned from [New] when [WithIndex]
	// is given a nil factory, or the factory returns nil.
	ErrNilIndex = constError("nil index")
	// ErrInvalidEvictionMode may be returned from [New].
	ErrInvalidEvictionMode = constError("invalid eviction mode")
	// ErrClosed is returned by insertions after [Cache.Close].
	ErrClosed = constError("cache closed")
)

func (errStr constError) Error() string { return string(errStr) }

func minCapacityError(capacity int) error {
	return fmt.Errorf(
		"%w: must be >=%d but %d was requested",
		ErrInvalidCapacity, MinimumCapacity, capacity)
}

func nilKeyError[Key any](key Key) error {
	return fmt.Errorf("%w: %T", ErrNilKey, key)
}

func evictionModeError(mode EvictionMode) error {
	return fmt.Errorf("%w: %d", ErrInvalidEvictionMode, mode)
}
