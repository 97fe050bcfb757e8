package lfu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/djdv/go-lfu/index"
)

type (
	// Option configures a [Cache] during [New].
	Option[Key comparable, Value any] func(*settings[Key, Value])

	// IndexFactory constructs the key→entry index of a [Cache].
	// It receives the cache's capacity as a sizing hint.
	IndexFactory[Key comparable, Value any] func(capacity int) index.Index[Key, *Entry[Key, Value]]

	// EvictionMode selects how a full cache makes room for new keys.
	EvictionMode int

	settings[Key comparable, Value any] struct {
		newIndex        IndexFactory[Key, Value]
		logger          *slog.Logger
		onEvict         func(Key, Value)
		compactInterval time.Duration
		mode            EvictionMode
		indexSet        bool
	}
)

const (
	// EvictInline has the inserting goroutine evict
	// the least frequently used entry itself.
	EvictInline EvictionMode = iota
	// EvictBackground hands eviction to a dedicated goroutine
	// while inserters wait for a free slot.
	// [Cache.Close] stops the goroutine.
	EvictBackground
	// EvictNever disables automatic eviction; inserters wait
	// until a slot is freed by [Cache.Remove], [Cache.Evict],
	// or [Cache.Clear].
	EvictNever
)

func (mode EvictionMode) String() string {
	switch mode {
	case EvictInline:
		return "inline"
	case EvictBackground:
		return "background"
	case EvictNever:
		return "never"
	default:
		return "invalid"
	}
}

// UnmarshalText parses the names produced by [EvictionMode.String].
func (mode *EvictionMode) UnmarshalText(text []byte) error {
	for _, candidate := range []EvictionMode{
		EvictInline, EvictBackground, EvictNever,
	} {
		if string(text) == candidate.String() {
			*mode = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidEvictionMode, text)
}

// WithIndex replaces the default sharded index.
func WithIndex[Key comparable, Value any](factory IndexFactory[Key, Value]) Option[Key, Value] {
	return func(s *settings[Key, Value]) {
		s.newIndex = factory
		s.indexSet = true
	}
}

// WithEvictionMode selects how a full cache makes room.
// The default is [EvictInline].
func WithEvictionMode[Key comparable, Value any](mode EvictionMode) Option[Key, Value] {
	return func(s *settings[Key, Value]) { s.mode = mode }
}

// WithLogger sets the logger used for eviction and maintenance records.
// Nil loggers are ignored.
func WithLogger[Key comparable, Value any](logger *slog.Logger) Option[Key, Value] {
	return func(s *settings[Key, Value]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnEvict registers a callback which receives every evicted pair.
// It is called while the cache's coordinating lock is held,
// so it must not call back into the cache.
func WithOnEvict[Key comparable, Value any](fn func(Key, Value)) Option[Key, Value] {
	return func(s *settings[Key, Value]) { s.onEvict = fn }
}

// WithCompactionInterval runs [Cache.Compact] periodically
// until [Cache.Close] is called. Non-positive intervals disable it.
func WithCompactionInterval[Key comparable, Value any](interval time.Duration) Option[Key, Value] {
	return func(s *settings[Key, Value]) { s.compactInterval = interval }
}

func defaultSettings[Key comparable, Value any]() settings[Key, Value] {
	return settings[Key, Value]{
		newIndex: func(capacity int) index.Index[Key, *Entry[Key, Value]] {
			return index.NewSharded[Key, *Entry[Key, Value]](capacity)
		},
		logger: slog.New(slog.DiscardHandler),
		mode:   EvictInline,
	}
}

func (s *settings[Key, Value]) validate() error {
	switch s.mode {
	case EvictInline, EvictBackground, EvictNever:
	default:
		return evictionModeError(s.mode)
	}
	if s.indexSet && s.newIndex == nil {
		return ErrNilIndex
	}
	return nil
}
