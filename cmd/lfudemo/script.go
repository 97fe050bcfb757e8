package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/djdv/go-lfu"
	"gopkg.in/yaml.v3"
)

type (
	script struct {
		Demos []demo `yaml:"demos"`
	}
	demo struct {
		Title    string `yaml:"title"`
		Steps    []step `yaml:"steps"`
		Capacity int    `yaml:"capacity"`
	}
	step struct {
		Op    operation `yaml:"op"`
		Key   string    `yaml:"key"`
		Value string    `yaml:"value"`
	}
	operation string

	// player runs scripts against fresh caches.
	player struct {
		output     io.Writer
		logger     *slog.Logger
		mode       lfu.EvictionMode
		capacity   int // Overrides each demo's capacity when positive.
		putTimeout time.Duration
	}
)

const (
	opPut       operation = "put"
	opGet       operation = "get"
	opRemove    operation = "remove"
	opContains  operation = "contains"
	opFrequency operation = "frequency"
	opEvict     operation = "evict"
	opLen       operation = "len"
)

var (
	//go:embed demo.yaml
	defaultScript []byte

	errInvalidScript = errors.New("invalid script")
)

func parseScript(data []byte) (*script, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var parsed script
	if err := decoder.Decode(&parsed); err != nil {
		return nil, errors.Join(errInvalidScript, err)
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (s *script) validate() error {
	if len(s.Demos) == 0 {
		return fmt.Errorf("%w: no demos", errInvalidScript)
	}
	for i, demo := range s.Demos {
		for j, step := range demo.Steps {
			switch step.Op {
			case opPut, opGet, opRemove, opContains, opFrequency:
				if step.Key == "" {
					return fmt.Errorf("%w: demo %d step %d: %s requires a key",
						errInvalidScript, i+1, j+1, step.Op)
				}
			case opEvict, opLen:
			default:
				return fmt.Errorf("%w: demo %d step %d: unknown operation %q",
					errInvalidScript, i+1, j+1, step.Op)
			}
		}
	}
	return nil
}

func (p *player) play(ctx context.Context, s *script) error {
	for i, demo := range s.Demos {
		if i > 0 {
			fmt.Fprintln(p.output)
		}
		if err := p.playDemo(ctx, demo); err != nil {
			return fmt.Errorf("%s: %w", demo.Title, err)
		}
	}
	return nil
}

func (p *player) playDemo(ctx context.Context, demo demo) error {
	capacity := demo.Capacity
	if p.capacity > 0 {
		capacity = p.capacity
	}
	cache, err := lfu.New(capacity,
		lfu.WithEvictionMode[string, string](p.mode),
		lfu.WithLogger[string, string](p.logger.With(
			slog.String("demo", demo.Title),
		)),
		lfu.WithOnEvict(func(key, value string) {
			fmt.Fprintf(p.output, "  evicted %s=%s\n", key, value)
		}),
	)
	if err != nil {
		return err
	}
	defer cache.Close()
	title := fmt.Sprintf("%s (capacity %d)", demo.Title, cache.Capacity())
	fmt.Fprintf(p.output, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	for _, step := range demo.Steps {
		if err := p.playStep(ctx, cache, step); err != nil {
			return err
		}
		fmt.Fprintf(p.output, "  %s\n", formatTiers(cache))
	}
	return nil
}

func (p *player) playStep(ctx context.Context, cache *lfu.Cache[string, string], step step) error {
	out := p.output
	switch step.Op {
	case opPut:
		fmt.Fprintf(out, "put %s=%s\n", step.Key, step.Value)
		ctx, cancel := context.WithTimeout(ctx, p.putTimeout)
		defer cancel()
		err := cache.PutContext(ctx, step.Key, step.Value)
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(out, "  cache is full")
			return nil
		}
		return err
	case opGet:
		value, found := cache.Get(step.Key)
		fmt.Fprintf(out, "get %s: %s\n", step.Key, formatLookup(value, found))
	case opRemove:
		value, found := cache.Remove(step.Key)
		fmt.Fprintf(out, "remove %s: %s\n", step.Key, formatLookup(value, found))
	case opContains:
		fmt.Fprintf(out, "contains %s: %t\n", step.Key, cache.Contains(step.Key))
	case opFrequency:
		count, found := cache.Frequency(step.Key)
		if !found {
			fmt.Fprintf(out, "frequency %s: missing\n", step.Key)
			break
		}
		fmt.Fprintf(out, "frequency %s: %d\n", step.Key, count)
	case opEvict:
		key, found := cache.Evict()
		if !found {
			fmt.Fprintln(out, "evict: empty")
			break
		}
		fmt.Fprintf(out, "evict: %s\n", key)
	case opLen:
		fmt.Fprintf(out, "len: %d\n", cache.Len())
	}
	return nil
}

func formatLookup(value string, found bool) string {
	if !found {
		return "missing"
	}
	return value
}

// formatTiers renders the frequency chain as `count:[keys] ...`,
// least frequent first.
func formatTiers(cache *lfu.Cache[string, string]) string {
	var builder strings.Builder
	builder.WriteString("tiers")
	for count, keys := range cache.Tiers() {
		fmt.Fprintf(&builder, " %d:[%s]", count, strings.Join(keys, " "))
	}
	return builder.String()
}
