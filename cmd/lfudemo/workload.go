package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/djdv/go-lfu"
	"github.com/djdv/go-lfu/lfuprom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkloadCapacity = 1024
	// Keys are drawn from a Zipf distribution over
	// this many times the capacity.
	keySpread = 8
)

// runWorkload hammers a cache from cfg.Workers goroutines,
// then logs its statistics. With cfg.MetricsAddr set, the
// statistics are served until ctx is done.
func runWorkload(ctx context.Context, cfg config, logger *slog.Logger) error {
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = defaultWorkloadCapacity
	}
	cache, err := lfu.New(capacity,
		lfu.WithEvictionMode[uint64, uint64](cfg.Eviction),
		lfu.WithLogger[uint64, uint64](logger),
		lfu.WithCompactionInterval[uint64, uint64](time.Second),
	)
	if err != nil {
		return err
	}
	defer cache.Close()
	var (
		started = time.Now()
		group   errgroup.Group
	)
	for worker := range cfg.Workers {
		group.Go(func() error {
			return hammer(ctx, cache, uint64(worker), cfg.Operations)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	stats := cache.Stats()
	logger.Info("workload finished",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("workers", cfg.Workers),
		slog.Uint64("hits", stats.Hits),
		slog.Uint64("misses", stats.Misses),
		slog.Float64("hit_ratio", stats.HitRatio()),
		slog.Uint64("evictions", stats.Evictions),
		slog.Uint64("waits", stats.Waits),
	)
	if cfg.MetricsAddr == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(lfuprom.NewCollector("lfudemo", "workload", cache)); err != nil {
		return err
	}
	return serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
}

func hammer(ctx context.Context, cache *lfu.Cache[uint64, uint64], seed uint64, operations int) error {
	var (
		rng  = rand.New(rand.NewPCG(seed, seed))
		keys = rand.NewZipf(rng, 1.1, 1,
			uint64(cache.Capacity()*keySpread))
	)
	for range operations {
		key := keys.Uint64()
		if _, found := cache.Get(key); found {
			continue
		}
		if err := cache.PutContext(ctx, key, key); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
