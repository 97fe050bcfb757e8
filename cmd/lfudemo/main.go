// Command lfudemo plays scripted operations against an lfu cache,
// printing its frequency tiers after every step.
// It is configured through `LFU_` environment variables,
// which may also be set in a `.env` file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.newLogger(os.Stderr)
	data := defaultScript
	if cfg.Script != "" {
		if data, err = os.ReadFile(cfg.Script); err != nil {
			return err
		}
	}
	script, err := parseScript(data)
	if err != nil {
		return err
	}
	player := player{
		output:     os.Stdout,
		logger:     logger,
		mode:       cfg.Eviction,
		capacity:   cfg.Capacity,
		putTimeout: cfg.PutTimeout,
	}
	logger.Debug("playing script",
		slog.Int("demos", len(script.Demos)),
		slog.String("eviction", cfg.Eviction.String()),
	)
	if err := player.play(ctx, script); err != nil {
		return err
	}
	if cfg.Workers <= 0 {
		return nil
	}
	return runWorkload(ctx, cfg, logger)
}
