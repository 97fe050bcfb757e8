package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/djdv/go-lfu"
	"github.com/joho/godotenv"
)

type (
	config struct {
		// Script is a path to a YAML script.
		// The embedded demo script is used when empty.
		Script string `env:"SCRIPT"`
		// MetricsAddr serves Prometheus metrics for the
		// workload's cache until interrupted, when set.
		MetricsAddr string           `env:"METRICS_ADDR"`
		LogFormat   logFormat        `env:"LOG_FORMAT" envDefault:"text"`
		LogLevel    slog.Level       `env:"LOG_LEVEL" envDefault:"info"`
		Eviction    lfu.EvictionMode `env:"EVICTION" envDefault:"inline"`
		PutTimeout  time.Duration    `env:"PUT_TIMEOUT" envDefault:"1s"`
		// Capacity overrides script capacities when positive,
		// and sizes the workload's cache.
		Capacity int `env:"CAPACITY"`
		// Workers enables the concurrent workload when positive.
		Workers    int `env:"WORKERS"`
		Operations int `env:"OPERATIONS" envDefault:"100000"`
	}
	logFormat string
)

const (
	envPrefix = "LFU_"

	formatText logFormat = "text"
	formatJSON logFormat = "json"
)

var errInvalidConfig = errors.New("invalid configuration")

// loadConfig reads `.env` style files (default `.env`, if it exists)
// into the environment and parses the `LFU_` variables.
// Variables already set in the environment take precedence.
func loadConfig(envFiles ...string) (config, error) {
	if err := godotenv.Load(envFiles...); err != nil &&
		!errors.Is(err, fs.ErrNotExist) {
		return config{}, errors.Join(errInvalidConfig, err)
	}
	cfg, err := env.ParseAsWithOptions[config](env.Options{
		Prefix: envPrefix,
	})
	if err != nil {
		return config{}, errors.Join(errInvalidConfig, err)
	}
	return cfg, cfg.validate()
}

func (cfg *config) validate() error {
	switch cfg.LogFormat {
	case formatText, formatJSON:
	default:
		return fmt.Errorf("%w: log format %q must be %q or %q",
			errInvalidConfig, cfg.LogFormat, formatText, formatJSON)
	}
	if cfg.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d",
			errInvalidConfig, cfg.Capacity)
	}
	if cfg.Workers > 0 && cfg.Operations <= 0 {
		return fmt.Errorf("%w: workload needs a positive operation count",
			errInvalidConfig)
	}
	if cfg.Workers > 0 && cfg.Eviction == lfu.EvictNever {
		return fmt.Errorf("%w: the workload cannot run without eviction",
			errInvalidConfig)
	}
	if cfg.PutTimeout <= 0 {
		return fmt.Errorf("%w: put timeout must be positive",
			errInvalidConfig)
	}
	return nil
}

func (cfg *config) newLogger(output io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == formatJSON {
		return slog.New(slog.NewJSONHandler(output, options))
	}
	return slog.New(slog.NewTextHandler(output, options))
}
