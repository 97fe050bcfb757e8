// Package lfuprom exports [lfu.Stats] as Prometheus metrics.
package lfuprom

import (
	"github.com/djdv/go-lfu"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	// StatsSource is satisfied by [lfu.Cache].
	StatsSource interface {
		Stats() lfu.Stats
	}
	// Collector is a [prometheus.Collector] which reads
	// its source's statistics on every scrape.
	Collector struct {
		source  StatsSource
		metrics []metric
	}
	metric struct {
		desc      *prometheus.Desc
		valueType prometheus.ValueType
		value     func(lfu.Stats) float64
	}
)

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a [Collector] whose series are named
// `<namespace>_lfu_<metric>` and carry a constant
// `cache` label set to name.
func NewCollector(namespace, name string, source StatsSource) *Collector {
	var (
		labels = prometheus.Labels{"cache": name}
		desc   = func(metric, help string) *prometheus.Desc {
			return prometheus.NewDesc(
				prometheus.BuildFQName(namespace, "lfu", metric),
				help, nil, labels,
			)
		}
		counter = func(name, help string, value func(lfu.Stats) uint64) metric {
			return metric{
				desc:      desc(name, help),
				valueType: prometheus.CounterValue,
				value:     func(s lfu.Stats) float64 { return float64(value(s)) },
			}
		}
		gauge = func(name, help string, value func(lfu.Stats) int) metric {
			return metric{
				desc:      desc(name, help),
				valueType: prometheus.GaugeValue,
				value:     func(s lfu.Stats) float64 { return float64(value(s)) },
			}
		}
	)
	return &Collector{
		source: source,
		metrics: []metric{
			counter("hits_total", "Lookups which found their key.",
				func(s lfu.Stats) uint64 { return s.Hits }),
			counter("misses_total", "Lookups which did not find their key.",
				func(s lfu.Stats) uint64 { return s.Misses }),
			counter("promotions_total", "Entries moved up a frequency tier.",
				func(s lfu.Stats) uint64 { return s.Promotions }),
			counter("insertions_total", "New keys admitted.",
				func(s lfu.Stats) uint64 { return s.Insertions }),
			counter("removals_total", "Entries removed explicitly.",
				func(s lfu.Stats) uint64 { return s.Removals }),
			counter("evictions_total", "Entries removed to make room.",
				func(s lfu.Stats) uint64 { return s.Evictions }),
			counter("waits_total", "Insertions which blocked on a full cache.",
				func(s lfu.Stats) uint64 { return s.Waits }),
			gauge("entries", "Entries currently cached.",
				func(s lfu.Stats) int { return s.Len }),
			gauge("capacity", "Maximum number of entries.",
				func(s lfu.Stats) int { return s.Capacity }),
		},
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, metric := range c.metrics {
		descs <- metric.desc
	}
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	stats := c.source.Stats()
	for _, metric := range c.metrics {
		metrics <- prometheus.MustNewConstMetric(
			metric.desc, metric.valueType, metric.value(stats),
		)
	}
}
