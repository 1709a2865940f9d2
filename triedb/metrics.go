package triedb

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type storageMetrics struct {
	gets     *prometheus.CounterVec
	cacheHit *prometheus.CounterVec
	sets     prometheus.Counter
	fallback prometheus.Counter
}

var (
	storageMetricsOnce sync.Once
	storageRegistry    *storageMetrics
)

// StorageMetrics returns the lazily-initialized storage metrics registry.
func StorageMetrics() *storageMetrics {
	storageMetricsOnce.Do(func() {
		storageRegistry = &storageMetrics{
			gets: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpt",
				Subsystem: "storage",
				Name:      "gets_total",
				Help:      "Total node storage reads segmented by outcome.",
			}, []string{"outcome"}),
			cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpt",
				Subsystem: "storage",
				Name:      "clean_cache_total",
				Help:      "Total clean node cache lookups segmented by hit/miss.",
			}, []string{"result"}),
			sets: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mpt",
				Subsystem: "storage",
				Name:      "sets_total",
				Help:      "Total node storage writes.",
			}),
			fallback: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "mpt",
				Subsystem: "storage",
				Name:      "scheme_fallback_total",
				Help:      "Total reads that missed under the active scheme and hit under the other.",
			}),
		}
		prometheus.MustRegister(
			storageRegistry.gets,
			storageRegistry.cacheHit,
			storageRegistry.sets,
			storageRegistry.fallback,
		)
	})
	return storageRegistry
}

func (m *storageMetrics) observeGet(outcome string) {
	if m == nil {
		return
	}
	m.gets.WithLabelValues(outcome).Inc()
}

func (m *storageMetrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHit.WithLabelValues(result).Inc()
}

func (m *storageMetrics) observeSet() {
	if m == nil {
		return
	}
	m.sets.Inc()
}

func (m *storageMetrics) observeFallback() {
	if m == nil {
		return
	}
	m.fallback.Inc()
}
