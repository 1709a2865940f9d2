package mpt

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// hasherMetrics counts which way EncodeInternalNode's inline-vs-hash
// decision goes, segmented by node kind. triedb can't own this counter
// itself (mpt is the lower-level package; triedb already imports mpt, so
// the reverse import would cycle), so the hasher keeps its own registry
// following the same lazy sync.Once pattern triedb uses for storage metrics.
type hasherMetrics struct {
	decisions *prometheus.CounterVec
}

var (
	hasherMetricsOnce sync.Once
	hasherRegistry    *hasherMetrics
)

// HasherMetrics returns the lazily-initialized hasher metrics registry.
func HasherMetrics() *hasherMetrics {
	hasherMetricsOnce.Do(func() {
		hasherRegistry = &hasherMetrics{
			decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpt",
				Subsystem: "hasher",
				Name:      "encode_decisions_total",
				Help:      "Total EncodeInternalNode calls segmented by node kind and inline/hash outcome.",
			}, []string{"node_kind", "outcome"}),
		}
		prometheus.MustRegister(hasherRegistry.decisions)
	})
	return hasherRegistry
}

func (m *hasherMetrics) observeEncode(nodeKind, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(nodeKind, outcome).Inc()
}

// DecisionsCounter exposes the underlying CounterVec for tests that need
// to assert on specific (node_kind, outcome) label values.
func (m *hasherMetrics) DecisionsCounter() *prometheus.CounterVec {
	return m.decisions
}
