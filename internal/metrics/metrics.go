// Package metrics exposes Prometheus instrumentation for the retrieval
// engine. Metrics stay out of the decision path: the retriever behaves
// identically with a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search paths reported in the "path" label.
const (
	PathVector  = "vector"
	PathLexical = "lexical"
)

// Metrics holds all collectors for the retrieval engine.
type Metrics struct {
	SearchesTotal     *prometheus.CounterVec
	EmptyResultsTotal prometheus.Counter
	FallbacksTotal    prometheus.Counter
	InitFailuresTotal prometheus.Counter
	SearchDuration    prometheus.Histogram
}

// New creates and registers all collectors against reg. Tests pass their
// own registry to avoid global registration collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visarag_searches_total",
			Help: "Retrieval calls served, labeled by the path that produced the result.",
		}, []string{"path"}),
		EmptyResultsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "visarag_empty_results_total",
			Help: "Retrieval calls that returned no passages.",
		}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "visarag_lexical_fallbacks_total",
			Help: "Times the vector path was unavailable or empty and lexical search ran.",
		}),
		InitFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "visarag_vector_init_failures_total",
			Help: "Vector engine initializations that left the engine not ready.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "visarag_search_duration_seconds",
			Help:    "End-to-end duration of retrieval calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveSearch records one completed retrieval call.
func (m *Metrics) ObserveSearch(path string, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(path).Inc()
	if results == 0 {
		m.EmptyResultsTotal.Inc()
	}
	m.SearchDuration.Observe(elapsed.Seconds())
}

// ObserveFallback records that the lexical path was consulted.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}

// ObserveInitFailure records a failed vector engine initialization.
func (m *Metrics) ObserveInitFailure() {
	if m == nil {
		return
	}
	m.InitFailuresTotal.Inc()
}
