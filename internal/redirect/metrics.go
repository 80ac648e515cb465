package redirect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for redirects_total.
const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeError = "error"
)

// storeMetrics holds the collectors of one Store.
type storeMetrics struct {
	loadSeconds prometheus.Histogram
	loadErrors  prometheus.Counter
	entries     prometheus.Gauge
}

// serverMetrics holds the collectors of one Server.
type serverMetrics struct {
	redirects *prometheus.CounterVec
}

// newStoreMetrics registers the snapshot collectors on reg. A nil reg
// creates collectors that are never exported.
func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)

	return &storeMetrics{
		loadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shortlinks",
			Name:      "registry_load_seconds",
			Help:      "Time spent loading and parsing the registry.",
			Buckets:   prometheus.DefBuckets,
		}),

		loadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shortlinks",
			Name:      "registry_load_errors_total",
			Help:      "Failed registry refreshes.",
		}),

		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shortlinks",
			Name:      "registry_entries",
			Help:      "Distinct paths in the current registry snapshot.",
		}),
	}
}

// newServerMetrics registers the request collectors on reg.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		redirects: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortlinks",
			Name:      "redirects_total",
			Help:      "Redirect requests by outcome (hit, miss, error).",
		}, []string{"outcome"}),
	}

	// Pre-create the label values so they export as zero before first use
	for _, o := range []string{outcomeHit, outcomeMiss, outcomeError} {
		m.redirects.WithLabelValues(o)
	}
	return m
}
