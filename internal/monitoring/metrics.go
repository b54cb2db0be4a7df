package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ImportsTotal        *prometheus.CounterVec
	ImportDuration      prometheus.Histogram
	ConnectivityChanges *prometheus.CounterVec
	Online              prometheus.Gauge
	EmbeddingsSynced    prometheus.Counter
	SyncFailures        prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the application metrics with reg. Passing nil uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ImportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_imports_total",
			Help: "The total number of recipe import attempts",
		}, []string{"outcome"}), // success, remote_error, transport_error, protocol_error, unknown
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipe_import_duration_seconds",
			Help:    "Duration of scrape requests.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		ConnectivityChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connectivity_transitions_total",
			Help: "Genuine online/offline transitions",
		}, []string{"state"}),
		Online: factory.NewGauge(prometheus.GaugeOpts{
			Name: "connectivity_online",
			Help: "1 while the process considers itself online.",
		}),
		EmbeddingsSynced: factory.NewCounter(prometheus.CounterOpts{
			Name: "embedding_recipes_synced_total",
			Help: "Recipes whose embeddings were created during resync",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "embedding_sync_failures_total",
			Help: "Background embedding resync requests that failed",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncImport(outcome string) {
	m.ImportsTotal.WithLabelValues(outcome).Inc()
}

// InitOnline records the sampled startup state without counting a transition.
func (m *Metrics) InitOnline(online bool) {
	if online {
		m.Online.Set(1)
		return
	}
	m.Online.Set(0)
}

func (m *Metrics) SetOnline(online bool) {
	state := "offline"
	if online {
		state = "online"
		m.Online.Set(1)
	} else {
		m.Online.Set(0)
	}
	m.ConnectivityChanges.WithLabelValues(state).Inc()
}
