package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metar_reader"

// Metrics holds the Prometheus collectors for the METAR service.
type Metrics struct {
	// Decoder metrics.
	DecodesTotal *prometheus.CounterVec // labels: outcome={ok,empty}

	// Upstream fetch metrics.
	FetchesTotal  *prometheus.CounterVec // labels: outcome={success,empty,error}
	FetchDuration prometheus.Histogram

	// Service metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	LookupsTotal *prometheus.CounterVec // labels: outcome={ok,invalid,fetch_error,decode_error}

	// Live feed.
	LiveFeedClients prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DecodesTotal,
		m.FetchesTotal,
		m.FetchDuration,
		m.CacheLookups,
		m.LookupsTotal,
		m.LiveFeedClients,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DecodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decodes_total",
			Help:      "METAR reports decoded, by outcome.",
		}, []string{"outcome"}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Upstream METAR fetches, by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream METAR fetches including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Report cache lookups, by result.",
		}, []string{"result"}),
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Airport lookups served, by outcome.",
		}, []string{"outcome"}),
		LiveFeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_feed_clients",
			Help:      "Connected live feed websocket clients.",
		}),
	}
}
