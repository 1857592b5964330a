// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This holds the single instance of the metrics value needed for
// collecting metrics. The prometheus package maintains its own registry so
// the collectors are created once when the package is initialized.
var m = struct {
	requests     *prometheus.CounterVec
	errors       prometheus.Counter
	panics       prometheus.Counter
	transactions *prometheus.CounterVec
	blocks       prometheus.Counter
	height       prometheus.Gauge
	filters      prometheus.Gauge
}{
	requests: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "requests_total",
		Help:      "Number of requests handled by route.",
	}, []string{"route"}),
	errors: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "errors_total",
		Help:      "Number of requests that ended in an error.",
	}),
	panics: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "panics_total",
		Help:      "Number of requests that panicked.",
	}),
	transactions: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "transactions_total",
		Help:      "Number of submitted transactions by outcome.",
	}, []string{"outcome"}),
	blocks: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "blocks_mined_total",
		Help:      "Number of blocks promoted to head.",
	}),
	height: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "chain_height",
		Help:      "Number of the head block.",
	}),
	filters: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "filters_installed",
		Help:      "Number of installed filters.",
	}),
}

// AddRequests increments the request count for the route.
func AddRequests(route string) {
	m.requests.WithLabelValues(route).Inc()
}

// AddErrors increments the errors count.
func AddErrors() {
	m.errors.Inc()
}

// AddPanics increments the panics count.
func AddPanics() {
	m.panics.Inc()
}

// AddTransaction increments the transaction count for the outcome.
func AddTransaction(outcome string) {
	m.transactions.WithLabelValues(outcome).Inc()
}

// SetHead records a newly promoted head block.
func SetHead(number uint64) {
	m.blocks.Inc()
	m.height.Set(float64(number))
}

// SetFilters records the number of installed filters.
func SetFilters(n int) {
	m.filters.Set(float64(n))
}
