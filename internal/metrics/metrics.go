// Package metrics exposes Prometheus counters and histograms for the broker:
// actions executed, capacity denials, and restore duration. The out-of-scope
// HTTP layer mounts Handler(); the broker itself never listens on a socket
// — HTTP/UI is an external collaborator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Registry bundles the metrics this core emits. Callers construct one per
// broker instance; NewRegistry registers all collectors with a private
// prometheus.Registry so multiple brokers in one process (tests) don't
// collide on global registration.
type Registry struct {
	reg *prometheus.Registry

	ActionsExecuted  *prometheus.CounterVec // labels: kind
	CapacityDenials  *prometheus.CounterVec // labels: reason
	RestoreDuration  prometheus.Histogram
	BrokerRefused    prometheus.Counter
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		ActionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raildispatch",
			Name:      "actions_executed_total",
			Help:      "Count of actions successfully executed, by action kind.",
		}, []string{"kind"}),
		CapacityDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raildispatch",
			Name:      "capacity_denials_total",
			Help:      "Count of actions denied for capacity reasons, by reason.",
		}, []string{"reason"}),
		RestoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raildispatch",
			Name:      "restore_duration_seconds",
			Help:      "Wall time spent replaying event logs during restore.",
			Buckets:   prometheus.DefBuckets,
		}),
		BrokerRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raildispatch",
			Name:      "broker_refused_total",
			Help:      "Count of times the broker entered the fatal refused state.",
		}),
	}

	reg.MustRegister(r.ActionsExecuted, r.CapacityDenials, r.RestoreDuration, r.BrokerRefused)

	return r
}

// Handler returns the http.Handler the out-of-scope HTTP layer mounts to
// expose these metrics for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
