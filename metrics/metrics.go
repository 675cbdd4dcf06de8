// Package metrics exposes the service counters scraped at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planning"

var (
	// Transfers counts moves between partitions by view and outcome.
	Transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_total",
		Help:      "Work item transfers between partitions.",
	}, []string{"view", "outcome"})

	Reorders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reorders_total",
		Help:      "Reorders within a partition.",
	}, []string{"view"})

	PersistFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Mutations rolled back because the store rejected them.",
	}, []string{"operation"})

	LoadedBoards = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "boards_loaded",
		Help:      "Boards held in memory.",
	})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(Transfers, Reorders, PersistFailures, LoadedBoards)
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
