// Package telemetry carries the diagnostic side channel of the server:
// prometheus metrics and the notification stream of executed commands.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minidis"

// Registry holds all server metrics
type Registry struct {
	registry *prometheus.Registry

	CommandsTotal        *prometheus.CounterVec
	CommandErrors        *prometheus.CounterVec
	ConnectionsActive    prometheus.Gauge
	BlockingPopWait      *prometheus.HistogramVec
	NotificationsDropped prometheus.Counter
}

// NewRegistry creates metrics registered on a fresh prometheus registry
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Number of executed commands.",
		}, []string{"command"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Number of requests answered with an error.",
		}, []string{"command"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open client connections.",
		}),
		BlockingPopWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blocking_pop_wait_seconds",
			Help:      "Time blocking pops spent before returning.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"command", "result"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Executed command notifications dropped because the channel was full or closed.",
		}),
	}
	r.registry.MustRegister(
		r.CommandsTotal,
		r.CommandErrors,
		r.ConnectionsActive,
		r.BlockingPopWait,
		r.NotificationsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the metrics of this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process wide registry
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the process wide metrics
func Handler() http.Handler {
	return Global().Handler()
}
