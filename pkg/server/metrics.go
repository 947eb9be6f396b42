package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's instruments on a private registry, so multiple
// servers in one process never collide on registration.
type metrics struct {
	registry        *prometheus.Registry
	commandsTotal   *prometheus.CounterVec
	commandErrors   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// newMetrics builds the instruments. The session gauge reads the runtime's
// live count on every scrape, so sessions closed by the janitor or shutdown
// are reflected without any handler bookkeeping.
func newMetrics(sessionCount func() int) *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "skiff",
		Name:      "sessions_active",
		Help:      "Number of live browser sessions.",
	}, func() float64 { return float64(sessionCount()) })

	return &metrics{
		registry: registry,
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skiff",
			Name:      "commands_total",
			Help:      "Commands executed, by kind.",
		}, []string{"kind"}),
		commandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skiff",
			Name:      "command_errors_total",
			Help:      "Failed commands, by kind and error class.",
		}, []string{"kind", "error"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skiff",
			Name:      "command_duration_seconds",
			Help:      "Command execution latency, by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
	}
}
