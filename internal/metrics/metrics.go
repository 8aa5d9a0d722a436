// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ticks counts monitor ticks by outcome.
	Ticks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobwatch_ticks_total",
			Help: "Monitor ticks by outcome",
		},
		[]string{"outcome"},
	)

	// TickDuration observes ticks that ran to completion.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobwatch_tick_duration_seconds",
			Help:    "Duration of completed monitor ticks",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// JobsDiscovered counts fresh fingerprints per platform.
	JobsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobwatch_jobs_discovered_total",
			Help: "Previously unseen jobs found, by platform",
		},
		[]string{"platform"},
	)

	// ConnectorErrors counts failed connector calls.
	ConnectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobwatch_connector_errors_total",
			Help: "Connector failures by platform and operation",
		},
		[]string{"platform", "operation"},
	)

	// Applications counts recorded attempts, auto or manual.
	Applications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobwatch_applications_total",
			Help: "Application attempts by status and origin",
		},
		[]string{"status", "origin"},
	)

	// Notifications counts notifier deliveries.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobwatch_notifications_total",
			Help: "Notifications by kind and delivery result",
		},
		[]string{"kind", "result"},
	)

	// QuotaRemaining tracks the daily quota left.
	QuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobwatch_quota_remaining",
			Help: "Applications left in today's quota",
		},
	)

	// Monitoring is 1 while the monitor is running.
	Monitoring = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobwatch_monitoring",
			Help: "1 while the monitor is running",
		},
	)
)

// Result maps a delivery flag to a label value.
func Result(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}
