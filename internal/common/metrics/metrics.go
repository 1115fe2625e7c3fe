// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_total",
			Help: "Total number of dispatch calls by kind and final status",
		},
		[]string{"kind", "status"},
	)

	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_delivery_attempts_total",
			Help: "Total number of per-channel delivery attempts",
		},
		[]string{"channel", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_dispatch_duration_seconds",
			Help: "Duration of dispatch fan-out in seconds",
		},
		[]string{"kind"},
	)

	ScanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_scan_runs_total",
			Help: "Total number of scan routine passes by routine and outcome",
		},
		[]string{"routine", "outcome"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_scan_duration_seconds",
			Help: "Duration of scan routine passes in seconds",
		},
		[]string{"routine"},
	)

	FollowUpTasksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_follow_up_tasks_total",
			Help: "Total number of follow-up tasks created by scan findings",
		},
		[]string{"kind"},
	)
)
