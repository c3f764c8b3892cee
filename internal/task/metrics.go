package task

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the task engine.
type Metrics struct {
	TasksStarted     *prometheus.CounterVec
	TasksCompleted   prometheus.Counter
	TasksAborted     *prometheus.CounterVec
	TaskTurns        prometheus.Histogram
	ToolDispatches   *prometheus.CounterVec
	FinalizeFailures prometheus.Counter
	WebhookEvents    *prometheus.CounterVec
}

// NewMetrics creates and registers task engine metrics.
//
// sync.Once guards registration so repeated construction never panics
// with a duplicate collector error. All metrics carry the "devbot_"
// prefix.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TasksStarted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "devbot_tasks_started_total",
					Help: "Total number of tasks started",
				},
				[]string{"trigger"}, // "run", "watcher" or "webhook"
			),
			TasksCompleted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "devbot_tasks_completed_total",
					Help: "Total number of tasks that reached the done state",
				},
			),
			TasksAborted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "devbot_tasks_aborted_total",
					Help: "Total number of aborted tasks",
				},
				[]string{"reason"},
			),
			TaskTurns: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "devbot_task_turns",
					Help:    "Model turns consumed per task",
					Buckets: prometheus.LinearBuckets(1, 2, 8),
				},
			),
			ToolDispatches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "devbot_tool_dispatches_total",
					Help: "Total number of tool commands dispatched",
				},
				[]string{"kind"},
			),
			FinalizeFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "devbot_finalize_failures_total",
					Help: "Total number of failed commit/push/PR sequences",
				},
			),
			WebhookEvents: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "devbot_webhook_events_total",
					Help: "Total number of webhook events received",
				},
				[]string{"outcome"}, // "queued", "ignored", "invalid", "rejected" or "rate_limited"
			),
		}
	})
	return globalMetrics
}
