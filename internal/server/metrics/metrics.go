// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncshellOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_syncshell_operations_total",
			Help: "Syncshell create and join calls by result",
		},
		[]string{"operation", "result"},
	)

	PermissionRowsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_permission_rows_reconciled_total",
			Help: "Pairwise permission rows touched by joins, by outcome",
		},
		[]string{"outcome"},
	)

	BatchesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_event_batches_published_total",
			Help: "Event batches handed to the broker, by result",
		},
		[]string{"result"},
	)

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_events_dispatched_total",
			Help: "Events handled by the notification router, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	MessagesDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_messages_dead_lettered_total",
			Help: "Broker messages moved to the dead-letter store",
		},
		[]string{"reason"},
	)

	LocalConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairsync_local_connections",
			Help: "Live client connections held by this instance",
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairsync_sweep_runs_total",
			Help: "Background sweep executions by sweep and result",
		},
		[]string{"sweep", "result"},
	)
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
