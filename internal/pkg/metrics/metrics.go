// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单编排与库存账本的核心指标。
// 所有服务统一通过 /metrics 暴露，由 Prometheus 抓取。
var (
	SagaStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gomall_saga_started_total",
		Help: "Number of order creation sagas started.",
	})

	SagaCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gomall_saga_finished_total",
		Help: "Number of sagas finished, by terminal status.",
	}, []string{"status"})

	SagaStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gomall_saga_step_duration_seconds",
		Help:    "Duration of individual saga steps.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	CompensationExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gomall_saga_compensation_total",
		Help: "Number of compensation actions executed, by step and outcome.",
	}, []string{"step", "outcome"})

	LedgerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gomall_inventory_version_conflicts_total",
		Help: "Number of optimistic lock conflicts on the inventory ledger.",
	})

	ReservationRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gomall_inventory_reservation_rejected_total",
		Help: "Number of rejected reservations, by reason.",
	}, []string{"reason"})
)
