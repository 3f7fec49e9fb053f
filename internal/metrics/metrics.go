package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_transfers_created_total",
		Help: "Transfers created, by kind and mode.",
	}, []string{"kind", "mode"})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_status_changes_total",
		Help: "Lifecycle status changes, by resulting status.",
	}, []string{"status"})

	VerificationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_verification_attempts_total",
		Help: "Verification code checks, by result.",
	}, []string{"result"})

	SchedulerExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_scheduler_executions_total",
		Help: "Scheduled intent executions, by result.",
	}, []string{"result"})
)
