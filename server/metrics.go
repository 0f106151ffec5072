package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orchestrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helmsman_orchestrations_total",
		Help: "Completed orchestration runs by status.",
	}, []string{"status"})

	orchestrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "helmsman_orchestration_duration_seconds",
		Help:    "Wall-clock duration of orchestration runs.",
		Buckets: prometheus.DefBuckets,
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helmsman_steps_total",
		Help: "Orchestration steps executed by phase and status.",
	}, []string{"phase", "status"})

	tokensUsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helmsman_tokens_used_total",
		Help: "Total LLM tokens consumed by orchestration runs.",
	})

	documentIngestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helmsman_document_ingests_total",
		Help: "Documents ingested into the knowledge base.",
	})
)
