// Package metrics holds the Prometheus collectors for the lead pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchCalls counts content-API searches by outcome (ok, empty, failed).
	SearchCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_search_calls_total",
		Help: "Content API search calls by outcome.",
	}, []string{"status"})

	// TokenRefreshes counts credential refreshes by tier and outcome.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_token_refreshes_total",
		Help: "OAuth token refreshes by credential tier and outcome.",
	}, []string{"tier", "outcome"})

	// AICalls counts AI completions by phase and result kind.
	AICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_ai_calls_total",
		Help: "AI completion calls by phase and result kind.",
	}, []string{"phase", "kind"})

	// RelevanceBatches counts relevance-judge batches by outcome.
	RelevanceBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_relevance_batches_total",
		Help: "Relevance judge batches by outcome.",
	}, []string{"outcome"})

	// DegradedFilters counts filter runs where every batch failed, by degrade mode.
	DegradedFilters = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_degraded_filters_total",
		Help: "Relevance filter runs that fell back because every batch failed.",
	}, []string{"mode"})

	// GroupsSkipped counts keyword groups skipped because the run budget was spent.
	GroupsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadradar_groups_skipped_total",
		Help: "Keyword groups skipped after the wall-clock budget was exceeded.",
	})

	// PipelineDuration observes wall-clock seconds per orchestrator run.
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadradar_pipeline_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs.",
		Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90},
	})

	// LeadWrites counts persistence outcomes (inserted, duplicate, failed).
	LeadWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_lead_writes_total",
		Help: "Lead persistence attempts by outcome.",
	}, []string{"outcome"})

	// JobRuns counts scheduler job executions by outcome.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadradar_job_runs_total",
		Help: "Scheduler job executions by outcome.",
	}, []string{"outcome"})

	// JobLeaseContention counts jobs skipped because another instance held the lease.
	JobLeaseContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadradar_job_lease_contention_total",
		Help: "Due jobs skipped because another scheduler instance held the lease.",
	})

	// CircuitState reports breaker state per upstream (0 closed, 1 open, 2 half-open).
	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "leadradar_circuit_state",
		Help: "Circuit breaker state per upstream service.",
	}, []string{"service"})
)
