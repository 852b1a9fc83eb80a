// Package metrics holds the Prometheus instruments shared across the
// engine. Collectors are registered at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetrievalRequests counts pipeline invocations.
	RetrievalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "retrieval",
		Name:      "requests_total",
		Help:      "Number of retrieval pipeline invocations.",
	})

	// RetrievalDuration tracks end-to-end pipeline latency.
	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reqengine",
		Subsystem: "retrieval",
		Name:      "duration_seconds",
		Help:      "End-to-end retrieval pipeline latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// StageFailures counts degraded pipeline stages by name.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "retrieval",
		Name:      "stage_failures_total",
		Help:      "Pipeline stages that failed and degraded.",
	}, []string{"stage"})

	// RevisionsWritten counts persisted entity revisions by type.
	RevisionsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "revision",
		Name:      "written_total",
		Help:      "Entity revisions persisted, labeled by revision type.",
	}, []string{"revision_type"})

	// HorizonShifts counts completed horizon promotion cascades.
	HorizonShifts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "outcome",
		Name:      "horizon_shifts_total",
		Help:      "Horizon shift cascades executed.",
	})

	// CompoundDecisions counts persisted compound recommendations by tier.
	CompoundDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "compound",
		Name:      "decisions_total",
		Help:      "Compound decision recommendations, labeled by tier.",
	}, []string{"recommendation"})

	// LLMRequests counts upstream LLM calls by provider and outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM completion attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	// SnapshotBuilds counts awareness snapshot rebuilds by cache outcome.
	SnapshotBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqengine",
		Subsystem: "awareness",
		Name:      "snapshot_builds_total",
		Help:      "Awareness snapshot requests by cache outcome.",
	}, []string{"outcome"})
)
