// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal tracks transcript resolutions by waterfall tier and outcome
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "resolutions_total",
			Help:      "Total number of transcript resolutions by tier and status",
		},
		[]string{"tier", "status"},
	)

	// ResolutionDuration tracks end-to-end resolution duration in seconds
	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "duration_seconds",
			Help:      "Duration of transcript resolutions in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tier"},
	)

	// CollaboratorFailuresTotal tracks document source failures that were skipped
	CollaboratorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "collaborator_failures_total",
			Help:      "Total number of document source failures by operation",
		},
		[]string{"operation"},
	)

	// RankingsTotal tracks candidate rankings by match status
	RankingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "rankings_total",
			Help:      "Total number of candidate rankings by status",
		},
		[]string{"status"},
	)

	// RankingScore tracks the final score of the best ranked candidate
	RankingScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "best_score",
			Help:      "Final score of the best ranked candidate",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	// DecisionTransitionsTotal tracks match decision status changes
	DecisionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "decisions",
			Name:      "transitions_total",
			Help:      "Total number of match decision status transitions",
		},
		[]string{"status", "method"},
	)

	// ConflictsTotal tracks conflict resolutions by strategy and outcome
	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "conflict",
			Name:      "resolutions_total",
			Help:      "Total number of conflict resolutions by strategy and winner",
		},
		[]string{"strategy", "winner"},
	)

	// CacheLookupsTotal tracks transcript text cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "documents",
			Name:      "cache_lookups_total",
			Help:      "Total number of transcript cache lookups by result",
		},
		[]string{"result"},
	)

	// EventsPublishedTotal tracks events written to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by type and status",
		},
		[]string{"event_type", "status"},
	)
)
