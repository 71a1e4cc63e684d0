package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsProcessed tracks enriched segments by tier and outcome
	SegmentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_segments_processed_total",
			Help: "Total number of segments processed",
		},
		[]string{"tier", "outcome"},
	)

	// CompletionCalls tracks external completion calls by mode and outcome
	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_completion_calls_total",
			Help: "Total number of completion provider calls",
		},
		[]string{"mode", "outcome"},
	)

	// CompletionLatency tracks completion call latency
	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_completion_latency_seconds",
			Help:    "Completion call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// RetriesTotal tracks retry attempts by failure category
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_retries_total",
			Help: "Total number of retry attempts",
		},
		[]string{"category"},
	)

	// RateLimitRejections tracks inbound requests rejected by the limiter
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_rate_limit_rejections_total",
			Help: "Total number of rate-limited inbound requests",
		},
		[]string{"route"},
	)
)
