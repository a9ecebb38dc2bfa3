package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babo_recommendation_batches_total",
			Help: "Total number of recommendation batches by outcome status",
		},
		[]string{"status"},
	)

	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babo_recommendation_items_total",
			Help: "Total number of recommendation items by result",
		},
		[]string{"result"},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "babo_recommendation_batch_duration_seconds",
			Help:    "Time from dispatch to join of a recommendation batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "babo_recommendation_sessions_active",
			Help: "Number of open recommendation sessions",
		},
	)

	ratingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babo_ratings_submitted_total",
			Help: "Total number of rating submissions by result",
		},
		[]string{"result"},
	)
)

// Item result labels.
const (
	resultSuccess    = "success"
	resultRejected   = "rejected"
	resultConnection = "connection"
	resultInvalid    = "invalid"
)
