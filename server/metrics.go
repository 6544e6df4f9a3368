package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Add Prometheus metrics
var (
	feedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubdecomunidades_feed_requests_total",
		Help: "The total number of calendar feed requests",
	})

	feedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubdecomunidades_feed_errors_total",
		Help: "The total number of calendar feed requests that failed",
	})

	feedBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hubdecomunidades_feed_build_duration_seconds",
		Help:    "Time spent building calendar feed documents",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // Start at 1ms, double each bucket, 10 buckets
	})
)
