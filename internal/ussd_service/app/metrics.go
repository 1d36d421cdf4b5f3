package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ussdRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ussd_requests_total",
			Help: "Total number of USSD requests.",
		},
		[]string{"session_type"}, // "initial" (empty text) or "continuation"
	)

	ussdResponseTimeSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ussd_response_time_seconds",
			Help:    "USSD request processing time in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
