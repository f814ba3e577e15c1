package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

const ivrAPIMetricsNamespace = "ivr_api"

var (
	metricRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ivrAPIMetricsNamespace,
			Name:      "requests",
			Help:      "IVR API requests by route group and response status",
		},
		[]string{"group", "status"},
	)

	metricRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ivrAPIMetricsNamespace,
			Name:      "request_duration",
			Help:      "IVR API request duration in seconds by route group",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"group"},
	)

	// Timeslot ids are bounded by the configured timeslot count.
	metricTimeslotRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ivrAPIMetricsNamespace,
			Name:      "timeslot_requests",
			Help:      "IVR API timeslot requests by timeslot id and action",
		},
		[]string{"timeslot", "action"},
	)

	metricAuthRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ivrAPIMetricsNamespace,
			Name:      "auth_rejected",
			Help:      "IVR API requests rejected for a missing or wrong API key",
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricRequests,
		metricRequestDuration,
		metricTimeslotRequests,
		metricAuthRejected,
	)
}
