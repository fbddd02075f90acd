package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus mirrors of the in-process counters, exposed on /metrics.
// Registered once at package load; Store instances share them.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ai_service",
		Name:      "requests_total",
		Help:      "Completed AI requests by endpoint and outcome.",
	}, []string{"endpoint", "success"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ai_service",
		Name:      "request_duration_seconds",
		Help:      "End-to-end AI request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	usageLogFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ai_service",
		Name:      "usage_log_failures_total",
		Help:      "Failed usage-audit writes by category.",
	}, []string{"category"})

	degradedSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ai_service",
		Name:      "degraded_success_total",
		Help:      "Requests that succeeded while their audit write failed.",
	})

	alertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ai_service",
		Name:      "usage_log_alerts_total",
		Help:      "Usage-log failure alerts fired at threshold multiples.",
	})
)
