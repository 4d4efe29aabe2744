package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rejections_total",
			Help: "Requests rejected before dispatch, by rejection kind.",
		},
		[]string{"kind"},
	)

	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_provider_call_duration_seconds",
			Help:    "Upstream AI provider call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "outcome"},
	)

	CreditsDeductedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_credits_deducted_total",
			Help: "Total AI credits deducted after successful dispatches.",
		},
	)

	CreditDeductFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_credit_deduct_failures_total",
			Help: "Deduction writes that failed after a successful dispatch.",
		},
	)

	QuotaFailOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_quota_fail_open_total",
			Help: "Requests admitted because the quota store was unreachable.",
		},
	)

	AuditLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_audit_log_failures_total",
			Help: "Interaction log writes that were dropped.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RejectionsTotal,
		ProviderCallDuration,
		CreditsDeductedTotal,
		CreditDeductFailures,
		QuotaFailOpenTotal,
		AuditLogFailures,
	)
}
