package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CaptureAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_capture_attempts_total",
			Help: "Capture messages sent to acquiring processors by network and outcome.",
		},
		[]string{"network", "outcome"},
	)

	Payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_payments_total",
			Help: "Payments completed by final status.",
		},
		[]string{"status"},
	)

	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "HTTP requests processed by route and status.",
		},
		[]string{"path", "status"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CaptureAttempts, Payments, RequestCount)
	})
}

// Capture outcomes.
const (
	OutcomeApproved  = "approved"
	OutcomeRetryable = "retryable"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

func ObserveCapture(network, outcome string) {
	CaptureAttempts.WithLabelValues(network, outcome).Inc()
}

func ObservePayment(status string) {
	Payments.WithLabelValues(status).Inc()
}
