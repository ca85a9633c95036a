// metrics/contact.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes recorded by the contact relay.
const (
	OutcomeSent          = "sent"
	OutcomeInvalid       = "invalid"
	OutcomeNotConfigured = "not_configured"
	OutcomeVerifyFailed  = "verify_failed"
	OutcomeSendFailed    = "send_failed"
)

var submissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Contact form submissions handled by the relay, by outcome.",
	},
	[]string{"outcome"},
)

var dispatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "contact_mail_dispatch_seconds",
		Help:    "Time spent verifying and sending contact mail.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20},
	},
	[]string{"transport", "result"},
)

// RecordSubmission increments contact_submissions_total for outcome.
func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records how long a verify+send cycle took on transport.
// result is "ok" or the error kind.
func ObserveDispatch(transport, result string, d time.Duration) {
	dispatchDuration.WithLabelValues(transport, result).Observe(d.Seconds())
}
