package metrics

import (
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgd_messages_total",
			Help: "Dispatch invocations by outcome and channel",
		},
		[]string{"outcome", "channel"}, // sent|not_sent|retryable|failed|invalid , sms|whatsapp|push|email
	)

	// QueueAge is the time between minting a message id and a worker picking it up.
	QueueAge = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msgd_queue_age_seconds",
			Help:    "Age of queued dispatch requests when consumed",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60, 300},
		},
		[]string{"channel"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		QueueAge,
	)
}

// Outcome labels an invocation result for MessagesTotal.
func Outcome(sent bool, err error) string {
	if err == nil {
		if sent {
			return "sent"
		}
		return "not_sent"
	}

	if fe, ok := failure.As(err); ok && fe.Kind == failure.KindValidation {
		return "invalid"
	}

	if failure.IsRetryable(err) {
		return "retryable"
	}

	return "failed"
}
