package metrics

import (
	"errors"
	"testing"

	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromStatsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPromStats("msgd", reg)

	tags := tracker.Tags{"channel:sms", "twilio_status_code:201", "content_sid:HX1"}
	s.Incr("sms.send.start", 1, tags)
	s.Incr("sms.send.start", 2, tags)
	s.Incr("sms.send.start", 1, tracker.Tags{"channel:push"})

	c := s.counters["sms.send.start"]
	require.NotNil(t, c)
	assert.Equal(t, float64(3), testutil.ToFloat64(c.With(prometheus.Labels{
		"channel": "sms", "status_code": "201", "error": "", "reason": "", "region": "",
	})))

	n, err := testutil.GatherAndCount(reg, "msgd_sms_send_start_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPromStatsHistogramAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPromStats("msgd", reg)

	s.Histogram("sms.send.duration", 120, tracker.Tags{"channel:sms", "error:true"})
	s.Set("workers.busy", 4, nil)

	n, err := testutil.GatherAndCount(reg, "msgd_sms_send_duration_ms", "msgd_workers_busy")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, float64(4), testutil.ToFloat64(s.gauges["workers.busy"]))
}

func TestPromStatsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPromStats("msgd", reg)
	b := NewPromStats("msgd", reg)

	a.Incr("notsent", 1, nil)
	b.Incr("notsent", 1, nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(a.counters["notsent"]))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "sent", Outcome(true, nil))
	assert.Equal(t, "not_sent", Outcome(false, nil))
	assert.Equal(t, "invalid", Outcome(false, failure.Validation("bad", "X")))
	assert.Equal(t, "retryable", Outcome(false, failure.Integration("down", "E", 503)))
	assert.Equal(t, "failed", Outcome(false, failure.Fatal("gone", errors.New("x"))))
}

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	MessagesTotal.WithLabelValues("sent", "sms").Inc()
	QueueAge.WithLabelValues("sms").Observe(0.3)

	n, err := testutil.GatherAndCount(reg, "msgd_messages_total", "msgd_queue_age_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
