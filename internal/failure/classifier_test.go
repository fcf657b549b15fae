package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newClassifier() (*Classifier, *tracker.Recorder, *observer.ObservedLogs, *tracker.Tracker) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := &tracker.Recorder{}
	log := tracker.NewLogger(zap.New(core), tracker.Runtime{Features: map[string]bool{tracker.DefaultVerboseFlag: true}})
	tr := tracker.New(log, rec)
	return NewClassifier(tr), rec, logs, tr
}

func responseErr(status int, body string) error {
	return &transport.ResponseError{
		Method:   http.MethodPost,
		URL:      "https://api.twilio.com/2010-04-01/Accounts/AC1/Messages.json",
		Response: &transport.Response{Status: status, Body: []byte(body)},
	}
}

func TestClassifyProviderResponse(t *testing.T) {
	c, rec, logs, tr := newClassifier()

	var classified error
	_, _ = tracker.Track(context.Background(), tr, "twilio.send", func(ctx context.Context, op *tracker.Operation) (int, error) {
		classified = c.Classify(ctx, responseErr(400, `{"code":21211,"message":"The 'To' number +15551234567 is not a valid phone number."}`), "twilio")
		assert.Contains(t, op.Tags, "twilio_status_code:400")
		return 0, classified
	})

	fe, ok := As(classified)
	require.True(t, ok)
	assert.Equal(t, KindIntegration, fe.Kind)
	assert.Equal(t, "21211", fe.Code)
	assert.Equal(t, 400, fe.Status)
	assert.NotContains(t, fe.Message, "+15551234567")
	assert.False(t, IsRetryable(classified))

	assert.Len(t, rec.Named("twilio.response"), 1)
	assert.Empty(t, rec.Named("rate_limited"))

	entries := logs.FilterMessage("twilio responded with an error").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, fmt.Sprint(entries[0].ContextMap()), "5551234567")
}

func TestClassifyRateLimited(t *testing.T) {
	c, rec, _, _ := newClassifier()

	err := c.Classify(context.Background(), responseErr(429, `{"code":20429,"message":"Too Many Requests"}`), "twilio")
	fe, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, RateLimitedCode, fe.Code)
	assert.True(t, IsRetryable(err))
	assert.Len(t, rec.Named("rate_limited"), 1)
}

func TestClassifySendGridBody(t *testing.T) {
	c, _, _, _ := newClassifier()

	err := c.Classify(context.Background(), responseErr(401, `{"errors":[{"message":"The provided authorization grant is invalid","field":null}]}`), "sendgrid")
	fe, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "401", fe.Code)
	assert.Equal(t, "The provided authorization grant is invalid", fe.Message)
}

func TestClassifyTransportErrorWrapsOnce(t *testing.T) {
	c, _, _, _ := newClassifier()
	cause := errors.New("dial tcp: connection refused")

	err := c.Classify(context.Background(), cause, "twilio")
	fe, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeTransport, fe.Code)
	assert.Equal(t, 500, fe.Status)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))

	again := c.Classify(context.Background(), err, "twilio")
	assert.Same(t, fe, again)

	open := c.Classify(context.Background(), fmt.Errorf("POST host: %w", transport.ErrCircuitOpen), "twilio")
	fe, _ = As(open)
	assert.Equal(t, CodeCircuitOpen, fe.Code)
}

func TestRetryableAndFatalKeepCauseCode(t *testing.T) {
	cause := Integration("boom", "20500", 500)
	r := Retryable("all sends failed", cause)
	assert.Equal(t, "20500", r.Code)
	assert.True(t, IsRetryable(r))
	assert.ErrorIs(t, r, cause)

	f := Fatal("all sends failed", Integration("bad", "21211", 400))
	assert.False(t, IsRetryable(f))
	assert.Equal(t, 400, StatusOf(f))

	assert.False(t, IsRetryable(Validation("x", "Y")))
	assert.False(t, IsRetryable(nil))
}

func TestClassifyRecordsOnOperationLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := tracker.NewLogger(zap.New(core), tracker.Runtime{Features: map[string]bool{tracker.DefaultVerboseFlag: true}})
	tr := tracker.Default(log, nil)
	c := NewClassifier(tr)

	var opLogs []string
	_, err := tracker.Track(context.Background(), tr, "twilio.send", func(ctx context.Context, op *tracker.Operation) (int, error) {
		err := c.Classify(ctx, responseErr(400, `{"code":21211,"message":"The 'To' number +15551234567 is not a valid phone number."}`), "twilio")
		opLogs = op.Logs
		return 0, err
	})
	require.Error(t, err)
	require.Len(t, opLogs, 1)
	assert.Contains(t, opLogs[0], "twilio 400 21211")
	assert.NotContains(t, opLogs[0], "5551234567")

	failed := logs.FilterMessage("twilio.send failed").All()
	require.Len(t, failed, 1)
	assert.Contains(t, fmt.Sprint(failed[0].ContextMap()["logs"]), "twilio 400 21211")
}
