package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/kafka"
	"github.com/jmehdipour/engage-dispatch/internal/metrics"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"go.uber.org/zap"
)

// Source is the subset of the Kafka consumer the worker needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Publisher re-enqueues retryable invocations.
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req model.Request) (*channel.Result, error)
}

// SenderKafka:
// - fetches dispatch requests from Kafka,
// - runs each one as an independent invocation,
// - re-publishes retryable failures until MaxAttempts, then drops them.
type SenderKafka struct {
	// Dependencies
	Source   Source
	Dispatch Dispatcher
	Retry    Publisher // optional
	Log      *zap.Logger

	// Behavior
	Workers       int           // number of goroutines processing messages
	InvokeTimeout time.Duration // per-invocation deadline
	MaxAttempts   int           // deliveries per request, including the first
}

// NewSenderKafka builds a worker with sane defaults.
func NewSenderKafka(source Source, dispatch Dispatcher, log *zap.Logger) *SenderKafka {
	return &SenderKafka{
		Source:        source,
		Dispatch:      dispatch,
		Log:           log,
		Workers:       8,
		InvokeTimeout: 30 * time.Second,
		MaxAttempts:   3,
	}
}

// Run starts the worker and blocks until ctx is cancelled and in-flight
// invocations have finished.
func (w *SenderKafka) Run(ctx context.Context) error {
	if w.Source == nil || w.Dispatch == nil {
		return errors.New("sender-kafka: source and dispatcher are required")
	}
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.InvokeTimeout <= 0 {
		w.InvokeTimeout = 30 * time.Second
	}
	if w.MaxAttempts <= 0 {
		w.MaxAttempts = 1
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start processors
	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				w.processOne(ctx, m)
			}
		}()
	}

	wg.Wait()
	return nil
}

func (w *SenderKafka) processOne(ctx context.Context, m kafka.Message) {
	// Always commit (at-least-once; retries travel as new messages)
	defer func() {
		if err := w.Source.Commit(context.WithoutCancel(ctx), m); err != nil {
			w.Log.Error("kafka commit failed", zap.Error(err), zap.Int64("offset", m.Offset))
		}
	}()

	var req model.Request
	if err := json.Unmarshal(m.Value, &req); err != nil {
		// poison → commit, skip
		metrics.MessagesTotal.WithLabelValues("invalid", "unknown").Inc()
		w.Log.Warn("bad dispatch request", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}

	if minted, ok := util.IDTime(req.ID); ok {
		metrics.QueueAge.WithLabelValues(channelLabel(req.Channel)).Observe(time.Since(minted).Seconds())
	}

	ictx, cancel := context.WithTimeout(ctx, w.InvokeTimeout)
	res, err := w.Dispatch.Dispatch(ictx, req)
	cancel()

	sent := res != nil && res.Status == sendability.ShouldSend
	outcome := metrics.Outcome(sent, err)
	metrics.MessagesTotal.WithLabelValues(outcome, channelLabel(req.Channel)).Inc()

	if err == nil || !failure.IsRetryable(err) {
		if err != nil {
			w.Log.Warn("dispatch failed", zap.String("channel", req.Channel.String()),
				zap.String("outcome", outcome), zap.Error(err))
		}
		return
	}

	attempt := kafka.Attempt(m)
	if w.Retry == nil || attempt >= w.MaxAttempts {
		w.Log.Error("dispatch failed, giving up", zap.String("channel", req.Channel.String()),
			zap.Int("attempt", attempt), zap.Error(err))
		return
	}

	retry := kafka.Message{Key: m.Key, Value: m.Value, Headers: kafka.WithAttempt(m.Headers, attempt+1)}
	if perr := w.Retry.Publish(context.WithoutCancel(ctx), retry); perr != nil {
		w.Log.Error("re-enqueue failed", zap.Error(perr))
	}
}

func channelLabel(ch model.Channel) string {
	if ch.Valid() {
		return ch.String()
	}
	return "unknown"
}
