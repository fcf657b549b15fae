package tracker

import (
	"context"

	"go.uber.org/zap"
)

type LogHook struct {
	Log *Logger
}

func (h LogHook) OnStart(_ context.Context, op *Operation) {
	h.Log.Info("starting "+op.Name, zap.Strings("tags", op.Tags))
}

func (h LogHook) OnSuccess(_ context.Context, op *Operation) {
	h.Log.Info(op.Name+" succeeded",
		zap.Strings("tags", op.Tags),
		zap.Duration("duration", op.Duration),
	)
}

func (h LogHook) OnFailure(_ context.Context, op *Operation) {
	h.Log.Error(op.Name+" failed",
		zap.Strings("tags", op.Tags),
		zap.Duration("duration", op.Duration),
		zap.Strings("logs", op.Logs),
		zap.Error(op.Err),
	)
}

// StatsHook emits {name}.start and {name}.end counters.
type StatsHook struct {
	Stats StatsClient
}

func (h StatsHook) OnStart(_ context.Context, op *Operation) {
	h.Stats.Incr(op.Name+".start", 1, op.Tags)
}

func (h StatsHook) OnSuccess(_ context.Context, op *Operation) {
	h.Stats.Incr(op.Name+".end", 1, op.Tags)
}

func (h StatsHook) OnFailure(_ context.Context, op *Operation) {
	h.Stats.Incr(op.Name+".end", 1, op.Tags.With("error:true", Tag("reason", op.Name)))
}

// DurationHook records {name}.duration in milliseconds.
type DurationHook struct {
	Stats StatsClient
}

func (DurationHook) OnStart(context.Context, *Operation) {}

func (h DurationHook) OnSuccess(_ context.Context, op *Operation) {
	h.Stats.Histogram(op.Name+".duration", float64(op.Duration.Milliseconds()), op.Tags)
}

func (h DurationHook) OnFailure(_ context.Context, op *Operation) {
	h.Stats.Histogram(op.Name+".duration", float64(op.Duration.Milliseconds()), op.Tags.With("error:true"))
}
