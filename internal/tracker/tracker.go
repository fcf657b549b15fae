package tracker

import (
	"context"
	"time"
)

// Hook observes the lifecycle of tracked operations.
type Hook interface {
	OnStart(ctx context.Context, op *Operation)
	OnSuccess(ctx context.Context, op *Operation)
	OnFailure(ctx context.Context, op *Operation)
}

// Tracker runs units of work through an ordered hook chain.
type Tracker struct {
	hooks []Hook
	log   *Logger
	stats StatsClient
	now   func() time.Time
}

func New(log *Logger, stats StatsClient, hooks ...Hook) *Tracker {
	if stats == nil {
		stats = NopStats{}
	}
	if log == nil {
		log = NewLogger(nil, Runtime{})
	}
	return &Tracker{hooks: hooks, log: log, stats: stats, now: time.Now}
}

// Default builds a tracker with the log, stats and duration hooks.
func Default(log *Logger, stats StatsClient) *Tracker {
	t := New(log, stats)
	t.hooks = []Hook{LogHook{Log: t.log}, StatsHook{Stats: t.stats}, DurationHook{Stats: t.stats}}
	return t
}

// With returns a copy of t with extra hooks appended.
func (t *Tracker) With(hooks ...Hook) *Tracker {
	cp := *t
	cp.hooks = append(append([]Hook(nil), t.hooks...), hooks...)
	return &cp
}

func (t *Tracker) Log() *Logger       { return t.log }
func (t *Tracker) Stats() StatsClient { return t.stats }

// Track runs fn as the operation name. A nested call starts from a copy of the
// enclosing operation's tags.
func Track[T any](ctx context.Context, t *Tracker, name string, fn func(context.Context, *Operation) (T, error)) (T, error) {
	op := &Operation{Name: name, Start: t.now()}
	if parent := FromContext(ctx); parent != nil {
		op.parent = parent
		op.Tags = parent.Tags.With()
	}
	ctx = context.WithValue(ctx, ctxKey{}, op)

	for _, h := range t.hooks {
		h.OnStart(ctx, op)
	}

	res, err := fn(ctx, op)
	op.Duration = t.now().Sub(op.Start)

	if err != nil {
		op.Err = err
		for _, h := range t.hooks {
			h.OnFailure(ctx, op)
		}
		return res, err
	}

	op.Result = res
	for _, h := range t.hooks {
		h.OnSuccess(ctx, op)
	}
	return res, nil
}

// Wrap returns fn as a callable that is tracked on every call.
func Wrap[A, T any](t *Tracker, name string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		return Track(ctx, t, name, func(ctx context.Context, _ *Operation) (T, error) {
			return fn(ctx, arg)
		})
	}
}
