package tracker

import (
	"context"
	"time"
)

// Operation is the context of one tracked unit of work.
type Operation struct {
	Name     string
	Tags     Tags
	Logs     []string
	Start    time.Time
	Duration time.Duration
	Err      error
	Result   any

	parent *Operation
}

func (o *Operation) AddTags(tags ...string) {
	o.Tags = o.Tags.With(tags...)
}

func (o *Operation) Log(msg string) {
	o.Logs = append(o.Logs, msg)
}

func (o *Operation) Parent() *Operation { return o.parent }

type ctxKey struct{}

// FromContext returns the innermost tracked operation, or nil.
func FromContext(ctx context.Context) *Operation {
	op, _ := ctx.Value(ctxKey{}).(*Operation)
	return op
}

// AddTags tags the innermost tracked operation, if any.
func AddTags(ctx context.Context, tags ...string) {
	if op := FromContext(ctx); op != nil {
		op.AddTags(tags...)
	}
}

// Log appends msg to the innermost operation's logs. The failure log hook
// prints them.
func Log(ctx context.Context, msg string) {
	if op := FromContext(ctx); op != nil {
		op.Log(msg)
	}
}

// CurrentTags returns a copy of the innermost operation's tags.
func CurrentTags(ctx context.Context) Tags {
	if op := FromContext(ctx); op != nil {
		return op.Tags.With()
	}
	return nil
}
