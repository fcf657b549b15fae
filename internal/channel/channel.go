// Package channel implements the SMS, WhatsApp, Push and Email senders.
//
// Every sender runs the same lifecycle: decode the payload, populate a redacted
// log context, then run the channel-specific send inside a tracked operation.
// A message that must not be sent is a normal outcome and is reported through
// Result.Status, not as an error.
package channel

import (
	"context"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/profile"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"go.uber.org/zap"
)

type Sender interface {
	Channel() model.Channel
	Send(ctx context.Context, req model.Request) (*Result, error)
}

// Delivery is the outcome of one provider call, in recipient order.
type Delivery struct {
	Recipient string
	Response  *transport.Response
	Err       error
}

type Result struct {
	Channel    model.Channel
	MessageID  string
	Status     sendability.Status
	Deliveries []Delivery
}

type Endpoints struct {
	Twilio   string
	Content  string
	Notify   string
	SendGrid string
	Profile  profile.Endpoints
}

// Deps are the long-lived collaborators shared by every invocation.
type Deps struct {
	Requester      transport.Requester
	Logger         *zap.Logger
	Stats          tracker.StatsClient
	Endpoints      Endpoints
	Renderer       *content.Renderer
	VerboseFlag    string
	TrustedCallers []string
	Now            func() time.Time
}

func (d *Deps) withDefaults() *Deps {
	cp := *d
	if cp.Logger == nil {
		cp.Logger = zap.NewNop()
	}
	if cp.Stats == nil {
		cp.Stats = tracker.NopStats{}
	}
	if cp.Renderer == nil {
		cp.Renderer = content.NewRenderer()
	}
	if cp.Now == nil {
		cp.Now = time.Now
	}
	return &cp
}

// NewSenders builds the closed set of channel senders.
func NewSenders(d *Deps) []Sender {
	return []Sender{NewSMS(d), NewWhatsApp(d), NewPush(d), NewEmail(d)}
}
