package dispatcher

import (
	"context"
	"fmt"

	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
)

const CodeUnknownChannel = "UNKNOWN_CHANNEL"

// Dispatcher routes a request to the sender of its channel.
type Dispatcher struct {
	senders map[model.Channel]channel.Sender
}

func NewDispatcher(senders ...channel.Sender) *Dispatcher {
	d := &Dispatcher{senders: make(map[model.Channel]channel.Sender, len(senders))}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}

	return d
}

func (d *Dispatcher) Channels() []model.Channel {
	out := make([]model.Channel, 0, len(d.senders))
	for _, ch := range []model.Channel{model.ChannelSMS, model.ChannelWhatsApp, model.ChannelPush, model.ChannelEmail} {
		if _, ok := d.senders[ch]; ok {
			out = append(out, ch)
		}
	}

	return out
}

func (d *Dispatcher) Dispatch(ctx context.Context, req model.Request) (*channel.Result, error) {
	ch, ok := model.ParseChannel(req.Channel.String())
	if !ok {
		return nil, failure.Validation(fmt.Sprintf("unknown channel %q", req.Channel), CodeUnknownChannel)
	}

	s, ok := d.senders[ch]
	if !ok {
		return nil, failure.Validation(fmt.Sprintf("channel %q is not enabled", ch), CodeUnknownChannel)
	}
	req.Channel = ch

	return s.Send(ctx, req)
}
