package channel

import (
	"context"
	"net/url"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/webhook"
	"go.uber.org/zap"
)

// DefaultFragment is appended to delivery callbacks unless the workspace overrides it.
const DefaultFragment = "rp=all&rc=5"

var smsTemplateTypes = []content.TemplateType{content.TypeText, content.TypeMedia}

type SMS struct {
	deps *Deps
}

func NewSMS(d *Deps) *SMS { return &SMS{deps: d.withDefaults()} }

func (s *SMS) Channel() model.Channel { return model.ChannelSMS }

func (s *SMS) Send(ctx context.Context, req model.Request) (*Result, error) {
	var p model.SMSPayload
	if err := decode(s.deps, req, &p); err != nil {
		return nil, err
	}
	extra := []zap.Field{
		zap.String("from", p.From),
		zap.String("content_sid", p.ContentSID),
	}
	return run(ctx, s.deps, s.Channel(), req, &p.Payload, extra, func(ctx context.Context, x *execution) (*Result, error) {
		return s.send(ctx, x, &p)
	})
}

func (s *SMS) send(ctx context.Context, x *execution, p *model.SMSPayload) (*Result, error) {
	eval := sendability.Evaluate(&p.Payload, sendability.Options{
		Predicate:     sendability.PhoneChannel("sms"),
		MissingStatus: sendability.NoSenderPhone,
	})
	if eval.Status != sendability.ShouldSend {
		return x.notSent(ctx, eval), nil
	}

	body, media, err := x.resolveBody(ctx, p.ContentSID, p.Body, p.Media, smsTemplateTypes)
	if err != nil {
		return nil, err
	}
	rendered, err := x.render(ctx, content.Content{"body": body, "media": media})
	if err != nil {
		return nil, err
	}

	callback, err := webhook.Build(x.settings, p.CustomArgs, eval.Winner.Type, eval.Address, DefaultFragment)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("Body", contentString(rendered, "body"))
	form.Set("From", p.From)
	form.Set("To", eval.Address)
	if p.ShortenURLs {
		form.Set("ShortenUrls", "true")
	}
	for _, m := range contentStrings(rendered, "media") {
		if m = strings.TrimSpace(m); m != "" {
			form.Add("MediaUrl", m)
		}
	}
	if callback != "" {
		form.Set("StatusCallback", callback)
	}

	res, err := x.post(ctx, "twilio", "twilio.messages.create", transport.Form(x.messagesURL(), form, x.twilioAuth()))
	if err != nil {
		return nil, err
	}
	x.recordDeliveryLatency(ctx)
	x.log.Info("message sent", zap.Int("status", res.Status))

	return &Result{
		Status:     sendability.ShouldSend,
		Deliveries: []Delivery{{Recipient: eval.Address, Response: res}},
	}, nil
}

func (x *execution) messagesURL() string {
	return twilioHost(x.settings, x.deps.Endpoints.Twilio) + "/2010-04-01/Accounts/" +
		url.PathEscape(x.settings.TwilioAccountSID) + "/Messages.json"
}
