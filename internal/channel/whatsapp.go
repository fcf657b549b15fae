package channel

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"github.com/jmehdipour/engage-dispatch/internal/webhook"
	"go.uber.org/zap"
)

const (
	CodeInvalidPhone      = "INVALID_PHONE_NUMBER"
	CodeMissingContentSID = "MISSING_CONTENT_SID"

	whatsAppPrefix = "whatsapp:"
)

type WhatsApp struct {
	deps *Deps
}

func NewWhatsApp(d *Deps) *WhatsApp { return &WhatsApp{deps: d.withDefaults()} }

func (w *WhatsApp) Channel() model.Channel { return model.ChannelWhatsApp }

func (w *WhatsApp) Send(ctx context.Context, req model.Request) (*Result, error) {
	var p model.WhatsAppPayload
	if err := decode(w.deps, req, &p); err != nil {
		return nil, err
	}
	extra := []zap.Field{
		zap.String("from", p.From),
		zap.String("content_sid", p.ContentSID),
	}
	return run(ctx, w.deps, w.Channel(), req, &p.Payload, extra, func(ctx context.Context, x *execution) (*Result, error) {
		return w.send(ctx, x, &p)
	})
}

func (w *WhatsApp) send(ctx context.Context, x *execution, p *model.WhatsAppPayload) (*Result, error) {
	eval := sendability.Evaluate(&p.Payload, sendability.Options{
		Predicate:     sendability.PhoneChannel("whatsapp"),
		MissingStatus: sendability.NoSenderPhone,
	})
	if eval.Status != sendability.ShouldSend {
		return x.notSent(ctx, eval), nil
	}

	if p.ContentSID == "" {
		return nil, failure.Validation("a content template is required to send whatsapp messages", CodeMissingContentSID)
	}

	to, err := whatsAppAddress(eval.Address)
	if err != nil {
		return nil, err
	}
	from, err := whatsAppAddress(p.From)
	if err != nil {
		return nil, err
	}

	vars := make(content.Content, len(p.ContentVariables))
	for k, v := range p.ContentVariables {
		vars[k] = v
	}
	rendered, err := x.render(ctx, vars)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(rendered)
	if err != nil {
		return nil, failure.Validation("invalid content variables", CodeInvalidPayload).WithCause(err)
	}

	callback, err := webhook.Build(x.settings, p.CustomArgs, eval.Winner.Type, eval.Address, DefaultFragment)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("ContentSid", p.ContentSID)
	form.Set("ContentVariables", string(encoded))
	form.Set("From", from)
	form.Set("To", to)
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
		Deliveries: []Delivery{{Recipient: to, Response: res}},
	}, nil
}

func whatsAppAddress(raw string) (string, error) {
	e164, err := util.FormatE164(raw)
	if err != nil {
		return "", failure.Validation("the phone number "+util.Redact(raw)+" is not a valid phone number", CodeInvalidPhone).WithCause(err)
	}
	return whatsAppPrefix + e164, nil
}
