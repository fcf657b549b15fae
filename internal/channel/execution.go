package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/profile"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"go.uber.org/zap"
)

const (
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeMissingBody    = "MISSING_BODY"
)

// execution is the state owned by a single invocation.
type execution struct {
	deps       *Deps
	channel    model.Channel
	settings   model.Settings
	payload    *model.Payload
	log        *tracker.Logger
	tracker    *tracker.Tracker
	classifier *failure.Classifier
	content    *content.Resolver
	profiles   *profile.Resolver
}

func runtimeOf(d *Deps, req model.Request) tracker.Runtime {
	return tracker.Runtime{
		Features:       req.Features,
		Caller:         req.Caller,
		VerboseFlag:    d.VerboseFlag,
		TrustedCallers: d.TrustedCallers,
	}
}

func decode(d *Deps, req model.Request, v any) error {
	if len(req.Payload) == 0 {
		return failure.Validation("payload is required", CodeInvalidPayload)
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		tracker.NewLogger(d.Logger, runtimeOf(d, req)).Error("invalid payload",
			zap.String("channel", req.Channel.String()), zap.Error(err))
		return failure.Validation("invalid payload", CodeInvalidPayload).WithCause(err)
	}
	return nil
}

// beforeSend builds the redacted log context of an invocation.
func beforeSend(ch model.Channel, s model.Settings, p *model.Payload, extra ...zap.Field) []zap.Field {
	ids := make([]string, 0, len(p.ExternalIDs))
	for _, id := range p.ExternalIDs {
		ids = append(ids, id.Type+":"+util.Redact(id.ID)+":"+id.SubscriptionStatus.String())
	}
	fields := []zap.Field{
		zap.String("channel", ch.String()),
		zap.String("message_id", p.MessageID),
		zap.String("user_id", p.UserID),
		zap.String("source_id", s.SourceID),
		zap.String("space_id", s.SpaceID),
		zap.String("region", s.Region),
		zap.Bool("send", p.Send),
		zap.Strings("external_ids", ids),
	}
	return append(fields, extra...)
}

func newExecution(d *Deps, ch model.Channel, req model.Request, p *model.Payload, fields []zap.Field) *execution {
	log := tracker.NewLogger(d.Logger, runtimeOf(d, req)).With(fields...)
	t := tracker.Default(log, d.Stats)
	cls := failure.NewClassifier(t)
	s := req.Settings.WithDefaults()

	return &execution{
		deps:       d,
		channel:    ch,
		settings:   s,
		payload:    p,
		log:        log,
		tracker:    t,
		classifier: cls,
		content: &content.Resolver{
			Requester:  d.Requester,
			BaseURL:    twilioHost(s, d.Endpoints.Content),
			Username:   twilioUser(s),
			Password:   s.TwilioAPIKeySecret,
			Tracker:    t,
			Classifier: cls,
		},
		profiles: &profile.Resolver{
			Requester:  d.Requester,
			Endpoints:  d.Endpoints.Profile,
			Tracker:    t,
			Classifier: cls,
		},
	}
}

// run is the shared send lifecycle.
func run(ctx context.Context, d *Deps, ch model.Channel, req model.Request, p *model.Payload,
	extra []zap.Field, doSend func(context.Context, *execution) (*Result, error),
) (*Result, error) {
	if p.MessageID == "" {
		p.MessageID = req.ID
	}
	if p.MessageID == "" {
		p.MessageID = util.NewID()
	}

	x := newExecution(d, ch, req, p, beforeSend(ch, req.Settings.WithDefaults(), p, extra...))

	return tracker.Track(ctx, x.tracker, ch.String()+".send", func(ctx context.Context, op *tracker.Operation) (*Result, error) {
		op.AddTags(
			tracker.Tag("channel", ch),
			tracker.Tag("region", x.settings.Region),
		)
		res, err := doSend(ctx, x)
		if res != nil {
			res.Channel = ch
			res.MessageID = p.MessageID
		}
		return res, err
	})
}

// notSent reports a no-send decision. It is not an error.
func (x *execution) notSent(ctx context.Context, res sendability.Result) *Result {
	if res.Status == sendability.InvalidSubscriptionStatus {
		x.log.Info("invalid subscription status, not sending message",
			zap.Strings("invalid_statuses", res.InvalidStatuses))
	}
	x.log.Info("not sending message", zap.String("status", res.Status.String()))
	x.tracker.Stats().Incr("notsent", 1, tracker.CurrentTags(ctx).With(tracker.Tag("reason", res.Status)))
	return &Result{Status: res.Status}
}

// profile resolves the rendering context.
func (x *execution) profile(ctx context.Context) (model.Profile, error) {
	return x.profiles.Resolve(ctx, x.settings, x.payload)
}

func (x *execution) render(ctx context.Context, c content.Content) (content.Content, error) {
	prof, err := x.profile(ctx)
	if err != nil {
		return nil, err
	}
	return x.deps.Renderer.RenderContent(ctx, x.log, x.channel, c, prof)
}

// post issues one provider call as its own tracked operation.
func (x *execution) post(ctx context.Context, apiName, opName string, req transport.Request, tags ...string) (*transport.Response, error) {
	return tracker.Track(ctx, x.tracker, opName, func(ctx context.Context, op *tracker.Operation) (*transport.Response, error) {
		op.AddTags(tags...)
		res, err := x.deps.Requester.Do(ctx, req)
		if err != nil {
			return res, x.classifier.Classify(ctx, err, apiName)
		}
		x.classifier.RecordResponse(ctx, apiName, res.Status)
		return res, nil
	})
}

// recordDeliveryLatency emits the time between the triggering event and the
// provider accepting the message.
func (x *execution) recordDeliveryLatency(ctx context.Context) {
	ts := x.payload.EventOccurredTS
	if ts == "" {
		return
	}
	occurred, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return
	}
	latency := x.deps.Now().Sub(occurred)
	x.tracker.Stats().Histogram("eventDeliveryTS", float64(latency.Milliseconds()), tracker.CurrentTags(ctx))
}

func twilioUser(s model.Settings) string {
	if s.TwilioAPIKeySID != "" {
		return s.TwilioAPIKeySID
	}
	return s.TwilioAccountSID
}

func (x *execution) twilioAuth() http.Header {
	return transport.BasicAuth(twilioUser(x.settings), x.settings.TwilioAPIKeySecret)
}

// twilioHost honors the workspace's custom hostname for every Twilio API.
func twilioHost(s model.Settings, fallback string) string {
	if h := strings.TrimSpace(s.TwilioHostname); h != "" {
		if strings.Contains(h, "://") {
			return strings.TrimRight(h, "/")
		}
		return "https://" + strings.TrimRight(h, "/")
	}
	return strings.TrimRight(fallback, "/")
}

// resolveBody returns template content when sid is set, the inline fields otherwise.
func (x *execution) resolveBody(ctx context.Context, sid, body string, media []string, allowed []content.TemplateType) (string, []string, error) {
	if sid != "" {
		tpl, err := x.content.Fetch(ctx, sid, allowed)
		if err != nil {
			return "", nil, err
		}
		return tpl.Body, tpl.Media, nil
	}
	if body == "" && len(media) == 0 {
		return "", nil, failure.Validation("unable to send message without a body or content template", CodeMissingBody)
	}
	return body, media, nil
}

func contentString(c content.Content, key string) string {
	s, _ := c[key].(string)
	return s
}

func contentStrings(c content.Content, key string) []string {
	s, _ := c[key].([]string)
	return s
}
