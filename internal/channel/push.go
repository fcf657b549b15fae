package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/webhook"
	"go.uber.org/zap"
)

var pushTemplateTypes = []content.TemplateType{content.TypeText, content.TypeMedia}

type Push struct {
	deps *Deps
}

func NewPush(d *Deps) *Push { return &Push{deps: d.withDefaults()} }

func (p *Push) Channel() model.Channel { return model.ChannelPush }

func (p *Push) Send(ctx context.Context, req model.Request) (*Result, error) {
	var pl model.PushPayload
	if err := decode(p.deps, req, &pl); err != nil {
		return nil, err
	}
	extra := []zap.Field{
		zap.String("service_sid", pl.From),
		zap.String("content_sid", pl.ContentSID),
	}
	return run(ctx, p.deps, p.Channel(), req, &pl.Payload, extra, func(ctx context.Context, x *execution) (*Result, error) {
		return p.send(ctx, x, &pl)
	})
}

func (p *Push) send(ctx context.Context, x *execution, pl *model.PushPayload) (*Result, error) {
	eval := sendability.EvaluateAll(&pl.Payload, sendability.Options{
		Predicate: sendability.PushDevice(),
	})
	if len(eval.InvalidStatuses) > 0 && eval.Status == sendability.ShouldSend {
		x.log.Info("skipping devices with an invalid subscription status",
			zap.Strings("invalid_statuses", eval.InvalidStatuses))
	}
	if eval.Status != sendability.ShouldSend {
		return x.notSent(ctx, eval), nil
	}

	body, media, err := x.resolveBody(ctx, pl.ContentSID, pl.Body, pl.Media, pushTemplateTypes)
	if err != nil {
		return nil, err
	}
	rendered, err := x.render(ctx, content.Content{
		"title": pl.Title,
		"body":  body,
		"media": media,
		"link":  pl.Link,
	})
	if err != nil {
		return nil, err
	}

	base := x.notifyURL(pl.From)
	deliveries := make([]Delivery, 0, len(eval.Winners))
	for _, device := range eval.Winners {
		d := Delivery{Recipient: device.ID}
		form, err := pushForm(x, pl, rendered, device)
		if err != nil {
			return nil, err
		}
		d.Response, d.Err = x.post(ctx, "twilio_notify", "twilio.notify.send", transport.Form(base, form, x.twilioAuth()),
			tracker.Tag("device_type", device.Type),
		)
		deliveries = append(deliveries, d)
	}

	res := &Result{Status: sendability.ShouldSend, Deliveries: deliveries}
	if err := aggregate(deliveries); err != nil {
		x.log.Error("push notification failed for every device", zap.Int("devices", len(deliveries)), zap.Error(err))
		return res, err
	}

	x.recordDeliveryLatency(ctx)
	x.log.Info("push notification sent", zap.Int("devices", len(deliveries)))
	return res, nil
}

// aggregate reduces per-device outcomes. Any success wins. When every device
// failed the batch is retryable only if each failure is a 500 or a 429.
func aggregate(deliveries []Delivery) error {
	var errs []error
	for _, d := range deliveries {
		if d.Err == nil {
			return nil
		}
		errs = append(errs, d.Err)
	}
	if len(errs) == 0 {
		return nil
	}

	retryable := true
	for _, err := range errs {
		switch failure.StatusOf(err) {
		case http.StatusInternalServerError, http.StatusTooManyRequests:
		default:
			retryable = false
		}
	}

	msg := fmt.Sprintf("failed to send push notification to %d device(s)", len(errs))
	if retryable {
		return failure.Retryable(msg, errs[0])
	}
	return failure.Fatal(msg, errs[0])
}

func pushForm(x *execution, pl *model.PushPayload, c content.Content, device model.ExternalID) (url.Values, error) {
	title := contentString(c, "title")
	body := contentString(c, "body")
	media := contentStrings(c, "media")

	custom := map[string]any{}
	for k, v := range pl.CustomData {
		custom[k] = v
	}
	if link := contentString(c, "link"); link != "" {
		custom["link"] = link
	}
	if pl.TapAction != "" {
		custom["tapAction"] = pl.TapAction
	}
	if len(pl.TapActionButtons) > 0 {
		custom["tapActionButtons"] = pl.TapActionButtons
	}
	if len(media) > 0 {
		custom["media"] = media
	}
	if pl.Badge != 0 {
		custom["badgeAmount"] = pl.Badge
	}

	platform := "fcm"
	if device.Type == "ios.push_token" {
		platform = "apn"
	}

	fcm := map[string]any{
		"data": map[string]any{"twi_title": title, "twi_body": body},
	}
	aps := map[string]any{"mutable-content": 1}
	if pl.Badge != 0 {
		aps["badge"] = pl.Badge
	}
	apn := map[string]any{"aps": aps}

	encoded := map[string]any{
		"Recipients": map[string][]string{platform: {device.ID}},
		"FcmPayload": fcm,
		"ApnPayload": apn,
		"CustomData": custom,
	}

	form := url.Values{}
	for field, v := range encoded {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, failure.Validation("invalid push payload", CodeInvalidPayload).WithCause(err)
		}
		form.Set(field, string(b))
	}
	form.Set("Body", body)
	if title != "" {
		form.Set("Title", title)
	}
	if pl.TapAction != "" {
		form.Set("Action", pl.TapAction)
	}
	if pl.Sound != "" {
		form.Set("Sound", pl.Sound)
	}
	if pl.Priority != "" {
		form.Set("Priority", pl.Priority)
	}
	if pl.TimeToLive > 0 {
		form.Set("TimeToLive", strconv.Itoa(pl.TimeToLive))
	}

	callback, err := webhook.Build(x.settings, pl.CustomArgs, device.Type, device.ID, DefaultFragment)
	if err != nil {
		return nil, err
	}
	if callback != "" {
		form.Set("DeliveryCallbackUrl", callback)
	}
	return form, nil
}

func (x *execution) notifyURL(serviceSID string) string {
	return twilioHost(x.settings, x.deps.Endpoints.Notify) + "/v1/Services/" + url.PathEscape(serviceSID) + "/Notifications"
}
