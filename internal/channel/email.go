package channel

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/content"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"github.com/jmehdipour/engage-dispatch/internal/webhook"
	"go.uber.org/zap"
)

const CodeBodyFetchFailure = "BODY_FETCH_FAILURE"

type Email struct {
	deps *Deps
}

func NewEmail(d *Deps) *Email { return &Email{deps: d.withDefaults()} }

func (e *Email) Channel() model.Channel { return model.ChannelEmail }

func (e *Email) Send(ctx context.Context, req model.Request) (*Result, error) {
	var p model.EmailPayload
	if err := decode(e.deps, req, &p); err != nil {
		return nil, err
	}
	extra := []zap.Field{
		zap.String("from", util.Redact(p.FromEmail)),
		zap.String("group_id", p.GroupID),
		zap.Bool("bypass_subscription", p.BypassSubscription),
	}
	return run(ctx, e.deps, e.Channel(), req, &p.Payload, extra, func(ctx context.Context, x *execution) (*Result, error) {
		return e.send(ctx, x, &p)
	})
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To         []sgAddress       `json:"to"`
	BCC        []sgAddress       `json:"bcc,omitempty"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	ASM              *struct {
		GroupID int `json:"group_id"`
	} `json:"asm,omitempty"`
	MailSettings *sgMailSettings `json:"mail_settings,omitempty"`
	IPPoolName   string          `json:"ip_pool_name,omitempty"`
}

type sgMailSettings struct {
	BypassListManagement struct {
		Enable bool `json:"enable"`
	} `json:"bypass_list_management"`
}

func (e *Email) send(ctx context.Context, x *execution, p *model.EmailPayload) (*Result, error) {
	eval := sendability.Evaluate(&p.Payload, sendability.Options{
		Predicate:          sendability.Email(),
		GroupID:            p.GroupID,
		BypassSubscription: p.BypassSubscription,
	})
	if eval.Status != sendability.ShouldSend {
		return x.notSent(ctx, eval), nil
	}

	body, err := e.body(ctx, x, p)
	if err != nil {
		return nil, err
	}
	rendered, err := x.render(ctx, content.Content{
		"subject":     p.Subject,
		"previewText": p.PreviewText,
		"body":        body,
	})
	if err != nil {
		return nil, err
	}

	htmlBody := withPreheader(contentString(rendered, "body"), contentString(rendered, "previewText"))
	mail := sgMail{
		Personalizations: []sgPersonalization{{
			To:         []sgAddress{{Email: eval.Address}},
			BCC:        bccList(p.BCC),
			CustomArgs: customArgs(x.settings, p, eval.Winner),
		}},
		From:    sgAddress{Email: p.FromEmail, Name: p.FromName},
		Subject: contentString(rendered, "subject"),
		Content: []sgContent{
			{Type: "text/plain", Value: plainText(htmlBody)},
			{Type: "text/html", Value: htmlBody},
		},
		IPPoolName: p.IPPool,
	}
	if p.ReplyToEmail != "" {
		mail.ReplyTo = &sgAddress{Email: p.ReplyToEmail, Name: p.ReplyToName}
	}
	if p.BypassSubscription {
		mail.MailSettings = &sgMailSettings{}
		mail.MailSettings.BypassListManagement.Enable = true
	} else if p.GroupID != "" {
		gid, err := strconv.Atoi(p.GroupID)
		if err != nil {
			return nil, failure.Validation("group id must be numeric", CodeInvalidPayload).WithCause(err)
		}
		mail.ASM = &struct {
			GroupID int `json:"group_id"`
		}{GroupID: gid}
	}

	req, err := transport.JSON(http.MethodPost, strings.TrimRight(x.deps.Endpoints.SendGrid, "/")+"/v3/mail/send",
		mail, transport.BearerAuth(x.settings.SendGridAPIKey))
	if err != nil {
		return nil, failure.Validation("invalid email payload", CodeInvalidPayload).WithCause(err)
	}

	res, err := x.post(ctx, "sendgrid", "sendgrid.mail.send", req)
	if err != nil {
		return nil, err
	}
	x.recordDeliveryLatency(ctx)
	x.log.Info("email sent", zap.Int("status", res.Status))

	return &Result{
		Status:     sendability.ShouldSend,
		Deliveries: []Delivery{{Recipient: eval.Address, Response: res}},
	}, nil
}

// body returns the inline body, or downloads it from BodyURL.
func (e *Email) body(ctx context.Context, x *execution, p *model.EmailPayload) (string, error) {
	if p.BodyURL == "" {
		if p.Body == "" {
			return "", failure.Validation("unable to send email without a body", CodeMissingBody)
		}
		return p.Body, nil
	}

	return tracker.Track(ctx, x.tracker, "email.body.fetch", func(ctx context.Context, _ *tracker.Operation) (string, error) {
		res, err := x.deps.Requester.Do(ctx, transport.Request{Method: http.MethodGet, URL: p.BodyURL})
		if err != nil {
			cause := x.classifier.Classify(ctx, err, "email_body")
			return "", failure.Integration("unable to download email body", CodeBodyFetchFailure, failure.StatusOf(cause)).WithCause(cause)
		}
		return string(res.Body), nil
	})
}

func bccList(in []string) []sgAddress {
	var out []sgAddress
	for _, addr := range in {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, sgAddress{Email: addr})
		}
	}
	return out
}

func customArgs(s model.Settings, p *model.EmailPayload, winner *model.ExternalID) map[string]string {
	args := util.StringifyMap(p.CustomArgs)
	args["source_id"] = s.SourceID
	args["space_id"] = s.SpaceID
	args["user_id"] = p.UserID
	args["message_id"] = p.MessageID
	if winner != nil {
		args[webhook.ParamExternalIDKey] = winner.Type
		args[webhook.ParamExternalIDValue] = winner.ID
	}
	return args
}

var bodyOpenTag = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)

const preheaderTemplate = `<div style="display:none;max-height:0;overflow:hidden;mso-hide:all">%s</div>`

// withPreheader injects the preview text as hidden content right after <body>.
func withPreheader(body, preview string) string {
	if preview == "" {
		return body
	}
	hidden := fmt.Sprintf(preheaderTemplate, html.EscapeString(preview))
	if loc := bodyOpenTag.FindStringIndex(body); loc != nil {
		at := loc[1]
		return body[:at] + hidden + body[at:]
	}
	return hidden + body
}

// plainText strips tags for the text/plain alternative.
func plainText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}
