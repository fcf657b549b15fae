package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/osteele/liquid"
	"go.uber.org/zap"
)

const CodeInvalidLiquid = "INVALID_LIQUID"

// Content maps field names to a string, a []string or nil.
type Content map[string]any

// Renderer renders Liquid placeholders against a recipient profile.
type Renderer struct {
	engine *liquid.Engine
}

func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

func bindings(p model.Profile) map[string]any {
	traits := p.Traits
	if traits == nil {
		traits = map[string]any{}
	}
	return map[string]any{
		"profile": map[string]any{
			"user_id": p.UserID,
			"email":   p.Email,
			"phone":   p.Phone,
			"traits":  traits,
		},
	}
}

// Render renders a single template string.
func (r *Renderer) Render(src string, p model.Profile) (string, error) {
	if !strings.Contains(src, "{") {
		return src, nil
	}
	if err := checkDelimiters(src); err != nil {
		return "", err
	}
	out, err := r.engine.ParseAndRenderString(src, bindings(p))
	if err != nil {
		return "", err
	}
	return out, nil
}

// RenderContent returns a rendered copy of c; the input is never modified.
func (r *Renderer) RenderContent(ctx context.Context, log *tracker.Logger, channel model.Channel, c Content, p model.Profile) (Content, error) {
	out := make(Content, len(c))
	for key, v := range c {
		switch t := v.(type) {
		case nil:
			out[key] = nil
		case string:
			s, err := r.Render(t, p)
			if err != nil {
				return nil, r.fail(ctx, log, channel, key, err)
			}
			out[key] = s
		case []string:
			items := make([]string, len(t))
			for i, item := range t {
				s, err := r.Render(item, p)
				if err != nil {
					return nil, r.fail(ctx, log, channel, key, err)
				}
				items[i] = s
			}
			out[key] = items
		default:
			out[key] = v
		}
	}
	return out, nil
}

func (r *Renderer) fail(ctx context.Context, log *tracker.Logger, channel model.Channel, field string, err error) error {
	log.Error("failed to parse templating",
		zap.String("channel", channel.String()),
		zap.String("field", field),
		zap.Error(err),
	)
	tracker.AddTags(ctx, "reason:invalid_liquid")
	tracker.Log(ctx, fmt.Sprintf("invalid liquid in %s %s: %v", channel, field, err))
	return failure.Validation(fmt.Sprintf("unable to parse templating in %s", channel), CodeInvalidLiquid).
		WithTags("reason:invalid_liquid").
		WithCause(err)
}

var delimiters = [...][2]string{{"{{", "}}"}, {"{%", "%}"}}

// checkDelimiters rejects unterminated or nested placeholder delimiters, which
// the Liquid parser would otherwise pass through as literal text.
func checkDelimiters(src string) error {
	pos := 0
	for pos < len(src) {
		at, open, closer := -1, "", ""
		for _, d := range delimiters {
			if i := strings.Index(src[pos:], d[0]); i >= 0 && (at < 0 || i < at) {
				at, open, closer = i, d[0], d[1]
			}
		}
		if at < 0 {
			return nil
		}

		start := pos + at + len(open)
		end := strings.Index(src[start:], closer)
		if end < 0 {
			return fmt.Errorf("unterminated %q at offset %d", open, pos+at)
		}
		if strings.Contains(src[start:start+end], open) {
			return fmt.Errorf("nested %q at offset %d", open, pos+at)
		}
		pos = start + end + len(closer)
	}
	return nil
}
