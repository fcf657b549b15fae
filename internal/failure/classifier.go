package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"go.uber.org/zap"
)

// RateLimitedCode is the provider error code for "Too Many Requests".
const RateLimitedCode = "20429"

const (
	CodeTransport   = "ETRANSPORT"
	CodeCircuitOpen = "ECIRCUITOPEN"
	CodeTimeout     = "ETIMEDOUT"
)

type Classifier struct {
	t *tracker.Tracker
}

func NewClassifier(t *tracker.Tracker) *Classifier {
	return &Classifier{t: t}
}

// RecordResponse tags the current operation with the provider status and
// counts the response.
func (c *Classifier) RecordResponse(ctx context.Context, apiName string, status int) tracker.Tags {
	tag := tracker.Tag(apiName+"_status_code", status)
	tracker.AddTags(ctx, tag)
	tags := tracker.CurrentTags(ctx)
	if len(tags) == 0 {
		tags = tracker.Tags{tag}
	}
	c.t.Stats().Incr(apiName+".response", 1, tags)
	return tags
}

// Classify normalizes err into a *Error. Errors that are already classified
// pass through untouched.
func (c *Classifier) Classify(ctx context.Context, err error, apiName string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	var rerr *transport.ResponseError
	if errors.As(err, &rerr) {
		status := rerr.Response.Status
		code, message := parseProviderError(rerr.Response.Body)
		if code == "" {
			code = strconv.Itoa(status)
		}
		if message == "" {
			message = http.StatusText(status)
		}
		message = util.RedactPhones(message)

		tags := c.RecordResponse(ctx, apiName, status)
		if code == RateLimitedCode || status == http.StatusTooManyRequests {
			c.t.Stats().Incr("rate_limited", 1, tags)
		}

		c.t.Log().Error(apiName+" responded with an error",
			zap.Int("status", status),
			zap.String("code", code),
			zap.String("message", message),
			zap.Strings("tags", tags),
		)
		tracker.Log(ctx, fmt.Sprintf("%s %d %s: %s", apiName, status, code, message))

		return &Error{Kind: KindIntegration, Message: message, Code: code, Status: status, Tags: tags, Err: err}
	}

	code := CodeTransport
	switch {
	case errors.Is(err, transport.ErrCircuitOpen):
		code = CodeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	}
	message := util.RedactPhones(fmt.Sprintf("%s request failed: %v", apiName, err))

	c.t.Log().Error(apiName+" request failed", zap.String("code", code), zap.String("message", message))
	tracker.Log(ctx, message)

	return &Error{
		Kind:    KindIntegration,
		Message: message,
		Code:    code,
		Status:  http.StatusInternalServerError,
		Tags:    tracker.CurrentTags(ctx),
		Err:     err,
	}
}

// parseProviderError understands {code, message} and {errors:[{message}]} bodies.
func parseProviderError(body []byte) (code, message string) {
	var v struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", ""
	}

	if len(v.Code) > 0 {
		var s string
		if err := json.Unmarshal(v.Code, &s); err == nil {
			code = s
		} else {
			var n json.Number
			if err := json.Unmarshal(v.Code, &n); err == nil {
				code = n.String()
			}
		}
	}

	message = v.Message
	if message == "" && len(v.Errors) > 0 {
		message = v.Errors[0].Message
	}
	return code, message
}
