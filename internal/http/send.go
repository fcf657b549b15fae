package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/http/middleware"
	"github.com/jmehdipour/engage-dispatch/internal/metrics"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Dispatcher sends one request through its channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, req model.Request) (*channel.Result, error)
}

type sendReq struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"  validate:"required"`
	Features map[string]bool `json:"features"`
	Caller   string          `json:"caller"`
}

// DeliveryResp is one provider call as reported to API and CLI callers.
type DeliveryResp struct {
	Recipient string `json:"recipient"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendResp is the JSON view of a channel.Result.
type SendResp struct {
	Channel    string         `json:"channel"`
	MessageID  string         `json:"message_id"`
	Status     string         `json:"status"`
	Deliveries []DeliveryResp `json:"deliveries,omitempty"`
}

type ErrorResp struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func sendHandler(d Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ch, ok := model.ParseChannel(c.Param("channel"))
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown channel"})
		}

		var req sendReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, validationResponse(err))
		}

		// auth (set by APIKeyMiddleware)
		ws, ok := middleware.WorkspaceFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		if err := c.Validate(&ws.Settings); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, validationResponse(err))
		}

		res, err := d.Dispatch(c.Request().Context(), model.Request{
			ID:       req.ID,
			Channel:  ch,
			Settings: ws.Settings,
			Payload:  req.Payload,
			Features: req.Features,
			Caller:   req.Caller,
		})
		sent := res != nil && res.Status == sendability.ShouldSend
		metrics.MessagesTotal.WithLabelValues(metrics.Outcome(sent, err), ch.String()).Inc()

		if err != nil {
			status, body := ErrorResponse(err)
			if status >= http.StatusInternalServerError {
				log.Errorf("dispatch %s failed: %v", ch, err)
			}
			return c.JSON(status, body)
		}

		return c.JSON(http.StatusOK, ToSendResp(res))
	}
}

// ToSendResp flattens delivery errors to strings and drops raw provider bodies.
func ToSendResp(res *channel.Result) SendResp {
	out := SendResp{
		Channel:   res.Channel.String(),
		MessageID: res.MessageID,
		Status:    res.Status.String(),
	}
	for _, d := range res.Deliveries {
		dr := DeliveryResp{Recipient: d.Recipient}
		if d.Response != nil {
			dr.Status = d.Response.Status
		}
		if d.Err != nil {
			dr.Error = d.Err.Error()
		}
		out.Deliveries = append(out.Deliveries, dr)
	}
	return out
}

// ErrorResponse maps the failure taxonomy onto HTTP statuses.
func ErrorResponse(err error) (int, ErrorResp) {
	body := ErrorResp{Error: err.Error(), Retryable: failure.IsRetryable(err)}

	fe, ok := failure.As(err)
	if !ok {
		body.Kind = "internal"
		return http.StatusInternalServerError, body
	}
	body.Code = fe.Code
	body.Kind = fe.Kind.String()
	body.Error = fe.Message

	switch fe.Kind {
	case failure.KindValidation:
		return http.StatusBadRequest, body
	case failure.KindRetryable:
		return http.StatusServiceUnavailable, body
	case failure.KindFatal:
		return http.StatusUnprocessableEntity, body
	}

	if fe.Status >= 400 && fe.Status <= 599 {
		return fe.Status, body
	}
	return http.StatusBadGateway, body
}
