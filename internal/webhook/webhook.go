// Package webhook composes delivery-callback URLs.
package webhook

import (
	"fmt"
	"net/url"

	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/util"
)

const (
	ParamSpaceID         = "space_id"
	ParamExternalIDKey   = "__segment_internal_external_id_key__"
	ParamExternalIDValue = "__segment_internal_external_id_value__"

	CodeInvalidURL = "INVALID_WEBHOOK_URL"
)

// Build returns the callback URL for one recipient identity, or "" when no
// webhook is configured.
func Build(s model.Settings, customArgs map[string]any, externalIDType, externalIDValue, defaultFragment string) (string, error) {
	if s.WebhookURL == "" {
		return "", nil
	}

	u, err := url.Parse(s.WebhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return "", failure.Validation("invalid webhook url", CodeInvalidURL).WithCause(err)
	}

	q := u.Query()
	for k, v := range customArgs {
		q.Set(k, util.Stringify(v))
	}
	q.Set(ParamSpaceID, s.SpaceID)
	q.Set(ParamExternalIDKey, externalIDType)
	q.Set(ParamExternalIDValue, externalIDValue)
	u.RawQuery = q.Encode()

	u.Fragment = defaultFragment
	if s.ConnectionOverrides != "" {
		u.Fragment = s.ConnectionOverrides
	}
	return u.String(), nil
}
