package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SubscriptionStatus is a lower-cased subscription state. The wire value may be
// a string, a boolean or null.
type SubscriptionStatus string

func (s SubscriptionStatus) String() string { return string(s) }

func (s *SubscriptionStatus) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = NormalizeSubscriptionStatus(v)
	return nil
}

// NormalizeSubscriptionStatus stringifies and lower-cases a raw status value.
func NormalizeSubscriptionStatus(v any) SubscriptionStatus {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return SubscriptionStatus(strings.ToLower(strings.TrimSpace(t)))
	default:
		return SubscriptionStatus(strings.ToLower(fmt.Sprint(t)))
	}
}

type GroupSubscription struct {
	ID           string `json:"id"`
	IsSubscribed bool   `json:"isSubscribed"`
}

// ExternalID is one recipient identity attached to a profile.
type ExternalID struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	ChannelType        string              `json:"channelType,omitempty"`
	SubscriptionStatus SubscriptionStatus  `json:"subscriptionStatus,omitempty"`
	Groups             []GroupSubscription `json:"groups,omitempty"`
}

// SubscribedTo reports whether the identity has an explicit subscription to groupID.
func (e ExternalID) SubscribedTo(groupID string) bool {
	for _, g := range e.Groups {
		if g.ID == groupID {
			return g.IsSubscribed
		}
	}
	return false
}
