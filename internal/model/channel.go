package model

import "strings"

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelEmail    Channel = "email"
)

func (c Channel) String() string { return string(c) }

// ParseChannel normalizes input; returns (value, true) if it names a known channel.
func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelEmail:
		return true
	default:
		return false
	}
}
