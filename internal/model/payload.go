package model

// Payload holds the per-message fields shared by every channel.
type Payload struct {
	UserID          string         `json:"userId"`
	MessageID       string         `json:"messageId"`
	ExternalIDs     []ExternalID   `json:"externalIds"`
	Send            bool           `json:"send"`
	TraitEnrichment bool           `json:"traitEnrichment"`
	Traits          map[string]any `json:"traits"`
	CustomArgs      map[string]any `json:"customArgs"`
	EventOccurredTS string         `json:"eventOccurredTS"`
}

type SMSPayload struct {
	Payload
	From        string   `json:"from"`
	Body        string   `json:"body"`
	ContentSID  string   `json:"contentSid"`
	Media       []string `json:"media"`
	ShortenURLs bool     `json:"shortenUrls"`
}

type WhatsAppPayload struct {
	Payload
	From             string            `json:"from"`
	ContentSID       string            `json:"contentSid"`
	ContentVariables map[string]string `json:"contentVariables"`
}

type TapActionButton struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	OnTap string `json:"onTap"`
	Link  string `json:"link,omitempty"`
}

type PushPayload struct {
	Payload
	From             string            `json:"from"` // Notify service SID
	ContentSID       string            `json:"contentSid"`
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	Media            []string          `json:"media"`
	Sound            string            `json:"sound"`
	Priority         string            `json:"priority"`
	TimeToLive       int               `json:"ttl"`
	Badge            int               `json:"badgeAmount"`
	TapAction        string            `json:"tapAction"`
	Link             string            `json:"link"`
	TapActionButtons []TapActionButton `json:"tapActionButtons"`
	CustomData       map[string]any    `json:"customizations"`
}

type EmailPayload struct {
	Payload
	FromEmail          string   `json:"fromEmail"`
	FromName           string   `json:"fromName"`
	ReplyToEmail       string   `json:"replyToEmail"`
	ReplyToName        string   `json:"replyToName"`
	BCC                []string `json:"bcc"`
	Subject            string   `json:"subject"`
	PreviewText        string   `json:"previewText"`
	Body               string   `json:"body"`
	BodyURL            string   `json:"bodyUrl"`
	BodyType           string   `json:"bodyType"` // html | design
	GroupID            string   `json:"groupId"`
	BypassSubscription bool     `json:"byPassSubscription"`
	IPPool             string   `json:"ipPool"`
}
