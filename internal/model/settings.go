package model

const DefaultRegion = "us-west-1"

// Settings is the per-workspace configuration for one invocation. It is never mutated.
type Settings struct {
	SpaceID               string `json:"spaceId"               db:"space_id"                validate:"required"`
	SourceID              string `json:"sourceId"              db:"source_id"               validate:"required"`
	TwilioAccountSID      string `json:"twilioAccountSID"      db:"twilio_account_sid"`
	TwilioAPIKeySID       string `json:"twilioApiKeySID"       db:"twilio_api_key_sid"`
	TwilioAPIKeySecret    string `json:"twilioApiKeySecret"    db:"twilio_api_key_secret"`
	TwilioHostname        string `json:"twilioHostname"        db:"twilio_hostname"`
	SendGridAPIKey        string `json:"sendGridApiKey"        db:"sendgrid_api_key"`
	ProfileAPIEnvironment string `json:"profileApiEnvironment" db:"profile_api_environment"`
	ProfileAPIAccessToken string `json:"profileApiAccessToken" db:"profile_api_access_token"`
	Region                string `json:"region"                db:"region"`
	WebhookURL            string `json:"webhookUrl"            db:"webhook_url"`
	ConnectionOverrides   string `json:"connectionOverrides"   db:"connection_overrides"`
}

// WithDefaults returns a copy with the region defaulted.
func (s Settings) WithDefaults() Settings {
	if s.Region == "" {
		s.Region = DefaultRegion
	}
	return s
}
