package model

// Profile is the recipient context templates are rendered against.
type Profile struct {
	UserID string         `json:"user_id"`
	Email  string         `json:"email,omitempty"`
	Phone  string         `json:"phone,omitempty"`
	Traits map[string]any `json:"traits"`
}
