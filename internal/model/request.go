package model

import "encoding/json"

// Request is one self-contained dispatch invocation.
type Request struct {
	ID       string          `json:"id,omitempty"`
	Channel  Channel         `json:"channel"`
	Settings Settings        `json:"settings"`
	Payload  json.RawMessage `json:"payload"`
	Features map[string]bool `json:"features,omitempty"`
	Caller   string          `json:"caller,omitempty"`
}
