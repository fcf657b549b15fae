package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
)

type TemplateType string

const (
	TypeText         TemplateType = "twilio/text"
	TypeMedia        TemplateType = "twilio/media"
	TypeQuickReply   TemplateType = "twilio/quick-reply"
	TypeCallToAction TemplateType = "twilio/call-to-action"
	TypeCard         TemplateType = "twilio/card"
)

const (
	CodeFetchFailure    = "CONTENT_FETCH_FAILURE"
	CodeNoContentTypes  = "NO_CONTENT_TYPES"
	CodeUnsupportedType = "UNSUPPORTED_CONTENT_TYPE"
)

type Template struct {
	Type  TemplateType
	Body  string
	Media []string
}

// Resolver fetches content templates from the Content API.
type Resolver struct {
	Requester  transport.Requester
	BaseURL    string
	Username   string
	Password   string
	Tracker    *tracker.Tracker
	Classifier *failure.Classifier
}

// Fetch loads template sid and returns the body and media of its first type,
// which must be one of allowed.
func (r *Resolver) Fetch(ctx context.Context, sid string, allowed []TemplateType) (Template, error) {
	return tracker.Track(ctx, r.Tracker, "content.fetch", func(ctx context.Context, op *tracker.Operation) (Template, error) {
		op.AddTags(tracker.Tag("content_sid", sid))

		endpoint := strings.TrimRight(r.BaseURL, "/") + "/v1/Content/" + url.PathEscape(sid)
		res, err := r.Requester.Do(ctx, transport.Request{
			Method: http.MethodGet,
			URL:    endpoint,
			Header: transport.BasicAuth(r.Username, r.Password),
		})
		if err != nil {
			cause := r.Classifier.Classify(ctx, err, "twilio_content")
			return Template{}, failure.Integration(
				fmt.Sprintf("unable to fetch content template %s", sid),
				CodeFetchFailure, http.StatusInternalServerError,
			).WithCause(cause)
		}

		name, raw, err := firstType(res.Body)
		if err != nil {
			return Template{}, failure.Integration(
				"content template does not contain any template types",
				CodeNoContentTypes, http.StatusBadRequest,
			).WithCause(err)
		}

		typ := TemplateType(name)
		if !contains(allowed, typ) {
			return Template{}, failure.Integration(
				fmt.Sprintf("sending templates with '%s' content type is not supported", typ),
				CodeUnsupportedType, http.StatusBadRequest,
			)
		}

		var body struct {
			Body  string   `json:"body"`
			Media []string `json:"media"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return Template{}, failure.Integration(
				fmt.Sprintf("content type '%s' has an unexpected shape", typ),
				CodeNoContentTypes, http.StatusBadRequest,
			).WithCause(err)
		}

		return Template{Type: typ, Body: body.Body, Media: body.Media}, nil
	})
}

func contains(allowed []TemplateType, t TemplateType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// firstType returns the first key of the "types" object in document order.
func firstType(body []byte) (string, json.RawMessage, error) {
	var env struct {
		Types json.RawMessage `json:"types"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", nil, fmt.Errorf("decode content: %w", err)
	}
	if len(env.Types) == 0 || bytes.Equal(env.Types, []byte("null")) {
		return "", nil, fmt.Errorf("missing types")
	}

	dec := json.NewDecoder(bytes.NewReader(env.Types))
	tok, err := dec.Token()
	if err != nil {
		return "", nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return "", nil, fmt.Errorf("types is not an object")
	}
	if !dec.More() {
		return "", nil, fmt.Errorf("types is empty")
	}

	keyTok, err := dec.Token()
	if err != nil {
		return "", nil, err
	}
	key, _ := keyTok.(string)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", nil, err
	}
	return key, raw, nil
}
