package content

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jane = model.Profile{UserID: "u1", Traits: map[string]any{"name": "Jane"}}

func TestRender(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("Hello {{profile.traits.name}}", jane)
	require.NoError(t, err)
	assert.Equal(t, "Hello Jane", got)

	got, err = r.Render("Hi {{ profile.traits.missing | default: 'friend' }}", jane)
	require.NoError(t, err)
	assert.Equal(t, "Hi friend", got)

	_, err = r.Render("Hello {{profile.traits.name", jane)
	assert.Error(t, err)

	_, err = r.Render("{% if profile.traits.name %}x", jane)
	assert.Error(t, err)
}

func TestRenderContent(t *testing.T) {
	r := NewRenderer()
	log := tracker.NewLogger(nil, tracker.Runtime{})
	in := Content{
		"body":  "Hello {{profile.traits.name}}",
		"media": []string{"https://cdn.example.com/{{profile.user_id}}.png"},
		"title": nil,
	}

	out, err := r.RenderContent(context.Background(), log, model.ChannelSMS, in, jane)
	require.NoError(t, err)
	assert.Equal(t, "Hello Jane", out["body"])
	assert.Equal(t, []string{"https://cdn.example.com/u1.png"}, out["media"])
	assert.Nil(t, out["title"])
	assert.Equal(t, "Hello {{profile.traits.name}}", in["body"], "input is untouched")
}

func TestRenderContentInvalidLiquid(t *testing.T) {
	r := NewRenderer()
	log := tracker.NewLogger(nil, tracker.Runtime{})

	_, err := r.RenderContent(context.Background(), log, model.ChannelSMS, Content{"body": "Hello {{profile.traits.name"}, jane)
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindValidation, fe.Kind)
	assert.Equal(t, "unable to parse templating in sms", fe.Message)
	assert.Contains(t, fe.Tags, "reason:invalid_liquid")
}

func TestCheckDelimiters(t *testing.T) {
	assert.NoError(t, checkDelimiters("plain"))
	assert.NoError(t, checkDelimiters("{{a}} and {% if b %}c{% endif %}"))
	assert.Error(t, checkDelimiters("{{a}"))
	assert.Error(t, checkDelimiters("{{ a {{ b }}"))
	assert.Error(t, checkDelimiters("{% if a }}"))
}

func newResolver(t *testing.T) (*Resolver, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	tr := tracker.Default(nil, nil)
	return &Resolver{
		Requester:  transport.NewHTTPClient(&http.Client{Transport: mt}, transport.HTTPOpts{}),
		BaseURL:    "https://content.twilio.com",
		Username:   "SK1",
		Password:   "secret",
		Tracker:    tr,
		Classifier: failure.NewClassifier(tr),
	}, mt
}

var smsTypes = []TemplateType{TypeText, TypeMedia}

func TestFetchFirstTypeInDocumentOrder(t *testing.T) {
	r, mt := newResolver(t)
	mt.RegisterResponder(http.MethodGet, "https://content.twilio.com/v1/Content/HX1",
		httpmock.NewStringResponder(200, `{"sid":"HX1","types":{"twilio/media":{"body":"Hi {{profile.traits.name}}","media":["https://x/y.png"]},"twilio/text":{"body":"text"}}}`))

	tpl, err := r.Fetch(context.Background(), "HX1", smsTypes)
	require.NoError(t, err)
	assert.Equal(t, TypeMedia, tpl.Type)
	assert.Equal(t, "Hi {{profile.traits.name}}", tpl.Body)
	assert.Equal(t, []string{"https://x/y.png"}, tpl.Media)
}

func TestFetchUnsupportedType(t *testing.T) {
	r, mt := newResolver(t)
	mt.RegisterResponder(http.MethodGet, "https://content.twilio.com/v1/Content/HX2",
		httpmock.NewStringResponder(200, `{"types":{"unsupported/type":{"body":"x"}}}`))

	_, err := r.Fetch(context.Background(), "HX2", smsTypes)
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnsupportedType, fe.Code)
	assert.Equal(t, 400, fe.Status)
	assert.Contains(t, fe.Message, "'unsupported/type'")
}

func TestFetchMissingTypes(t *testing.T) {
	r, mt := newResolver(t)
	mt.RegisterResponder(http.MethodGet, "https://content.twilio.com/v1/Content/HX3",
		httpmock.NewStringResponder(200, `{"sid":"HX3"}`))

	_, err := r.Fetch(context.Background(), "HX3", smsTypes)
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoContentTypes, fe.Code)
}

func TestFetchTransportFailure(t *testing.T) {
	r, mt := newResolver(t)
	mt.RegisterResponder(http.MethodGet, "https://content.twilio.com/v1/Content/HX4",
		httpmock.NewStringResponder(404, `{"code":20404,"message":"The requested resource was not found"}`))

	_, err := r.Fetch(context.Background(), "HX4", smsTypes)
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeFetchFailure, fe.Code)
	assert.Equal(t, 500, fe.Status)
}
