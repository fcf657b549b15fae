package profile

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/jmehdipour/engage-dispatch/internal/config"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver() (*Resolver, *httpmock.MockTransport) {
	mt := httpmock.NewMockTransport()
	tr := tracker.Default(nil, nil)
	return &Resolver{
		Requester: transport.NewHTTPClient(&http.Client{Transport: mt}, transport.HTTPOpts{}),
		Endpoints: Endpoints{
			"production/us-west-1": "https://profiles.segment.com",
			"production/eu-west-1": "https://profiles.euw1.segment.com",
		},
		Tracker:    tr,
		Classifier: failure.NewClassifier(tr),
	}, mt
}

func TestResolveTraitEnrichmentSkipsLookup(t *testing.T) {
	r, mt := newResolver()
	p := &model.Payload{UserID: "u1", TraitEnrichment: true, Traits: map[string]any{"name": "Jane", "email": "jane@example.com"}}

	prof, err := r.Resolve(context.Background(), model.Settings{SpaceID: "spa_1"}, p)
	require.NoError(t, err)
	assert.Equal(t, "Jane", prof.Traits["name"])
	assert.Equal(t, "jane@example.com", prof.Email)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestResolveFetchesByRegion(t *testing.T) {
	r, mt := newResolver()
	mt.RegisterResponder(http.MethodGet, "https://profiles.euw1.segment.com/v1/spaces/spa_1/collections/users/profiles/user_id:u1/traits",
		func(req *http.Request) (*http.Response, error) {
			user, _, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "tok", user)
			assert.Equal(t, "200", req.URL.Query().Get("limit"))
			return httpmock.NewStringResponse(200, `{"traits":{"name":"Jane"}}`), nil
		})

	s := model.Settings{SpaceID: "spa_1", Region: "eu-west-1", ProfileAPIAccessToken: "tok"}
	prof, err := r.Resolve(context.Background(), s, &model.Payload{UserID: "u1", Traits: map[string]any{"plan": "pro"}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", prof.Traits["name"])
	assert.Equal(t, "pro", prof.Traits["plan"])
}

func TestResolveFetchFailure(t *testing.T) {
	r, mt := newResolver()
	mt.RegisterResponder(http.MethodGet, "https://profiles.segment.com/v1/spaces/spa_1/collections/users/profiles/user_id:u1/traits",
		httpmock.NewStringResponder(503, `{}`))

	_, err := r.Resolve(context.Background(), model.Settings{SpaceID: "spa_1"}, &model.Payload{UserID: "u1"})
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeFetchFailure, fe.Code)
	assert.Equal(t, 503, fe.Status)
	assert.True(t, failure.IsRetryable(err))
}

func TestDefaultEndpointsResolveEveryEnvironment(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	eps := Endpoints(cfg.Endpoints.Profile)

	cases := []struct{ env, region, want string }{
		{"", "", "https://profiles.segment.com"},
		{"production", "eu-west-1", "https://profiles.euw1.segment.com"},
		{"staging", "us-west-1", "https://profiles.segment.build"},
		{"Staging", "eu-west-1", "https://profiles.euw1.segment.build"},
		{"stage", "eu-west-1", "https://profiles.euw1.segment.build"},
	}
	for _, c := range cases {
		got, ok := eps.BaseURL(c.env, c.region)
		assert.True(t, ok, c.env+"/"+c.region)
		assert.Equal(t, c.want, got)
	}

	_, ok := eps.BaseURL("dev", "us-west-1")
	assert.False(t, ok)
}
