// Package profile supplies recipient traits, either from the inbound payload or
// from the Profile API.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
)

const CodeFetchFailure = "PROFILE_FETCH_FAILURE"

// Endpoints maps "{environment}/{region}" to a Profile API base URL.
type Endpoints map[string]string

func (e Endpoints) BaseURL(environment, region string) (string, bool) {
	env := strings.ToLower(strings.TrimSpace(environment))
	switch env {
	case "":
		env = "production"
	case "stage":
		env = "staging"
	}
	if region == "" {
		region = model.DefaultRegion
	}
	u, ok := e[env+"/"+region]
	return u, ok
}

type Resolver struct {
	Requester  transport.Requester
	Endpoints  Endpoints
	Tracker    *tracker.Tracker
	Classifier *failure.Classifier
}

// Resolve returns the profile used for rendering. With trait enrichment the
// payload traits are used as-is and no request is made.
func (r *Resolver) Resolve(ctx context.Context, s model.Settings, p *model.Payload) (model.Profile, error) {
	if p.TraitEnrichment {
		return fromTraits(p.UserID, p.Traits), nil
	}
	if p.UserID == "" {
		return fromTraits("", p.Traits), nil
	}

	return tracker.Track(ctx, r.Tracker, "profile.fetch", func(ctx context.Context, op *tracker.Operation) (model.Profile, error) {
		base, ok := r.Endpoints.BaseURL(s.ProfileAPIEnvironment, s.Region)
		if !ok {
			return model.Profile{}, failure.Validation(
				fmt.Sprintf("no profile api for environment %q in region %q", s.ProfileAPIEnvironment, s.Region),
				"INVALID_PROFILE_API_ENVIRONMENT",
			)
		}

		endpoint := fmt.Sprintf("%s/v1/spaces/%s/collections/users/profiles/user_id:%s/traits?limit=200",
			strings.TrimRight(base, "/"), url.PathEscape(s.SpaceID), url.PathEscape(p.UserID))

		res, err := r.Requester.Do(ctx, transport.Request{
			Method: http.MethodGet,
			URL:    endpoint,
			Header: transport.BasicAuth(s.ProfileAPIAccessToken, ""),
		})
		if err != nil {
			cause := r.Classifier.Classify(ctx, err, "profile_api")
			return model.Profile{}, failure.Integration(
				"unable to fetch profile traits",
				CodeFetchFailure, failure.StatusOf(cause),
			).WithCause(cause)
		}

		var body struct {
			Traits map[string]any `json:"traits"`
		}
		if err := res.JSON(&body); err != nil {
			return model.Profile{}, failure.Integration("unable to decode profile traits", CodeFetchFailure, http.StatusInternalServerError).WithCause(err)
		}

		traits := body.Traits
		for k, v := range p.Traits {
			if _, ok := traits[k]; !ok {
				if traits == nil {
					traits = map[string]any{}
				}
				traits[k] = v
			}
		}
		return fromTraits(p.UserID, traits), nil
	})
}

func fromTraits(userID string, traits map[string]any) model.Profile {
	prof := model.Profile{UserID: userID, Traits: traits}
	if s, ok := traits["email"].(string); ok {
		prof.Email = s
	}
	if s, ok := traits["phone"].(string); ok {
		prof.Phone = s
	}
	return prof
}
