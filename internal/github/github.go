// Package github is the identity-provider client: OAuth code exchange,
// profile fetch, and live team-membership checks using each user's
// stored access token. All API traffic runs through a circuit breaker
// so a provider outage degrades quickly instead of tying up publishers.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/storage"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("github api unavailable")

// ErrPermission is returned when GitHub denies a scoped query, usually
// because the stored token lacks the read:org scope.
var ErrPermission = errors.New("insufficient github permissions; re-authenticate to grant read:org")

// Profile is the subset of the provider's user record the registry keeps.
type Profile struct {
	Login  string  `json:"login"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar_url"`
}

// Client talks to the GitHub API.
type Client struct {
	apiBase      string
	oauthBase    string
	clientID     string
	clientSecret string
	http         *http.Client
	breaker      *circuit.Breaker
}

// New creates a Client with the given OAuth application credentials.
// httpClient may be nil, in which case a default DNS-caching client is
// used.
func New(clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = storage.NewHTTPClient(30 * time.Second)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Reset()

	return &Client{
		apiBase:      "https://api.github.com",
		oauthBase:    "https://github.com",
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         httpClient,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		}),
	}
}

// ExchangeCode trades an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.oauthBase+"/login/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var body struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	if body.Error != "" || body.AccessToken == "" {
		return "", fmt.Errorf("token exchange rejected: %s", body.Error)
	}
	return body.AccessToken, nil
}

// CurrentUser fetches the profile behind an access token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, "/user", accessToken, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindTeam resolves an org/team slug pair to the provider's team record.
func (c *Client) FindTeam(ctx context.Context, accessToken, org, team string) (*owner.TeamInfo, error) {
	var teams []struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/orgs/"+org+"/teams", accessToken, &teams); err != nil {
		return nil, err
	}
	for _, t := range teams {
		if t.Slug == team {
			name := t.Name
			return &owner.TeamInfo{GithubID: t.ID, Name: &name}, nil
		}
	}
	return nil, owner.ErrTeamNotFound
}

// IsTeamMember reports whether login has an active membership in the
// provider team. A 404 from the membership endpoint means "not a
// member".
func (c *Client) IsTeamMember(ctx context.Context, accessToken string, githubTeamID int64, login string) (bool, error) {
	var membership struct {
		State string `json:"state"`
	}
	path := fmt.Sprintf("/teams/%d/memberships/%s", githubTeamID, login)
	err := c.get(ctx, path, accessToken, &membership)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return membership.State == "active", nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("github returned %d for %s", e.code, e.url)
}

func (c *Client) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("building github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, out)
}

// do executes the request through the circuit breaker and decodes the
// JSON response. Membership 404s pass through as typed statusErrors
// without counting as breaker failures.
func (c *Client) do(req *http.Request, out any) error {
	if !c.breaker.Ready() {
		return ErrUnavailable
	}

	var decodeErr error
	err := c.breaker.Call(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusForbidden:
			decodeErr = ErrPermission
			return nil
		case resp.StatusCode == http.StatusNotFound:
			decodeErr = &statusError{code: resp.StatusCode, url: req.URL.String()}
			return nil
		case resp.StatusCode >= 400:
			return &statusError{code: resp.StatusCode, url: req.URL.String()}
		}

		decodeErr = json.NewDecoder(resp.Body).Decode(out)
		if decodeErr != nil {
			decodeErr = fmt.Errorf("decoding github response: %w", decodeErr)
		}
		return nil
	}, 0)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	return decodeErr
}
