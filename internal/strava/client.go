// Package strava is a thin facade over the Strava OAuth2 and activity API.
// It classifies every transport or protocol failure as either ErrAuth (token
// exchange/refresh) or ErrFetch (data calls) and never swallows one.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAuth marks a failed token exchange or refresh against the provider.
	ErrAuth = errors.New("strava token request failed")
	// ErrFetch marks a failed athlete or activity data call.
	ErrFetch = errors.New("strava data request failed")
)

// OAuthScope is requested on the consent screen.
const OAuthScope = "activity:read_all,profile:read_all"

// Client calls the Strava API over plain HTTP. The base URL is configurable
// so tests can point it at a local stub.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	backendURL   string
	httpClient   *http.Client
}

// NewClient creates a Client. backendURL is the public base URL of this
// service; the OAuth redirect lands on backendURL + /oauth/auth.
func NewClient(baseURL, clientID, clientSecret, backendURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		backendURL:   strings.TrimRight(backendURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthorizationURL returns the consent-screen URL the frontend redirects to.
func (c *Client) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.backendURL+"/oauth/auth")
	q.Set("approval_prompt", "auto")
	q.Set("scope", OAuthScope)
	return c.baseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token bundle.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenBundle, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	return c.tokenRequest(ctx, data)
}

// RefreshToken trades a refresh token for a fresh token bundle.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	return c.tokenRequest(ctx, data)
}

func (c *Client) tokenRequest(ctx context.Context, data url.Values) (*TokenBundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, string(body))
	}

	var bundle TokenBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return &bundle, nil
}

// GetAthlete fetches the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, accessToken, "/api/v3/athlete", nil, &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetActivities lists activities with after < start < before, capped at limit.
func (c *Client) GetActivities(ctx context.Context, accessToken string, after, before time.Time, limit int) ([]Activity, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after.Unix(), 10))
	q.Set("before", strconv.FormatInt(before.Unix(), 10))
	q.Set("per_page", strconv.Itoa(limit))

	var activities []Activity
	if err := c.getJSON(ctx, accessToken, "/api/v3/athlete/activities", q, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivityStreams fetches the time and latlng streams of one activity,
// keyed by stream type. The per-activity call shape mirrors the upstream API.
func (c *Client) GetActivityStreams(ctx context.Context, accessToken string, activityID int64) (StreamSet, error) {
	q := url.Values{}
	q.Set("keys", StreamKeyTime+","+StreamKeyLatLng)
	q.Set("key_by_type", "true")

	var streams StreamSet
	path := fmt.Sprintf("/api/v3/activities/%d/streams", activityID)
	if err := c.getJSON(ctx, accessToken, path, q, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s: status %d: %s", ErrFetch, path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetch, path, err)
	}
	return nil
}
