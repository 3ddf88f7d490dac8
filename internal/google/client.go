// Package google is a thin HTTP client for Google's OAuth2 token endpoints
// and the Calendar v3 read API. It talks to the plain REST endpoints
// directly instead of pulling in a generated SDK.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProviderName identifies this provider in stored credentials.
const ProviderName = "google"

// CalendarReadScope grants read-only calendar access.
const CalendarReadScope = "https://www.googleapis.com/auth/calendar.readonly"

const (
	defaultAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenEndpoint    = "https://oauth2.googleapis.com/token"
	defaultRevokeEndpoint   = "https://oauth2.googleapis.com/revoke"
	defaultUserinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultCalendarBaseURL  = "https://www.googleapis.com/calendar/v3"
)

// Client calls Google's OAuth and Calendar endpoints. Endpoints are fields
// so tests can point them at an httptest server.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthEndpoint     string
	TokenEndpoint    string
	RevokeEndpoint   string
	UserinfoEndpoint string
	CalendarBaseURL  string

	http *http.Client
}

// New creates a client with Google's production endpoints and a bounded
// HTTP timeout so a slow provider cannot hang a serving goroutine.
func New(clientID, clientSecret, redirectURL string, scopes []string) *Client {
	return &Client{
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		RedirectURL:      redirectURL,
		Scopes:           scopes,
		AuthEndpoint:     defaultAuthEndpoint,
		TokenEndpoint:    defaultTokenEndpoint,
		RevokeEndpoint:   defaultRevokeEndpoint,
		UserinfoEndpoint: defaultUserinfoEndpoint,
		CalendarBaseURL:  defaultCalendarBaseURL,
		http:             &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx response from Google.
type APIError struct {
	StatusCode  int
	ErrCode     string
	Description string
}

func (e *APIError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("google: http %d: %s %s", e.StatusCode, e.ErrCode, e.Description)
	}
	return fmt.Sprintf("google: http %d", e.StatusCode)
}

// AuthURL builds the authorization URL. Offline access and a consent
// prompt are requested so a refresh token is issued.
func (c *Client) AuthURL(state string) string {
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("include_granted_scopes", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse is the token endpoint's payload for both the code exchange
// and the refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token,omitempty"`
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURL)
	return c.tokenCall(ctx, form)
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	return c.tokenCall(ctx, form)
}

func (c *Client) tokenCall(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, &APIError{StatusCode: resp.StatusCode, ErrCode: b.Error, Description: b.ErrorDescription}
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("google: decode token response: %w", err)
	}
	return &tr, nil
}

// RevokeToken revokes an access or refresh token. Google returns 200 for
// tokens that are already invalid, so callers normally only see network
// failures here.
func (c *Client) RevokeToken(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RevokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Userinfo contains the identity claims used for credential metadata.
type Userinfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchUserinfo returns the identity claims for an access token.
func (c *Client) FetchUserinfo(ctx context.Context, accessToken string) (*Userinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var ui Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("google: decode userinfo: %w", err)
	}
	return &ui, nil
}
