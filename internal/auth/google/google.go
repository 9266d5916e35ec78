// Package google implements the Google OAuth 2.0 provider client.
// Google supports OIDC but we only need the plain authorization-code flow:
// form-encoded token exchange, bearer userinfo fetch and the tokeninfo
// validation endpoint.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripnest/auth/internal/auth"
)

const ProviderName = "google"

const (
	defaultAuthEndpoint      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenEndpoint     = "https://oauth2.googleapis.com/token"
	defaultUserInfoEndpoint  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultTokenInfoEndpoint = "https://www.googleapis.com/oauth2/v1/tokeninfo"
)

// Client is the Google OAuth 2.0 provider client.
type Client struct {
	clientID     string
	clientSecret string
	scope        string

	// Endpoints are overridable so package tests can target httptest servers.
	AuthEndpoint      string
	TokenEndpoint     string
	UserInfoEndpoint  string
	TokenInfoEndpoint string

	http *http.Client
}

// NewClient validates the Google configuration and builds the client.
func NewClient(cfg auth.ProviderConfig) (auth.ProviderClient, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return nil, &auth.ConfigError{Provider: ProviderName, Missing: missing}
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid email profile"
	}

	return &Client{
		clientID:          cfg.ClientID,
		clientSecret:      cfg.ClientSecret,
		scope:             scope,
		AuthEndpoint:      defaultAuthEndpoint,
		TokenEndpoint:     defaultTokenEndpoint,
		UserInfoEndpoint:  defaultUserInfoEndpoint,
		TokenInfoEndpoint: defaultTokenInfoEndpoint,
		http:              &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// AuthorizationURL builds the Google authorization URL.
func (c *Client) AuthorizationURL(state, redirectURI string) string {
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", c.scope)
	q.Set("state", state)
	q.Set("access_type", "online")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()
	return u.String()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ExchangeCode trades an authorization code for an access token via a
// form-encoded POST.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrCodeExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrCodeExchange, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", auth.ErrCodeExchange, err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("%w: google: %s %s", auth.ErrCodeExchange, tr.Error, tr.ErrorDesc)
	}
	if resp.StatusCode/100 != 2 || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: google: http %d, no access_token", auth.ErrCodeExchange, resp.StatusCode)
	}

	return tr.AccessToken, nil
}

type userInfoResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchUserInfo retrieves the profile with a bearer GET and normalizes it.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google userinfo: http %d", auth.ErrUserInfo, resp.StatusCode)
	}

	var ui userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %v", auth.ErrUserInfo, err)
	}

	return auth.NewUserInfo(ui.ID, ui.Email, ui.Name, ui.Picture)
}

// ValidateToken checks the token against Google's tokeninfo endpoint.
// Any network or parse failure resolves to false, never an error.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) bool {
	u, err := url.Parse(c.TokenInfoEndpoint)
	if err != nil {
		return false
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var info struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false
	}
	return info.UserID != ""
}
