// Package facebook implements the Facebook OAuth 2.0 provider client.
// Facebook diverges from Google in three ways: the token exchange is a GET
// with query parameters, the Graph /me call needs an explicit fields list, and
// users may hide their email entirely, in which case a placeholder address is
// synthesized and flagged on the resulting UserInfo.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tripnest/auth/internal/auth"
)

const ProviderName = "facebook"

const (
	defaultAuthEndpoint       = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultTokenEndpoint      = "https://graph.facebook.com/v18.0/oauth/access_token"
	defaultUserInfoEndpoint   = "https://graph.facebook.com/v18.0/me"
	defaultDebugTokenEndpoint = "https://graph.facebook.com/debug_token"
)

// userFields is the explicit field list for /me; without it the Graph API
// returns only id and name.
const userFields = "id,name,email,picture.width(200).height(200)"

// Client is the Facebook OAuth 2.0 provider client.
type Client struct {
	appID     string
	appSecret string
	scope     string

	// Endpoints are overridable so package tests can target httptest servers.
	AuthEndpoint       string
	TokenEndpoint      string
	UserInfoEndpoint   string
	DebugTokenEndpoint string

	http *http.Client
}

// NewClient validates the Facebook configuration and builds the client.
func NewClient(cfg auth.ProviderConfig) (auth.ProviderClient, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "app_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "app_secret")
	}
	if len(missing) > 0 {
		return nil, &auth.ConfigError{Provider: ProviderName, Missing: missing}
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "email,public_profile"
	}

	return &Client{
		appID:              cfg.ClientID,
		appSecret:          cfg.ClientSecret,
		scope:              scope,
		AuthEndpoint:       defaultAuthEndpoint,
		TokenEndpoint:      defaultTokenEndpoint,
		UserInfoEndpoint:   defaultUserInfoEndpoint,
		DebugTokenEndpoint: defaultDebugTokenEndpoint,
		http:               &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// AuthorizationURL builds the Facebook dialog URL.
func (c *Client) AuthorizationURL(state, redirectURI string) string {
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("client_id", c.appID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", c.scope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	Error       *graphError `json:"error,omitempty"`
}

// ExchangeCode trades an authorization code for an access token. Facebook
// uses a GET with the parameters in the query string.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	u, err := url.Parse(c.TokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrCodeExchange, err)
	}
	q := u.Query()
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("code", code)
	q.Set("redirect_uri", redirectURI)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrCodeExchange, err)
	}
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
	if tr.Error != nil {
		return "", fmt.Errorf("%w: facebook: %s (code %d)", auth.ErrCodeExchange, tr.Error.Message, tr.Error.Code)
	}
	if resp.StatusCode/100 != 2 || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: facebook: http %d, no access_token", auth.ErrCodeExchange, resp.StatusCode)
	}

	return tr.AccessToken, nil
}

type userInfoResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"` // may be absent: users can hide it
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Error *graphError `json:"error,omitempty"`
}

// FetchUserInfo calls Graph /me with the explicit fields parameter and
// unwraps the nested picture structure. When Facebook omits the email, a
// placeholder "<id>@facebook.oauth" is synthesized and EmailSynthetic is set
// so downstream code never mistakes it for a real address.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error) {
	u, err := url.Parse(c.UserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserInfo, err)
	}
	q := u.Query()
	q.Set("fields", userFields)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserInfo, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserInfo, err)
	}
	defer resp.Body.Close()

	var ui userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("%w: decoding /me response: %v", auth.ErrUserInfo, err)
	}
	if ui.Error != nil {
		return nil, fmt.Errorf("%w: facebook: %s (code %d)", auth.ErrUserInfo, ui.Error.Message, ui.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facebook /me: http %d", auth.ErrUserInfo, resp.StatusCode)
	}

	email := ui.Email
	synthetic := false
	if email == "" && ui.ID != "" {
		email = ui.ID + "@facebook.oauth"
		synthetic = true
	}

	info, err := auth.NewUserInfo(ui.ID, email, ui.Name, ui.Picture.Data.URL)
	if err != nil {
		return nil, err
	}
	info.EmailSynthetic = synthetic
	return info, nil
}

// ValidateToken checks the token against the debug_token endpoint,
// authenticated with the app token "appId|appSecret". Any failure resolves to
// false, never an error.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) bool {
	u, err := url.Parse(c.DebugTokenEndpoint)
	if err != nil {
		return false
	}
	q := u.Query()
	q.Set("input_token", accessToken)
	q.Set("access_token", c.appID+"|"+c.appSecret)
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

	var out struct {
		Data struct {
			IsValid bool `json:"is_valid"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return out.Data.IsValid
}
