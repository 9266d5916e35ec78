// Package auth implements the OAuth 2.0 authorization-code orchestration for
// TripNest social login: provider clients, CSRF state handling and the
// identity-resolution procedure that maps provider profiles onto accounts.
//
// Design Patterns:
//   - Strategy: each provider is a ProviderClient; the orchestrator never
//     branches on provider names.
//   - Factory: the Factory is the only place provider names are switched on.
package auth

import "context"

// ProviderClient is the capability contract every OAuth provider implements.
// Network methods wrap failures into the package error taxonomy; raw transport
// errors never escape a client.
type ProviderClient interface {
	// Name returns the provider name ("google", "facebook").
	Name() string

	// AuthorizationURL builds the provider's authorization URL embedding the
	// CSRF state token. Pure; no network I/O.
	AuthorizationURL(state, redirectURI string) string

	// ExchangeCode trades an authorization code for an access token.
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)

	// FetchUserInfo retrieves and normalizes the user profile.
	FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)

	// ValidateToken reports whether the access token is still valid.
	// Returns false (never an error) on any network or parse failure.
	ValidateToken(ctx context.Context, accessToken string) bool
}

// ProviderConfig carries the per-provider credentials loaded at startup.
// Facebook's appId/appSecret map onto ClientID/ClientSecret.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
}
