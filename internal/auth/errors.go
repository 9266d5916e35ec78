package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for every failure mode of the OAuth flow. Callers branch
// with errors.Is; the HTTP layer maps each one to a status code and a
// non-leaking message. Provider transport errors are always wrapped into one
// of these, never returned raw.
var (
	// ErrConfig: a provider was requested with missing or invalid credentials.
	// Not retryable without an operator fix.
	ErrConfig = errors.New("provider configuration invalid")

	// ErrProviderNotSupported: provider name outside {google, facebook}.
	ErrProviderNotSupported = errors.New("provider not supported")

	// ErrStateMismatch: callback state missing, expired or not matching the
	// stored token. Treated as a potential CSRF attack; the flow must restart.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrCodeExchange: the provider rejected the authorization code or the
	// exchange request failed.
	ErrCodeExchange = errors.New("authorization code exchange failed")

	// ErrUserInfo: code exchange succeeded but fetching profile data failed.
	// Kept distinct from ErrCodeExchange so operators can tell which leg broke.
	ErrUserInfo = errors.New("user info fetch failed")

	// ErrTokenValidation: the optional access-token validation check failed.
	ErrTokenValidation = errors.New("token validation failed")
)

// ConfigError reporta qué provider está mal configurado y qué campos faltan.
// Unwrap retorna ErrConfig para que errors.Is(err, ErrConfig) funcione.
type ConfigError struct {
	Provider string
	Missing  []string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("provider %q configuration invalid", e.Provider)
	}
	return fmt.Sprintf("provider %q missing config: %s", e.Provider, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// ValidationError reporta un UserInfo inválido (campo requerido vacío o
// picture con scheme no permitido). Unwrap retorna ErrUserInfo.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid user info: field %q %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrUserInfo }
