package auth

import (
	"net/url"
	"strings"
)

// UserInfo is the normalized profile shape every provider client must produce.
// It is the single input-validation chokepoint for all providers: constructing
// one guarantees non-empty providerID/email/name and a sane picture URL.
// Created once per callback, consumed by the orchestrator, never persisted
// as-is.
type UserInfo struct {
	ProviderID string
	Email      string // lowercase, trimmed
	Name       string // trimmed

	// EmailSynthetic marks a placeholder email synthesized because the
	// provider omitted the real one (Facebook users can hide it). Display
	// layers must not present it as a real address.
	EmailSynthetic bool

	// Picture is optional. When present the scheme was validated to be
	// http or https.
	Picture string
}

// NewUserInfo normalizes and validates provider profile data.
// providerID, email and name are required; picture may be empty.
func NewUserInfo(providerID, email, name, picture string) (*UserInfo, error) {
	providerID = strings.TrimSpace(providerID)
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	picture = strings.TrimSpace(picture)

	if providerID == "" {
		return nil, &ValidationError{Field: "providerId", Reason: "is required"}
	}
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if picture != "" {
		u, err := url.Parse(picture)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			// A provider handing back javascript: or data: URLs is hostile
			// input; fail the whole callback instead of dropping the field.
			return nil, &ValidationError{Field: "picture", Reason: "must be an http(s) URL"}
		}
	}

	return &UserInfo{
		ProviderID: providerID,
		Email:      email,
		Name:       name,
		Picture:    picture,
	}, nil
}
