// Package state implements CSRF protection for the redirect-based OAuth
// handshake. The state token travels in a per-provider cookie (the protocol
// contract with the browser) and is mirrored into the TTL cache, which gives
// server-side expiry, single-use semantics across replicas, and unit tests
// that don't need to fake cookie aging.
package state

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/tripnest/auth/internal/cache"
)

// DefaultTTL is how long a state token stays valid.
const DefaultTTL = 10 * time.Minute

const cookiePrefix = "oauth_state_"

// Manager mints, stores and validates CSRF state tokens.
type Manager struct {
	cache  cache.Cache
	ttl    time.Duration
	secure bool // Secure cookie flag; on in prod
}

// New creates a state Manager backed by the given cache.
func New(c cache.Cache, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{cache: c, ttl: ttl, secure: secure}
}

// Generate returns a new state token: 32 bytes of CSPRNG output, hex-encoded.
// No side effects.
func (m *Manager) Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Store binds the token to the provider: sets the oauth_state_<provider>
// cookie and records the token server-side with the configured TTL.
func (m *Manager) Store(w http.ResponseWriter, provider, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookiePrefix + provider,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.cache.Set(cacheKey(provider, token), []byte{1}, m.ttl)
}

// ValidateAndClear checks the received token against the stored one. The
// cookie is cleared unconditionally when present (single use), the comparison
// is constant-time, and the server-side entry is consumed. Absence, expiry and
// mismatch all resolve to false; this never returns an error so callers must
// treat false as a security failure, not missing data.
func (m *Manager) ValidateAndClear(w http.ResponseWriter, r *http.Request, provider, received string) bool {
	ck, err := r.Cookie(cookiePrefix + provider)
	if err != nil || ck.Value == "" {
		return false
	}
	m.clearCookie(w, provider)

	if received == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(ck.Value), []byte(received)) != 1 {
		return false
	}

	// The cache entry enforces expiry and single use server-side; a token
	// that only lives in a replayed cookie fails here.
	_, ok := m.cache.Take(cacheKey(provider, received))
	return ok
}

func (m *Manager) clearCookie(w http.ResponseWriter, provider string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookiePrefix + provider,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// cacheKey hashes the token so raw state values never sit in redis.
func cacheKey(provider, token string) string {
	sum := sha256.Sum256([]byte(token))
	return "social:state:" + provider + ":" + hex.EncodeToString(sum[:])
}
