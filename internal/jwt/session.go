// Package jwt emite y valida los session tokens del servicio.
// Firma EdDSA (ed25519) con una sola clave por proceso; la rotación se maneja
// redeployando con una seed nueva y dejando expirar las sesiones viejas.
package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid_jwt")
	ErrInvalidIssuer = errors.New("invalid_issuer")
)

// DefaultSessionTTL es el TTL por defecto de una sesión.
const DefaultSessionTTL = 24 * time.Hour

// Issuer firma session tokens con la clave del proceso.
type Issuer struct {
	Iss        string // "iss"
	SessionTTL time.Duration

	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer construye el issuer desde una seed ed25519 en base64 estándar
// (32 bytes). Con seed vacía genera una clave efímera, útil en dev: las
// sesiones no sobreviven un restart.
func NewIssuer(iss, seedB64 string) (*Issuer, error) {
	var priv ed25519.PrivateKey
	if seedB64 == "" {
		_, generated, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("jwt: generate key: %w", err)
		}
		priv = generated
	} else {
		seed, err := base64.StdEncoding.DecodeString(seedB64)
		if err != nil {
			return nil, fmt.Errorf("jwt: decode seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("jwt: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		priv = ed25519.NewKeyFromSeed(seed)
	}

	return &Issuer{
		Iss:        iss,
		SessionTTL: DefaultSessionTTL,
		priv:       priv,
		pub:        priv.Public().(ed25519.PublicKey),
	}, nil
}

// SessionClaims es el contenido de un session token ya validado.
type SessionClaims struct {
	IdentityID string
	Email      string
	Provider   string
	ExpiresAt  time.Time
}

// IssueSession emite un session token para la identidad dada.
func (i *Issuer) IssueSession(identityID, email, provider string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.SessionTTL)

	claims := jwtv5.MapClaims{
		"iss":      i.Iss,
		"sub":      identityID,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      exp.Unix(),
		"email":    email,
		"provider": provider,
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSession valida firma, issuer y ventana temporal, y devuelve las claims.
func (i *Issuer) ParseSession(token string) (*SessionClaims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		return i.pub, nil
	}

	tok, err := jwtv5.Parse(token, keyfunc, jwtv5.WithValidMethods([]string{"EdDSA"}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != i.Iss {
		return nil, ErrInvalidIssuer
	}

	out := &SessionClaims{}
	out.IdentityID, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	out.Provider, _ = claims["provider"].(string)
	if expf, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(expf), 0)
	}
	if out.IdentityID == "" {
		return nil, ErrInvalidToken
	}
	return out, nil
}
