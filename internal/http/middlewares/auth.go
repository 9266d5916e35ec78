package middlewares

import (
	"net/http"
	"strings"

	"github.com/tripnest/auth/internal/http/errors"
	"github.com/tripnest/auth/internal/jwt"
)

// SessionCookieName es el nombre de la cookie de sesión del servicio.
const SessionCookieName = "tn_session"

// WithSessionAuth valida el session token (Bearer o cookie) y deja las claims
// en el contexto. Sin token válido corta con 401.
func WithSessionAuth(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if ck, err := r.Cookie(SessionCookieName); err == nil {
					token = ck.Value
				}
			}
			if token == "" {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			claims, err := issuer.ParseSession(token)
			if err != nil {
				errors.WriteError(w, errors.ErrTokenInvalid.WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

// WithOptionalSession parsea el session token si está presente pero nunca
// corta el request. Para endpoints que aceptan sesión o una prueba alternativa.
func WithOptionalSession(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if ck, err := r.Cookie(SessionCookieName); err == nil {
					token = ck.Value
				}
			}
			if token != "" {
				if claims, err := issuer.ParseSession(token); err == nil {
					r = r.WithContext(WithSession(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
