// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripnest/auth/internal/http/errors"
	"github.com/tripnest/auth/internal/http/handlers"
	mw "github.com/tripnest/auth/internal/http/middlewares"
	"github.com/tripnest/auth/internal/jwt"
)

// Deps contiene todo lo que el router necesita para registrar rutas.
type Deps struct {
	Social   *handlers.Social
	Health   *handlers.Health
	Sessions *jwt.Issuer

	CORSAllowedOrigins []string
}

// New construye el router con middlewares base y todas las rutas registradas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithCORS(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}", deps.Social.Initiate)
		r.Get("/{provider}/callback", deps.Social.Callback)

		// El link acepta sesión activa o email+password en el body.
		r.With(mw.WithOptionalSession(deps.Sessions)).Post("/link", deps.Social.Link)

		// Introspección de sesión: requiere token válido.
		r.With(mw.WithSessionAuth(deps.Sessions)).Get("/session", deps.Social.Session)
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
