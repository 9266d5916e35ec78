// Package handlers expone los endpoints HTTP del servicio de autenticación.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tripnest/auth/internal/auth"
	"github.com/tripnest/auth/internal/domain/repository"
	httperr "github.com/tripnest/auth/internal/http/errors"
	"github.com/tripnest/auth/internal/http/middlewares"
	"github.com/tripnest/auth/internal/jwt"
	"github.com/tripnest/auth/internal/observability/logger"
	"github.com/tripnest/auth/internal/security/password"
	"github.com/tripnest/auth/internal/util"
)

// SocialDeps contiene las dependencias de los handlers de social login.
type SocialDeps struct {
	Orchestrator *auth.Orchestrator
	Factory      *auth.Factory
	Sessions     *jwt.Issuer
	Identities   repository.IdentityRepository
	SecureCookie bool // Secure flag de la cookie de sesión; on en prod
}

// Social agrupa los handlers del flujo OAuth.
type Social struct {
	deps SocialDeps
}

func NewSocial(deps SocialDeps) *Social {
	return &Social{deps: deps}
}

// identityResponse es la representación pública de una identidad.
// Email va vacío cuando el provider no entregó uno real (placeholder interno);
// EmailSynthetic le avisa al cliente que pida un email al usuario.
type identityResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	EmailSynthetic bool   `json:"email_synthetic,omitempty"`
	Name           string `json:"name,omitempty"`
	Provider       string `json:"provider"`
	Picture        string `json:"picture,omitempty"`
	Created        bool   `json:"created"`
}

// Initiate maneja GET /auth/{provider}: arranca el flujo y redirige al provider.
func (h *Social) Initiate(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	authURL, err := h.deps.Orchestrator.Initiate(r.Context(), provider, w)
	if err != nil {
		httperr.WriteError(w, mapAuthError(err))
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback maneja GET /auth/{provider}/callback. Tres salidas posibles:
// sesión nueva (cookie + identidad), LINKING_REQUIRED (409, sin mutar nada),
// o un error terminal del flujo.
func (h *Social) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	// El usuario canceló en la pantalla del provider.
	if errCode := q.Get("error"); errCode != "" {
		logger.From(r.Context()).Warn("provider callback denied",
			logger.Provider(provider),
			logger.String("error", errCode),
		)
		httperr.WriteError(w, httperr.ErrAccessDenied.WithDetail(errCode))
		return
	}

	code := q.Get("code")
	if code == "" {
		httperr.WriteError(w, httperr.ErrBadRequest.WithDetail("missing code parameter"))
		return
	}

	result, err := h.deps.Orchestrator.HandleCallback(r.Context(), provider, code, q.Get("state"), w, r)
	if err != nil {
		httperr.WriteError(w, mapAuthError(err))
		return
	}

	if result.LinkingRequired {
		httperr.WriteError(w, httperr.ErrLinkingRequired.WithDetail(
			"cuenta existente: "+util.MaskEmail(result.ExistingEmail),
		))
		return
	}

	h.startSession(w, r, result.Identity, provider, result.Created, result.EmailSynthetic)
}

type sessionResponse struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email,omitempty"`
	Provider   string `json:"provider"`
	ExpiresAt  string `json:"expires_at"`
}

// Session maneja GET /auth/session: introspección de la sesión activa.
// El middleware de autenticación ya validó el token.
func (h *Social) Session(w http.ResponseWriter, r *http.Request) {
	claims := middlewares.GetSession(r.Context())
	if claims == nil {
		httperr.WriteError(w, httperr.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		IdentityID: claims.IdentityID,
		Email:      claims.Email,
		Provider:   claims.Provider,
		ExpiresAt:  claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type linkRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`

	// Prueba alternativa cuando no hay sesión activa.
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Link maneja POST /auth/link: vincula un provider OAuth a una cuenta ya
// existente. La prueba de posesión es la sesión activa o email+password.
func (h *Social) Link(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.WriteError(w, httperr.ErrInvalidJSON.WithCause(err))
		return
	}
	if req.Provider == "" || req.AccessToken == "" {
		httperr.WriteError(w, httperr.ErrMissingFields.WithDetail("provider y access_token son requeridos"))
		return
	}

	identityID, appErr := h.resolveLinkIdentity(r, req)
	if appErr != nil {
		httperr.WriteError(w, appErr)
		return
	}

	client, err := h.deps.Factory.Client(req.Provider)
	if err != nil {
		httperr.WriteError(w, mapAuthError(err))
		return
	}

	// El access token viene del cliente: verificar contra el provider antes
	// de confiar en él.
	if !client.ValidateToken(r.Context(), req.AccessToken) {
		httperr.WriteError(w, httperr.ErrInvalidCredentials.WithDetail("access_token rechazado por el provider"))
		return
	}
	info, err := client.FetchUserInfo(r.Context(), req.AccessToken)
	if err != nil {
		httperr.WriteError(w, mapAuthError(err))
		return
	}

	identity, err := h.deps.Orchestrator.LinkAccount(r.Context(), identityID, info, req.Provider)
	if err != nil {
		httperr.WriteError(w, mapAuthError(err))
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		ID:       identity.ID,
		Email:    identity.Email,
		Name:     identity.Name,
		Provider: identity.AuthProvider,
		Picture:  identity.ProfilePictureURL,
	})
}

// resolveLinkIdentity determina qué cuenta está pidiendo el link:
// sesión activa primero, si no email+password.
func (h *Social) resolveLinkIdentity(r *http.Request, req linkRequest) (string, *httperr.AppError) {
	if claims := middlewares.GetSession(r.Context()); claims != nil {
		return claims.IdentityID, nil
	}

	if req.Email == "" || req.Password == "" {
		return "", httperr.ErrUnauthorized.WithDetail("se requiere sesión activa o email+password")
	}

	identity, err := h.deps.Identities.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			// Misma respuesta que password incorrecto: no filtrar existencia.
			return "", httperr.ErrInvalidCredentials
		}
		return "", httperr.ErrInternalServerError.WithCause(err)
	}
	if !password.Verify(identity.PasswordHash, req.Password) {
		return "", httperr.ErrInvalidCredentials
	}
	return identity.ID, nil
}

// startSession emite el session token, setea la cookie y responde la identidad.
// Con email sintético la claim y la respuesta van sin email: el placeholder es
// una clave interna de correlación, nunca una dirección presentable.
func (h *Social) startSession(w http.ResponseWriter, r *http.Request, identity *repository.Identity, provider string, created, emailSynthetic bool) {
	email := identity.Email
	if emailSynthetic {
		email = ""
	}

	token, exp, err := h.deps.Sessions.IssueSession(identity.ID, email, provider)
	if err != nil {
		logger.From(r.Context()).Error("session issue failed", logger.Err(err))
		httperr.WriteError(w, httperr.ErrInternalServerError.WithCause(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.deps.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, identityResponse{
		ID:             identity.ID,
		Email:          email,
		EmailSynthetic: emailSynthetic,
		Name:           identity.Name,
		Provider:       provider,
		Picture:        identity.ProfilePictureURL,
		Created:        created,
	})
}

// mapAuthError traduce la taxonomía del flujo OAuth a errores HTTP.
func mapAuthError(err error) *httperr.AppError {
	switch {
	case stderrors.Is(err, auth.ErrProviderNotSupported):
		return httperr.ErrProviderNotSupported.WithCause(err)
	case stderrors.Is(err, auth.ErrStateMismatch):
		return httperr.ErrStateMismatch.WithCause(err)
	case stderrors.Is(err, auth.ErrCodeExchange),
		stderrors.Is(err, auth.ErrUserInfo),
		stderrors.Is(err, auth.ErrTokenValidation):
		return httperr.ErrProviderUpstream.WithCause(err)
	case stderrors.Is(err, auth.ErrConfig):
		return httperr.ErrInternalServerError.WithCause(err)
	case repository.IsNotFound(err):
		return httperr.ErrUserNotFound.WithCause(err)
	case repository.IsConflict(err):
		return httperr.ErrConflict.WithCause(err)
	default:
		return httperr.ErrInternalServerError.WithCause(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
