package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tripnest/auth/internal/auth/state"
	"github.com/tripnest/auth/internal/domain/repository"
	"github.com/tripnest/auth/internal/metrics"
	"github.com/tripnest/auth/internal/observability/logger"
	"github.com/tripnest/auth/internal/util"
)

// OrchestratorDeps contains dependencies for the orchestrator.
type OrchestratorDeps struct {
	Factory         *Factory
	State           *state.Manager
	Identities      repository.IdentityRepository
	RedirectBaseURL string // callback URLs are {base}/auth/{provider}/callback
}

// Orchestrator drives the authorization-code flow end to end: initiate,
// callback (state validation, code exchange, profile fetch, identity
// resolution) and explicit account linking. It holds no per-request state;
// one instance is constructed at process start and shared.
type Orchestrator struct {
	factory      *Factory
	state        *state.Manager
	identities   repository.IdentityRepository
	redirectBase string
}

// NewOrchestrator wires an orchestrator from its dependencies.
func NewOrchestrator(d OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		factory:      d.Factory,
		state:        d.State,
		identities:   d.Identities,
		redirectBase: strings.TrimRight(d.RedirectBaseURL, "/"),
	}
}

// RedirectURI computes the callback URL registered with the provider.
func (o *Orchestrator) RedirectURI(provider string) string {
	return fmt.Sprintf("%s/auth/%s/callback", o.redirectBase, provider)
}

// Initiate starts a flow for the provider: mints a state token, stores it
// (cookie + cache, via the response writer side effect) and returns the
// provider authorization URL for the caller to redirect to.
func (o *Orchestrator) Initiate(ctx context.Context, provider string, w http.ResponseWriter) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.orchestrator"))

	client, err := o.factory.Client(provider)
	if err != nil {
		return "", err
	}

	token, err := o.state.Generate()
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	o.state.Store(w, provider, token)

	metrics.SocialLoginStarted.WithLabelValues(provider).Inc()
	log.Info("social login started", logger.Provider(provider))

	return client.AuthorizationURL(token, o.RedirectURI(provider)), nil
}

// CallbackResult is the outcome of a processed callback: returning user, new
// user, or linking required. LinkingRequired is a conflict state, not a failure;
// when set, Identity is nil and ExistingEmail/ExistingName describe the
// password-based account that already owns the email.
type CallbackResult struct {
	Identity        *repository.Identity
	Created         bool
	LinkingRequired bool
	ExistingEmail   string
	ExistingName    string

	// EmailSynthetic is propagated from UserInfo so the session layer can
	// suppress placeholder addresses.
	EmailSynthetic bool
}

// HandleCallback processes a provider callback. Every transition failure is
// terminal for this attempt; the caller must restart at Initiate. Identity
// creation only happens after the profile fetch succeeds, so an abandoned or
// failed callback leaves no partial records.
func (o *Orchestrator) HandleCallback(ctx context.Context, provider, code, stateParam string, w http.ResponseWriter, r *http.Request) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.orchestrator"))

	client, err := o.factory.Client(provider)
	if err != nil {
		return nil, err
	}

	if !o.state.ValidateAndClear(w, r, provider, stateParam) {
		metrics.SocialStateFailures.Inc()
		log.Warn("state validation failed", logger.Provider(provider))
		return nil, ErrStateMismatch
	}

	accessToken, err := client.ExchangeCode(ctx, code, o.RedirectURI(provider))
	if err != nil {
		metrics.SocialLoginCallbacks.WithLabelValues(provider, "error").Inc()
		log.Error("code exchange failed", logger.Provider(provider), logger.Err(err))
		return nil, err
	}

	info, err := client.FetchUserInfo(ctx, accessToken)
	if err != nil {
		metrics.SocialLoginCallbacks.WithLabelValues(provider, "error").Inc()
		log.Error("user info fetch failed", logger.Provider(provider), logger.Err(err))
		return nil, err
	}

	result, err := o.resolveIdentity(ctx, provider, info)
	if err != nil {
		metrics.SocialLoginCallbacks.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	result.EmailSynthetic = info.EmailSynthetic

	metrics.SocialLoginCallbacks.WithLabelValues(provider, result.outcome()).Inc()
	log.Info("callback resolved",
		logger.Provider(provider),
		logger.Outcome(result.outcome()),
		logger.Email(util.MaskEmail(info.Email)),
	)
	return result, nil
}

func (r *CallbackResult) outcome() string {
	switch {
	case r.LinkingRequired:
		return "linking_required"
	case r.Created:
		return "new"
	default:
		return "existing"
	}
}

// resolveIdentity maps an incoming OAuth profile onto an account record:
//
//  1. (provider, providerID) hit → returning user.
//  2. email miss → first-time signup, create.
//  3. email hit on a password account → linking required, nothing mutated
//     (silent auto-link would allow account takeover via a spoofed email).
//  4. email hit on a different OAuth provider → most recent login method
//     wins; provider fields are rewritten.
func (o *Orchestrator) resolveIdentity(ctx context.Context, provider string, info *UserInfo) (*CallbackResult, error) {
	identity, err := o.identities.GetByProvider(ctx, provider, info.ProviderID)
	if err == nil {
		return &CallbackResult{Identity: identity}, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("identity lookup by provider: %w", err)
	}

	existing, err := o.identities.GetByEmail(ctx, info.Email)
	if repository.IsNotFound(err) {
		created, err := o.createIdentity(ctx, provider, info)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Identity: created, Created: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity lookup by email: %w", err)
	}

	if existing.IsPasswordAccount() {
		return &CallbackResult{
			LinkingRequired: true,
			ExistingEmail:   existing.Email,
			ExistingName:    existing.Name,
		}, nil
	}

	// Different OAuth provider owns the email: rewrite the provider binding.
	existing.AuthProvider = provider
	existing.ProviderID = info.ProviderID
	existing.ProviderEmail = info.Email
	if existing.ProfilePictureURL == "" && info.Picture != "" {
		existing.ProfilePictureURL = info.Picture
	}
	if err := o.identities.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("rebinding identity provider: %w", err)
	}
	return &CallbackResult{Identity: existing}, nil
}

// createIdentity inserts a brand-new identity. A unique-constraint conflict
// means another callback for the same email won the race; retry once as a
// lookup so both requests converge on the same record.
func (o *Orchestrator) createIdentity(ctx context.Context, provider string, info *UserInfo) (*repository.Identity, error) {
	created, err := o.identities.Create(ctx, repository.CreateIdentityInput{
		Email:             info.Email,
		Name:              info.Name,
		AuthProvider:      provider,
		ProviderID:        info.ProviderID,
		ProviderEmail:     info.Email,
		ProfilePictureURL: info.Picture,
	})
	if err == nil {
		return created, nil
	}
	if !repository.IsConflict(err) {
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	existing, lookupErr := o.identities.GetByEmail(ctx, info.Email)
	if lookupErr != nil {
		return nil, fmt.Errorf("creating identity: %w", err)
	}
	return existing, nil
}

// LinkAccount attaches the OAuth identity to an already authenticated account.
// The caller is responsible for having verified the session or password proof.
// Idempotent when the exact (provider, providerID) pair is already linked.
func (o *Orchestrator) LinkAccount(ctx context.Context, identityID string, info *UserInfo, provider string) (*repository.Identity, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.orchestrator"))

	identity, err := o.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("loading identity for linking: %w", err)
	}

	if identity.AuthProvider == provider && identity.ProviderID == info.ProviderID {
		return identity, nil
	}

	identity.AuthProvider = provider
	identity.ProviderID = info.ProviderID
	identity.ProviderEmail = info.Email
	if identity.ProfilePictureURL == "" && info.Picture != "" {
		identity.ProfilePictureURL = info.Picture
	}
	if err := o.identities.Update(ctx, identity); err != nil {
		return nil, fmt.Errorf("linking identity: %w", err)
	}

	log.Info("account linked",
		logger.Provider(provider),
		logger.IdentityID(identity.ID),
		logger.Email(util.MaskEmail(identity.Email)),
	)
	return identity, nil
}
