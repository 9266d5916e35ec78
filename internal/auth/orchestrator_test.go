package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tripnest/auth/internal/auth"
	"github.com/tripnest/auth/internal/auth/state"
	memcache "github.com/tripnest/auth/internal/cache/memory"
	"github.com/tripnest/auth/internal/domain/repository"
	memstore "github.com/tripnest/auth/internal/store/memory"
)

// fakeProvider simula un provider OAuth: el exchange y el fetch devuelven
// datos fijos sin red.
type fakeProvider struct {
	name  string
	info  *auth.UserInfo
	token string

	exchangeErr error
	fetchErr    error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) AuthorizationURL(state, redirectURI string) string {
	return "https://" + f.name + ".example.com/auth?state=" + state
}
func (f *fakeProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.token, nil
}
func (f *fakeProvider) FetchUserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	cp := *f.info
	return &cp, nil
}
func (f *fakeProvider) ValidateToken(ctx context.Context, accessToken string) bool {
	return accessToken == f.token
}

type fixture struct {
	orch  *auth.Orchestrator
	store *memstore.Store
}

func newFixture(t *testing.T, providers ...*fakeProvider) *fixture {
	t.Helper()
	factory := auth.NewFactory()
	for _, p := range providers {
		p := p
		factory.Register(p.name, auth.ProviderConfig{ClientID: "id", ClientSecret: "sec"},
			func(cfg auth.ProviderConfig) (auth.ProviderClient, error) { return p, nil })
	}

	store := memstore.New()
	orch := auth.NewOrchestrator(auth.OrchestratorDeps{
		Factory:         factory,
		State:           state.New(memcache.New(time.Minute), time.Minute, false),
		Identities:      store,
		RedirectBaseURL: "http://localhost:8080",
	})
	return &fixture{orch: orch, store: store}
}

// runCallback corre initiate + callback completos, propagando la cookie de
// state como haría el browser.
func (fx *fixture) runCallback(t *testing.T, provider string) (*auth.CallbackResult, error) {
	t.Helper()
	ctx := context.Background()

	initRec := httptest.NewRecorder()
	if _, err := fx.orch.Initiate(ctx, provider, initRec); err != nil {
		return nil, err
	}

	var stateToken string
	r := httptest.NewRequest("GET", "/auth/"+provider+"/callback", nil)
	for _, ck := range initRec.Result().Cookies() {
		if ck.Value != "" {
			r.AddCookie(ck)
			stateToken = ck.Value
		}
	}

	return fx.orch.HandleCallback(ctx, provider, "code-123", stateToken, httptest.NewRecorder(), r)
}

func googleUser() *auth.UserInfo {
	info, _ := auth.NewUserInfo("g-1", "ana@example.com", "Ana Gómez", "https://lh3.example.com/p.jpg")
	return info
}

func TestHandleCallback_NewUser(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})

	result, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if !result.Created {
		t.Fatal("primer login debe crear la identidad")
	}
	if result.LinkingRequired {
		t.Fatal("no hay cuenta previa, no puede pedir linking")
	}
	if result.Identity.AuthProvider != "google" || result.Identity.ProviderID != "g-1" {
		t.Fatalf("binding = %s/%s", result.Identity.AuthProvider, result.Identity.ProviderID)
	}
	if result.Identity.Email != "ana@example.com" {
		t.Fatalf("email = %q", result.Identity.Email)
	}
	if result.Identity.ProfilePictureURL == "" {
		t.Fatal("picture debería persistirse en el alta")
	}
}

func TestHandleCallback_ReturningUser(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})

	first, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("primer callback: %v", err)
	}
	second, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("segundo callback: %v", err)
	}
	if second.Created {
		t.Fatal("el segundo login no debe crear nada")
	}
	if second.Identity.ID != first.Identity.ID {
		t.Fatal("debe resolver a la misma identidad")
	}
}

func TestHandleCallback_PasswordAccountRequiresLinking(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})

	existing, err := fx.store.Create(context.Background(), repository.CreateIdentityInput{
		Email:        "ana@example.com",
		Name:         "Ana",
		AuthProvider: repository.AuthProviderEmail,
		PasswordHash: "$2a$12$hash",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if !result.LinkingRequired {
		t.Fatal("email de cuenta password debe pedir linking explícito")
	}
	if result.Identity != nil {
		t.Fatal("linking required no devuelve identidad")
	}
	if result.ExistingEmail != "ana@example.com" {
		t.Fatalf("ExistingEmail = %q", result.ExistingEmail)
	}

	// Nada mutado: la cuenta sigue siendo password.
	after, err := fx.store.GetByID(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.AuthProvider != repository.AuthProviderEmail || after.PasswordHash == "" {
		t.Fatal("la cuenta password no debe modificarse")
	}
}

func TestHandleCallback_FacebookSyntheticEmail(t *testing.T) {
	// Usuario de Facebook con email oculto: el client sintetiza el placeholder
	// y marca EmailSynthetic.
	info, err := auth.NewUserInfo("f-9", "f-9@facebook.oauth", "Facu Pérez", "")
	if err != nil {
		t.Fatalf("NewUserInfo: %v", err)
	}
	info.EmailSynthetic = true
	fx := newFixture(t, &fakeProvider{name: "facebook", info: info, token: "at"})

	result, err := fx.runCallback(t, "facebook")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if !result.Created {
		t.Fatal("primer login debe crear la identidad")
	}
	if !result.EmailSynthetic {
		t.Fatal("el flag de email sintético debe propagarse al resultado")
	}
	// El placeholder se persiste como clave de correlación.
	if result.Identity.Email != "f-9@facebook.oauth" {
		t.Fatalf("email = %q", result.Identity.Email)
	}

	// El relogin resuelve por (provider, providerID) y mantiene el flag.
	second, err := fx.runCallback(t, "facebook")
	if err != nil {
		t.Fatalf("segundo callback: %v", err)
	}
	if second.Created || second.LinkingRequired {
		t.Fatalf("esperaba relogin, got created=%v linking=%v", second.Created, second.LinkingRequired)
	}
	if second.Identity.ID != result.Identity.ID {
		t.Fatal("debe resolver a la misma identidad")
	}
	if !second.EmailSynthetic {
		t.Fatal("el flag sintético debe seguir presente en el relogin")
	}
}

func TestHandleCallback_CrossProviderRebind(t *testing.T) {
	googleInfo := googleUser()
	fbInfo, _ := auth.NewUserInfo("f-9", "ana@example.com", "Ana Gómez", "")
	fx := newFixture(t,
		&fakeProvider{name: "google", info: googleInfo, token: "at-g"},
		&fakeProvider{name: "facebook", info: fbInfo, token: "at-f"},
	)

	first, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("callback google: %v", err)
	}

	// Mismo email, ahora via facebook: gana el último método usado.
	second, err := fx.runCallback(t, "facebook")
	if err != nil {
		t.Fatalf("callback facebook: %v", err)
	}
	if second.Created || second.LinkingRequired {
		t.Fatalf("esperaba relogin, got created=%v linking=%v", second.Created, second.LinkingRequired)
	}
	if second.Identity.ID != first.Identity.ID {
		t.Fatal("el rebind debe conservar la identidad")
	}
	if second.Identity.AuthProvider != "facebook" || second.Identity.ProviderID != "f-9" {
		t.Fatalf("binding = %s/%s, esperaba facebook/f-9", second.Identity.AuthProvider, second.Identity.ProviderID)
	}
	// La foto del alta original se conserva (facebook no trajo ninguna).
	if second.Identity.ProfilePictureURL == "" {
		t.Fatal("la foto existente no debe pisarse con vacío")
	}
}

func TestHandleCallback_StateMismatch(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})
	ctx := context.Background()

	initRec := httptest.NewRecorder()
	if _, err := fx.orch.Initiate(ctx, "google", initRec); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	r := httptest.NewRequest("GET", "/auth/google/callback", nil)
	for _, ck := range initRec.Result().Cookies() {
		if ck.Value != "" {
			r.AddCookie(ck)
		}
	}

	_, err := fx.orch.HandleCallback(ctx, "google", "code", "forged-state", httptest.NewRecorder(), r)
	if !errors.Is(err, auth.ErrStateMismatch) {
		t.Fatalf("err = %v, esperaba ErrStateMismatch", err)
	}
}

func TestHandleCallback_UnknownProvider(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.orch.HandleCallback(context.Background(), "twitter", "c", "s", httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !errors.Is(err, auth.ErrProviderNotSupported) {
		t.Fatalf("err = %v, esperaba ErrProviderNotSupported", err)
	}
}

func TestHandleCallback_ExchangeFailure(t *testing.T) {
	fx := newFixture(t, &fakeProvider{
		name:        "google",
		info:        googleUser(),
		exchangeErr: auth.ErrCodeExchange,
	})

	_, err := fx.runCallback(t, "google")
	if !errors.Is(err, auth.ErrCodeExchange) {
		t.Fatalf("err = %v, esperaba ErrCodeExchange", err)
	}
}

// conflictOnCreate fuerza un ErrConflict en el primer Create para simular dos
// callbacks concurrentes con el mismo email.
type conflictOnCreate struct {
	repository.IdentityRepository
	fired bool
}

func (c *conflictOnCreate) Create(ctx context.Context, input repository.CreateIdentityInput) (*repository.Identity, error) {
	if !c.fired {
		c.fired = true
		// El "otro" request gana la carrera.
		if _, err := c.IdentityRepository.Create(ctx, input); err != nil {
			return nil, err
		}
		return nil, repository.ErrConflict
	}
	return c.IdentityRepository.Create(ctx, input)
}

func TestHandleCallback_CreateRaceConverges(t *testing.T) {
	p := &fakeProvider{name: "google", info: googleUser(), token: "at"}
	factory := auth.NewFactory()
	factory.Register("google", auth.ProviderConfig{ClientID: "id", ClientSecret: "sec"},
		func(cfg auth.ProviderConfig) (auth.ProviderClient, error) { return p, nil })

	repo := &conflictOnCreate{IdentityRepository: memstore.New()}
	orch := auth.NewOrchestrator(auth.OrchestratorDeps{
		Factory:         factory,
		State:           state.New(memcache.New(time.Minute), time.Minute, false),
		Identities:      repo,
		RedirectBaseURL: "http://localhost:8080",
	})
	fx := &fixture{orch: orch}

	result, err := fx.runCallback(t, "google")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if result.Identity == nil || result.Identity.Email != "ana@example.com" {
		t.Fatal("la carrera debe converger en la identidad ganadora")
	}
}

func TestLinkAccount_Idempotent(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})

	seed, err := fx.store.Create(context.Background(), repository.CreateIdentityInput{
		Email:        "ana@example.com",
		Name:         "Ana",
		AuthProvider: repository.AuthProviderEmail,
		PasswordHash: "$2a$12$hash",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	info := googleUser()
	linked, err := fx.orch.LinkAccount(context.Background(), seed.ID, info, "google")
	if err != nil {
		t.Fatalf("LinkAccount: %v", err)
	}
	if linked.AuthProvider != "google" || linked.ProviderID != "g-1" {
		t.Fatalf("binding = %s/%s", linked.AuthProvider, linked.ProviderID)
	}

	// Repetir el link exacto no cambia nada ni falla.
	again, err := fx.orch.LinkAccount(context.Background(), seed.ID, info, "google")
	if err != nil {
		t.Fatalf("LinkAccount repetido: %v", err)
	}
	if again.ID != linked.ID {
		t.Fatal("el link repetido debe resolver a la misma identidad")
	}
}

func TestRedirectURI(t *testing.T) {
	fx := newFixture(t)
	got := fx.orch.RedirectURI("google")
	want := "http://localhost:8080/auth/google/callback"
	if got != want {
		t.Fatalf("RedirectURI = %q, want %q", got, want)
	}
}

func TestInitiate_SetsStateCookie(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "google", info: googleUser(), token: "at"})

	rec := httptest.NewRecorder()
	authURL, err := fx.orch.Initiate(context.Background(), "google", rec)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if authURL == "" {
		t.Fatal("authURL vacío")
	}

	var ck *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state_google" {
			ck = c
		}
	}
	if ck == nil || ck.Value == "" {
		t.Fatal("Initiate debe setear la cookie de state")
	}
	if !ck.HttpOnly {
		t.Fatal("la cookie de state debe ser HttpOnly")
	}
	if ck.SameSite != http.SameSiteLaxMode {
		t.Fatal("la cookie de state debe ser SameSite=Lax")
	}
}
