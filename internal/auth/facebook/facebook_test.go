package facebook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tripnest/auth/internal/auth"
	"github.com/tripnest/auth/internal/auth/facebook"
)

func newClient(t *testing.T) *facebook.Client {
	t.Helper()
	c, err := facebook.NewClient(auth.ProviderConfig{ClientID: "app-id", ClientSecret: "app-sec"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c.(*facebook.Client)
}

func TestNewClient_MissingConfig(t *testing.T) {
	_, err := facebook.NewClient(auth.ProviderConfig{})
	if !errors.Is(err, auth.ErrConfig) {
		t.Fatalf("err = %v, esperaba ErrConfig", err)
	}
	var cerr *auth.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %T", err)
	}
	if len(cerr.Missing) != 2 {
		t.Fatalf("Missing = %v, esperaba app_id y app_secret", cerr.Missing)
	}
}

func TestAuthorizationURL(t *testing.T) {
	c := newClient(t)
	u, err := url.Parse(c.AuthorizationURL("st-1", "http://localhost:8080/auth/facebook/callback"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "app-id" || q.Get("state") != "st-1" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("scope") != "email,public_profile" {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
}

func TestExchangeCode_UsesGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, el exchange de facebook es GET", r.Method)
		}
		q := r.URL.Query()
		if q.Get("code") != "the-code" || q.Get("client_secret") != "app-sec" {
			t.Errorf("query = %v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-at",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer srv.Close()

	c := newClient(t)
	c.TokenEndpoint = srv.URL

	token, err := c.ExchangeCode(context.Background(), "the-code", "http://cb")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token != "fb-at" {
		t.Fatalf("token = %q", token)
	}
}

func TestExchangeCode_GraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Invalid verification code format.",
				"type":    "OAuthException",
				"code":    100,
			},
		})
	}))
	defer srv.Close()

	c := newClient(t)
	c.TokenEndpoint = srv.URL

	_, err := c.ExchangeCode(context.Background(), "bad", "http://cb")
	if !errors.Is(err, auth.ErrCodeExchange) {
		t.Fatalf("err = %v, esperaba ErrCodeExchange", err)
	}
	if !strings.Contains(err.Error(), "Invalid verification code") {
		t.Fatalf("err = %v, debería incluir el mensaje del Graph", err)
	}
}

func TestFetchUserInfo_FieldsAndNestedPicture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("fields"); got != "id,name,email,picture.width(200).height(200)" {
			t.Errorf("fields = %q", got)
		}
		if q.Get("access_token") != "fb-at" {
			t.Errorf("access_token = %q", q.Get("access_token"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "f-9",
			"name":  "Ana Gómez",
			"email": "ana@example.com",
			"picture": map[string]any{
				"data": map[string]any{
					"url": "https://scontent.example.com/p.jpg",
				},
			},
		})
	}))
	defer srv.Close()

	c := newClient(t)
	c.UserInfoEndpoint = srv.URL

	info, err := c.FetchUserInfo(context.Background(), "fb-at")
	if err != nil {
		t.Fatalf("FetchUserInfo: %v", err)
	}
	if info.Picture != "https://scontent.example.com/p.jpg" {
		t.Fatalf("picture = %q, debería desanidar picture.data.url", info.Picture)
	}
	if info.EmailSynthetic {
		t.Fatal("con email real no hay placeholder")
	}
}

func TestFetchUserInfo_HiddenEmailSynthesized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Usuario con email oculto: el Graph omite el campo.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "f-9",
			"name": "Ana Gómez",
		})
	}))
	defer srv.Close()

	c := newClient(t)
	c.UserInfoEndpoint = srv.URL

	info, err := c.FetchUserInfo(context.Background(), "fb-at")
	if err != nil {
		t.Fatalf("FetchUserInfo: %v", err)
	}
	if info.Email != "f-9@facebook.oauth" {
		t.Fatalf("email = %q, esperaba placeholder", info.Email)
	}
	if !info.EmailSynthetic {
		t.Fatal("el placeholder debe quedar marcado como sintético")
	}
}

func TestValidateToken_DebugToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("access_token") != "app-id|app-sec" {
			t.Errorf("app token = %q", q.Get("access_token"))
		}
		valid := q.Get("input_token") == "fb-at"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"is_valid": valid},
		})
	}))
	defer srv.Close()

	c := newClient(t)
	c.DebugTokenEndpoint = srv.URL

	if !c.ValidateToken(context.Background(), "fb-at") {
		t.Fatal("token válido debería pasar")
	}
	if c.ValidateToken(context.Background(), "otro") {
		t.Fatal("token inválido debería fallar")
	}
}
