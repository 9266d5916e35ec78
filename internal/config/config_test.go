package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tripnest/auth/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "app:\n  env: dev\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" || cfg.Cache.Kind != "memory" {
		t.Fatalf("drivers = %s/%s", cfg.Storage.Driver, cfg.Cache.Kind)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL())
	}
	if cfg.StateTTL() != 10*time.Minute {
		t.Fatalf("state ttl = %v", cfg.StateTTL())
	}
	if cfg.IsProd() {
		t.Fatal("dev no es prod")
	}
}

func TestLoad_ProviderWithoutCredentialsFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
providers:
  google:
    enabled: true
`))
	if err == nil {
		t.Fatal("provider habilitado sin credenciales debe abortar el arranque")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
storage:
  driver: postgres
`))
	if err == nil {
		t.Fatal("postgres sin dsn debe fallar")
	}
}

func TestLoad_ProdRequiresSeed(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
app:
  env: prod
`))
	if err == nil {
		t.Fatal("prod sin ed25519_seed debe fallar")
	}
}

func TestLoad_UnknownDriverFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
storage:
  driver: mongodb
`))
	if err == nil {
		t.Fatal("driver desconocido debe fallar")
	}
}

func TestLoad_BadDurationFails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
jwt:
  session_ttl: "un rato"
`))
	if err == nil {
		t.Fatal("duración inválida debe fallar")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-sec")

	cfg, err := config.Load(writeConfig(t, "app:\n  env: dev\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q, el env debe pisar el YAML", cfg.Server.Addr)
	}
	if !cfg.Providers.Google.Enabled || cfg.Providers.Google.ClientID != "env-id" {
		t.Fatalf("google = %+v", cfg.Providers.Google)
	}
}
