// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno. Valida fail-fast: un provider
// habilitado sin credenciales aborta el arranque, nunca falla en runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		BaseURL            string   `yaml:"base_url"` // base pública para redirect URIs
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		SessionTTL string `yaml:"session_ttl"`
		// base64(32 bytes); vacío => clave efímera (solo dev)
		Ed25519Seed string `yaml:"ed25519_seed"`
	} `yaml:"jwt"`

	OAuth struct {
		StateTTL string `yaml:"state_ttl"`
	} `yaml:"oauth"`

	Providers struct {
		Google   ProviderConfig `yaml:"google"`
		Facebook ProviderConfig `yaml:"facebook"`
	} `yaml:"providers"`
}

// IsProd reporta si corremos en modo producción.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// SessionTTL devuelve el TTL de sesión ya parseado.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.SessionTTL)
	return d
}

// StateTTL devuelve el TTL del state CSRF ya parseado.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.OAuth.StateTTL)
	return d
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.Server.BaseURL
	}
	if c.JWT.SessionTTL == "" {
		c.JWT.SessionTTL = "24h"
	}
	if c.OAuth.StateTTL == "" {
		c.OAuth.StateTTL = "10m"
	}

	// validate string durations
	if _, err := time.ParseDuration(c.JWT.SessionTTL); err != nil {
		return nil, fmt.Errorf("config: jwt.session_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.OAuth.StateTTL); err != nil {
		return nil, fmt.Errorf("config: oauth.state_ttl: %w", err)
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate aborta el arranque ante configuración inconsistente.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.driver postgres requiere storage.dsn")
		}
	default:
		return fmt.Errorf("config: storage.driver desconocido: %q", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.kind redis requiere cache.redis.addr")
		}
	default:
		return fmt.Errorf("config: cache.kind desconocido: %q", c.Cache.Kind)
	}

	// Providers habilitados deben tener credenciales completas.
	for _, p := range []struct {
		name string
		cfg  ProviderConfig
	}{
		{"google", c.Providers.Google},
		{"facebook", c.Providers.Facebook},
	} {
		if !p.cfg.Enabled {
			continue
		}
		if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
			return fmt.Errorf("config: provider %s habilitado sin client_id/client_secret", p.name)
		}
	}

	if c.IsProd() && c.JWT.Ed25519Seed == "" {
		return fmt.Errorf("config: jwt.ed25519_seed es obligatorio en prod")
	}

	return nil
}

// applyEnvOverrides pisa valores del YAML con variables de entorno.
// Los secretos normalmente llegan por acá, no por el archivo.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("JWT_ED25519_SEED"); ok {
		c.JWT.Ed25519Seed = v
	}

	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
		c.Providers.Google.Enabled = true
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("FACEBOOK_APP_ID"); ok {
		c.Providers.Facebook.ClientID = v
		c.Providers.Facebook.Enabled = true
	}
	if v, ok := getEnvStr("FACEBOOK_APP_SECRET"); ok {
		c.Providers.Facebook.ClientSecret = v
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
