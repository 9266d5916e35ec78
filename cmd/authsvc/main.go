package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tripnest/auth/internal/auth"
	"github.com/tripnest/auth/internal/auth/facebook"
	"github.com/tripnest/auth/internal/auth/google"
	"github.com/tripnest/auth/internal/auth/state"
	"github.com/tripnest/auth/internal/cache"
	memcache "github.com/tripnest/auth/internal/cache/memory"
	rediscache "github.com/tripnest/auth/internal/cache/redis"
	"github.com/tripnest/auth/internal/config"
	"github.com/tripnest/auth/internal/domain/repository"
	"github.com/tripnest/auth/internal/http/handlers"
	"github.com/tripnest/auth/internal/http/router"
	"github.com/tripnest/auth/internal/jwt"
	"github.com/tripnest/auth/internal/metrics"
	"github.com/tripnest/auth/internal/observability/logger"
	memstore "github.com/tripnest/auth/internal/store/memory"
	pgstore "github.com/tripnest/auth/internal/store/pg"
)

func main() {
	// .env primero: los overrides de config leen el entorno ya poblado.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "ruta del archivo de configuración")
	migrate := flag.Bool("migrate", false, "aplicar migraciones de schema al arrancar")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger todavía no inicializado.
		panic("config: " + err.Error())
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "authsvc",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───────── Storage ─────────
	var identities repository.IdentityRepository
	var storePinger handlers.Pinger
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := pgstore.Connect(ctx, cfg.Storage.DSN, int32(cfg.Storage.Postgres.MaxOpenConns))
		if err != nil {
			log.Fatal("postgres connect failed", logger.Err(err))
		}
		defer store.Close()
		if *migrate {
			if err := store.Migrate(ctx); err != nil {
				log.Fatal("migrations failed", logger.Err(err))
			}
			log.Info("migrations applied")
		}
		identities = store
		storePinger = store
	default:
		identities = memstore.New()
		log.Warn("using in-memory identity store; data is lost on restart")
	}

	// ───────── Cache ─────────
	var kv cache.Cache
	var cachePinger handlers.Pinger
	switch cfg.Cache.Kind {
	case "redis":
		rc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		if err := rc.Ping(ctx); err != nil {
			log.Fatal("redis ping failed", logger.Err(err))
		}
		kv = rc
		cachePinger = rc
	default:
		kv = memcache.New(cfg.StateTTL())
	}

	// ───────── Providers ─────────
	factory := auth.NewFactory()
	if cfg.Providers.Google.Enabled {
		factory.Register(google.ProviderName, auth.ProviderConfig{
			ClientID:     cfg.Providers.Google.ClientID,
			ClientSecret: cfg.Providers.Google.ClientSecret,
			Scope:        cfg.Providers.Google.Scope,
		}, google.NewClient)
	}
	if cfg.Providers.Facebook.Enabled {
		factory.Register(facebook.ProviderName, auth.ProviderConfig{
			ClientID:     cfg.Providers.Facebook.ClientID,
			ClientSecret: cfg.Providers.Facebook.ClientSecret,
			Scope:        cfg.Providers.Facebook.Scope,
		}, facebook.NewClient)
	}

	// Fail-fast: construir cada client habilitado valida sus credenciales.
	for _, name := range factory.Available() {
		if _, err := factory.Client(name); err != nil {
			log.Fatal("provider configuration invalid",
				logger.Provider(name), logger.Err(err),
			)
		}
	}
	log.Info("providers registered", logger.Any("providers", factory.Available()))

	// ───────── Core wiring ─────────
	stateMgr := state.New(kv, cfg.StateTTL(), cfg.IsProd())
	orchestrator := auth.NewOrchestrator(auth.OrchestratorDeps{
		Factory:         factory,
		State:           stateMgr,
		Identities:      identities,
		RedirectBaseURL: cfg.Server.BaseURL,
	})

	sessions, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.Ed25519Seed)
	if err != nil {
		log.Fatal("session issuer init failed", logger.Err(err))
	}
	sessions.SessionTTL = cfg.SessionTTL()

	if err := metrics.RegisterSocial(nil); err != nil {
		log.Fatal("metrics registration failed", logger.Err(err))
	}

	social := handlers.NewSocial(handlers.SocialDeps{
		Orchestrator: orchestrator,
		Factory:      factory,
		Sessions:     sessions,
		Identities:   identities,
		SecureCookie: cfg.IsProd(),
	})
	health := handlers.NewHealth(factory.Available())
	if storePinger != nil {
		health.AddDependency("postgres", storePinger)
	}
	if cachePinger != nil {
		health.AddDependency("redis", cachePinger)
	}

	handler := router.New(router.Deps{
		Social:             social,
		Health:             health,
		Sessions:           sessions,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", logger.Err(err))
	}
}
