package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request id, recover, trailing slash
	"github.com/sirupsen/logrus"

	"github.com/coinsforstudy/backend/internal/auth"
	"github.com/coinsforstudy/backend/internal/config" // Internal config loader
	"github.com/coinsforstudy/backend/internal/database"
	"github.com/coinsforstudy/backend/internal/handler"
	"github.com/coinsforstudy/backend/internal/logging"
	"github.com/coinsforstudy/backend/internal/metrics"
	"github.com/coinsforstudy/backend/internal/middleware"
	"github.com/coinsforstudy/backend/internal/notification"
	"github.com/coinsforstudy/backend/internal/progress"
	"github.com/coinsforstudy/backend/internal/queue"
	"github.com/coinsforstudy/backend/internal/repository"
	"github.com/coinsforstudy/backend/internal/router" // Internal router setup
	"github.com/coinsforstudy/backend/internal/service"
	"github.com/coinsforstudy/backend/internal/session"
	"github.com/coinsforstudy/backend/internal/supabase"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}

	// Redis is optional: without it progress, the session cache and the
	// rate limiter fall back to process memory.
	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	cacheCfg := config.LoadRoleCacheConfig()
	var (
		storage progress.Storage = progress.NewMemoryStorage()
		cache   session.Cache
	)
	if rdb != nil {
		defer rdb.Close()
		storage = progress.NewRedisStorage(rdb)
		if cacheCfg.Enabled {
			cache = session.NewRedisCache(rdb, cacheCfg.Prefix, cacheCfg.TTL, log)
		}
	} else if cacheCfg.Enabled {
		cache = session.NewMemoryCache(cacheCfg.TTL)
	}

	provider, err := newProvider(cfg, db)
	if err != nil {
		log.WithError(err).Fatal("configure auth provider")
	}

	users := repository.NewUserRepo(db)
	profiles := repository.NewProfileRepo(db)
	resolver := session.NewResolver(users, profiles, cache, log)
	registry := progress.NewRegistry(cfg.ProgressNamespace, storage)

	var storeOpts []notification.Option
	if cfg.AMQPURL != "" {
		storeOpts = append(storeOpts, notification.WithPublisher(service.NewNotificationPublisher(cfg.AMQPURL, log)))
	}
	notifications := notification.NewStore(log, storeOpts...)

	accounts := &service.AccountService{
		Provider:      provider,
		Users:         users,
		Profiles:      profiles,
		Resolver:      resolver,
		Notifications: notifications,
		Progress:      registry,
		Log:           log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AMQPURL != "" {
		consumer := &queue.Consumer{URL: cfg.AMQPURL, LogDir: "logs", Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("notification consumer stopped")
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	v := handler.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log, v)
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID(), echomw.Recover(), logging.RequestLogger(log), metrics.Middleware())

	au := router.Auth{Verifier: provider, CookieName: cfg.SessionCookie, Resolver: resolver}
	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterAuth(e,
		handler.NewAuthHandler(accounts, handler.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.CookieSecure || cfg.IsProd()}),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterAPI(e, au,
		handler.NewProfileHandler(accounts),
		handler.NewProgressHandler(registry),
		handler.NewNotificationHandler(notifications))
	router.RegisterPages(e, au, handler.NewPagesHandler(notifications),
		newChecker(cfg, provider, log), cfg.LoginPath)

	go func() {
		addr := ":" + cfg.Port // Address string with port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "auth": cfg.AuthProvider}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("could not stop server gracefully")
	}
}

// newProvider picks the identity provider named by AUTH_PROVIDER.
func newProvider(cfg config.Config, db *sql.DB) (auth.Provider, error) {
	if cfg.AuthProvider == config.ProviderSupabase {
		client, err := supabase.New(supabase.Config{ProjectURL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey})
		if err != nil {
			return nil, err
		}
		return auth.NewSupabase(client, cfg.JWTSecret), nil
	}
	return auth.NewLocal(auth.LocalConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, repository.NewCredentialRepo(db), repository.NewTokenRepo(db)), nil
}

func newChecker(cfg config.Config, v middleware.TokenVerifier, log logrus.FieldLogger) middleware.SessionChecker {
	if cfg.GuardMode == config.GuardLegacy {
		log.Warn("GUARD_MODE=legacy: pages accept any cookie that looks like a session")
		return middleware.CookiePatternChecker{}
	}
	return middleware.SignedSessionChecker{Verifier: v, CookieName: cfg.SessionCookie}
}
