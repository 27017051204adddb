package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
	"attendance-portal/internal/config"
	"attendance-portal/internal/cookie"
	"attendance-portal/internal/events"
	"attendance-portal/internal/httpmiddleware"
	"attendance-portal/internal/logger"
	"attendance-portal/internal/session"
	"attendance-portal/internal/store"
	"attendance-portal/internal/web"
)

const (
	maintenanceEvery = 10 * time.Minute
	sessionIdle      = 30 * time.Minute
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	for _, w := range cfg.Warnings {
		zlog.Warn("config", zap.String("warning", w))
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("portal failed", zap.Error(err))
	}
}

func run(cfg config.App, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()
	persist := backend.persist
	zlog.Info("session backend ready", zap.String("backend", cfg.SessionBackend))

	// Replicas sharing Redis sessions must all see each expiry.
	var bus events.Stream
	if backend.redis != nil {
		bus = events.NewRedisBus(backend.redis.Client, "", logger.Component(zlog, "events"))
	} else {
		local := events.NewBus(64)
		defer local.Close()
		bus = local
	}

	client := api.New(cfg.APIBaseURL, cfg.APITimeout,
		api.WithEvents(bus),
		api.WithLogger(logger.Component(zlog, "api")),
	)
	manager := session.NewManager(persist, session.APIAuthenticator{Client: client}, logger.Component(zlog, "session"))
	go manager.Run(ctx, bus.Consume(ctx), time.Minute, sessionIdle)

	limiter := loginLimiter(cfg.LoginRateLimit)
	go maintain(ctx, zlog, limiter, backend.sql)

	handler, err := web.New(web.Options{
		API:      client,
		Sessions: manager,
		Cookies: cookie.Codec{
			Name:   cfg.CookieName,
			Secret: cfg.CookieSecret,
			Issuer: cfg.CookieIssuer,
			TTL:    cfg.SessionTTL,
			Secure: cfg.CookieSecure,
		},
		Log:         logger.Component(zlog, "web"),
		TrendDays:   cfg.TrendDays,
		LoginLimit:  limiter,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	r, err := newRouter(cfg, zlog)
	if err != nil {
		return err
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := persist.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "sessions": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": cfg.SessionBackend})
	})
	handler.Routes(r)

	protect := csrf.Protect([]byte(cfg.CSRFKey),
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zlog.Warn("csrf rejected", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			http.Error(w, "Invalid or missing form token. Reload the page and try again.", http.StatusForbidden)
		})),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      protect(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("portal listening", zap.String("addr", srv.Addr), zap.String("api", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("forced shutdown", zap.Error(err))
	}
	zlog.Info("portal stopped")
	return nil
}

// loginLimiter returns nil when the per-minute limit disables throttling.
func loginLimiter(perMinute int) *httpmiddleware.TokenBucket {
	if perMinute <= 0 {
		return nil
	}
	return httpmiddleware.NewTokenBucket(perMinute, perMinute)
}

// newRouter builds the engine with the shared middleware. Only the
// configured proxies may set the client IP through forwarding headers.
func newRouter(cfg config.App, zlog *zap.Logger) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(logger.Gin(zlog, "/healthz", "/metrics"))
	r.Use(httpmiddleware.SecurityHeaders())
	return r, nil
}

type sessionBackend struct {
	persist session.Persistence
	// sql and redis are set when sessions live there.
	sql   *session.SQLPersistence
	redis *store.Redis
	close func()
}

// openBackend selects the session persistence named by SESSION_BACKEND.
func openBackend(ctx context.Context, cfg config.App) (sessionBackend, error) {
	switch cfg.SessionBackend {
	case "memory":
		return sessionBackend{persist: session.NewMemoryPersistence(), close: func() {}}, nil
	case "redis":
		r, err := store.OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return sessionBackend{}, err
		}
		return sessionBackend{
			persist: session.NewRedisPersistence(r.Client, "", cfg.SessionTTL),
			redis:   r,
			close:   func() { _ = r.Close() },
		}, nil
	case "postgres", "sqlite":
		var db *store.DB
		var err error
		if cfg.SessionBackend == "postgres" {
			db, err = store.OpenPostgres(ctx, cfg.DatabaseURL)
		} else {
			db, err = store.OpenSQLite(ctx, cfg.SQLitePath)
		}
		if err != nil {
			return sessionBackend{}, err
		}
		p := session.NewSQLPersistence(db, cfg.SessionTTL)
		if err := p.Migrate(ctx); err != nil {
			_ = db.Close()
			return sessionBackend{}, err
		}
		return sessionBackend{persist: p, sql: p, close: func() { _ = db.Close() }}, nil
	default:
		return sessionBackend{}, fmt.Errorf("unknown SESSION_BACKEND %q (want memory, redis, postgres or sqlite)", cfg.SessionBackend)
	}
}

// maintain prunes idle login buckets and expired session rows.
func maintain(ctx context.Context, zlog *zap.Logger, limiter *httpmiddleware.TokenBucket, sqlStore *session.SQLPersistence) {
	ticker := time.NewTicker(maintenanceEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if limiter != nil {
			if n := limiter.Prune(maintenanceEvery); n > 0 {
				zlog.Debug("pruned login buckets", zap.Int("count", n))
			}
		}
		if sqlStore == nil {
			continue
		}
		n, err := sqlStore.Purge(ctx)
		if err != nil {
			zlog.Warn("purge sessions failed", zap.Error(err))
			continue
		}
		if n > 0 {
			zlog.Info("purged expired sessions", zap.Int64("count", n))
		}
	}
}
