package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hongminglow/portfolio-be/internal/accounts"
	"github.com/hongminglow/portfolio-be/internal/analytics"
	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/csrf"
	"github.com/hongminglow/portfolio-be/internal/http/handlers"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/observability"
	"github.com/hongminglow/portfolio-be/internal/ratelimit"
	"github.com/hongminglow/portfolio-be/internal/sessions"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// Services are the domain components shared by the HTTP server and the CLI.
type Services struct {
	Tokens    *auth.TokenManager
	Hasher    *auth.PasswordHasher
	Sessions  *sessions.Manager
	Accounts  *accounts.Service
	Analytics *analytics.Service
}

// NewServices builds the domain components on top of store.
func NewServices(cfg config.Config, store storage.Store, log logrus.FieldLogger, metrics *observability.Metrics) *Services {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	manager := sessions.NewManager(store, store, hasher, tokens, cfg.SessionTTL,
		sessions.WithLogger(log.WithField("component", "sessions")),
		sessions.WithMetrics(metrics),
	)
	return &Services{
		Tokens:    tokens,
		Hasher:    hasher,
		Sessions:  manager,
		Accounts:  accounts.NewService(store, manager, hasher, log.WithField("component", "accounts")),
		Analytics: analytics.NewService(store, nil),
	}
}

// Options carries the optional collaborators of the server.
type Options struct {
	// DB is pinged by /health when set.
	DB handlers.Pinger
	// Redis backs the rate limiters and the CSRF store when set.
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner   *http.Server
	handler http.Handler
}

// New wires up middleware, routes, and returns a ready server. ctx bounds the
// background cleanup of in-process limiters.
func New(ctx context.Context, cfg config.Config, store storage.Store, svc *Services, log logrus.FieldLogger, opts Options) (*Server, error) {
	uploads, err := handlers.NewUploadHandler(cfg.UploadDir, cfg.UploadMaxBytes, log.WithField("component", "uploads"))
	if err != nil {
		return nil, fmt.Errorf("set up uploads: %w", err)
	}

	loginLimiter := newLimiter(ctx, opts.Redis, "login", ratelimit.Config{Limit: cfg.LoginRateLimit, Window: cfg.LoginRateWindow})
	generalLimiter := newLimiter(ctx, opts.Redis, "general", ratelimit.Config{Limit: cfg.GeneralRateLimit, Window: cfg.GeneralRateWindow})

	var csrfStore csrf.Store = csrf.NewMemoryStore(cfg.CSRFCacheSize, cfg.SessionTTL)
	if opts.Redis != nil {
		csrfStore = csrf.NewRedisStore(opts.Redis, cfg.SessionTTL)
	}
	guard := csrf.NewGuard(csrfStore, cfg.SessionSecret, cfg.SessionTTL,
		csrf.WithSecureCookies(cfg.SecureCookies),
		csrf.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Logging(log, opts.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit("general", generalLimiter, log, opts.Metrics))
	r.Use(guard.Middleware)

	guards := handlers.Guards{
		Authenticate: middleware.Authenticate(svc.Tokens, opts.Metrics),
		Require: func(perms ...models.Permission) handlers.Middleware {
			return middleware.RequirePermissions(svc.Sessions, log, opts.Metrics, perms...)
		},
		LoginLimit: middleware.RateLimit("login", loginLimiter, log, opts.Metrics),
	}

	handlers.NewHealthHandler(time.Now(), opts.DB).Register(r)
	handlers.NewCSRFHandler(guard, log).Register(r)
	handlers.NewAuthHandler(svc.Sessions, svc.Accounts, log).Register(r, guards)
	handlers.NewUserHandler(svc.Accounts, log).Register(r, guards)
	handlers.NewProfileHandler(store, log).Register(r, guards)
	handlers.NewAnalyticsHandler(svc.Analytics, log).Register(r, guards)
	uploads.Register(r, guards)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	handler := otelhttp.NewHandler(r, "portfolio-be")

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, handler: handler}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

func newLimiter(ctx context.Context, client *redis.Client, name string, cfg ratelimit.Config) ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisFixedWindow(client, cfg, "ratelimit:"+name)
	}
	l := ratelimit.NewFixedWindow(cfg)
	l.StartCleanup(ctx)
	return l
}
