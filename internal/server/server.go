package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/story-be/internal/auth"
	"github.com/hongminglow/story-be/internal/config"
	"github.com/hongminglow/story-be/internal/http/handlers"
	"github.com/hongminglow/story-be/internal/middleware"
	"github.com/hongminglow/story-be/internal/ratelimit"
	"github.com/hongminglow/story-be/internal/storage"
	"github.com/hongminglow/story-be/internal/stories"
)

const authRateWindow = time.Minute

// Server wraps an http.Server with configured routes.
type Server struct {
	inner   *http.Server
	handler http.Handler
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, limiter ratelimit.Limiter, logger *slog.Logger) (*Server, error) {
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	metrics := middleware.NewMetrics()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	bearer := middleware.NewBearer(tokens)
	authLimit := middleware.NewRateLimit(limiter, cfg.RateLimitAuthPerMinute, authRateWindow, proxies, metrics)

	handlers.NewHealthHandler(time.Now(), store.Ping, logger).Register(mux)
	handlers.NewAuthHandler(auth.NewAuthenticator(store, tokens), bearer, authLimit, logger).Register(mux)
	handlers.NewStoryHandler(stories.NewService(store, store), bearer, logger).Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, proxies, metrics.Instrument(mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return &Server{inner: httpServer, handler: handler}, nil
}

// Handler exposes the fully wrapped handler, mainly for tests.
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
